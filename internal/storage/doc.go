/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists board documents and the board index.
// Documents are opaque bytes to this package; board.Encode and board.Decode own the format.
// The file backend writes transactionally with timestamped backups, the SQLite backend keeps
// the last few versions of each board, and the redis and postgres backends serve shared setups.
// The board index (names, timestamps, trash) always lives in SQLite next to the data.
package storage
