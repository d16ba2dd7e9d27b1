/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a board has no stored document or index entry.
var ErrNotFound = errors.New("storage: board not found")

// Store reads and writes board documents. Implementations must be safe for use from
// several goroutines; the persistence scheduler writes from a background goroutine.
type Store interface {
	Write(ctx context.Context, boardID string, data []byte) error
	Read(ctx context.Context, boardID string) ([]byte, error)
	Delete(ctx context.Context, boardID string) error
	Close() error
}

// checkID rejects ids that could escape a directory or key namespace.
func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("board id is required")
	}
	if strings.ContainsAny(id, `/\:*?"<>|`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid board id %q", id)
	}
	return nil
}
