/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"slices"

	"moodboard/internal/domain"
)

// Snapshot is an immutable point-in-time copy of a board's items and viewport.
// The live board state is itself always a Snapshot; mutations build new ones.
type Snapshot struct {
	items    []domain.CanvasItem
	viewport domain.Viewport
}

var emptySnapshot = &Snapshot{viewport: domain.DefaultViewport()}

func newSnapshot(items []domain.CanvasItem, vp domain.Viewport) *Snapshot {
	return &Snapshot{items: items, viewport: vp}
}

// Items returns a copy of the items in z-order, bottom first.
func (s *Snapshot) Items() []domain.CanvasItem { return slices.Clone(s.items) }

func (s *Snapshot) Len() int                   { return len(s.items) }
func (s *Snapshot) At(i int) domain.CanvasItem { return s.items[i] }
func (s *Snapshot) Viewport() domain.Viewport  { return s.viewport }

// Item looks up an item by id.
func (s *Snapshot) Item(id domain.ItemID) (domain.CanvasItem, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return domain.CanvasItem{}, false
}

func (s *Snapshot) index(id domain.ItemID) int {
	return slices.IndexFunc(s.items, func(it domain.CanvasItem) bool { return it.ID == id })
}

// Equal reports whether both snapshots describe the same board state.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.viewport == o.viewport && slices.Equal(s.items, o.items)
}

// estimateSize approximates the memory a snapshot holds, for the history byte cap.
func estimateSize(s *Snapshot) int {
	n := 64
	for _, it := range s.items {
		n += 96
		switch c := it.Content.(type) {
		case domain.TextBox:
			n += len(c.Text) + len(c.Color)
		case domain.Link:
			n += len(c.URL)
		default:
			n += len(c.DisplayName())
		}
	}
	return n
}
