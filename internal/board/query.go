/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"strings"

	"moodboard/internal/domain"
	"moodboard/internal/vector"
)

// FindItems returns the items whose display name or searchable text contains query,
// ignoring case, in z-order. An empty query matches nothing.
func (b *Board) FindItems(query string) []domain.CanvasItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []domain.CanvasItem
	for _, it := range b.live.items {
		if strings.Contains(strings.ToLower(it.DisplayName()), q) ||
			strings.Contains(strings.ToLower(it.Content.SearchText()), q) {
			out = append(out, it)
		}
	}
	return out
}

// ItemsAt returns the ids of the items whose bounding box contains the canvas
// point p, topmost first.
func (b *Board) ItemsAt(p vector.Pt) []domain.ItemID {
	var out []domain.ItemID
	for i := len(b.live.items) - 1; i >= 0; i-- {
		if it := b.live.items[i]; it.BoundingBox().Contains(p) {
			out = append(out, it.ID)
		}
	}
	return out
}

// ItemsIn returns the ids of the items whose bounding box intersects r, in z-order.
func (b *Board) ItemsIn(r vector.Rect) []domain.ItemID {
	var out []domain.ItemID
	for _, it := range b.live.items {
		if it.BoundingBox().Intersects(r) {
			out = append(out, it.ID)
		}
	}
	return out
}

// Bounds is the union of all item bounding boxes. ok is false on an empty board.
func (b *Board) Bounds() (r vector.Rect, ok bool) {
	for i, it := range b.live.items {
		if i == 0 {
			r = it.BoundingBox()
			continue
		}
		r = r.Union(it.BoundingBox())
	}
	return r, len(b.live.items) > 0
}

// ZoomAround builds the command that zooms the view by factor around the screen
// point anchor. Zoom is clamped to the allowed range.
func (b *Board) ZoomAround(factor float32, anchor vector.Pt) SetViewport {
	return SetViewport{Viewport: b.live.viewport.ZoomAround(factor, anchor)}
}

// CenterOn builds the command that centres item id in a screen of the given size.
func (b *Board) CenterOn(id domain.ItemID, screen vector.Size) (SetViewport, error) {
	it, ok := b.live.Item(id)
	if !ok {
		return SetViewport{}, invalid("center_on", id, "no such item")
	}
	return SetViewport{Viewport: b.live.viewport.CenterOn(it.BoundingBox(), screen)}, nil
}
