/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the board data model: placed canvas items, their closed
// set of content variants, the viewport, and the limits every item must respect.
// Values here are passive data; behaviour lives in the board package.
package domain

import (
	"fmt"

	"moodboard/internal/vector"
)

// ItemID identifies a canvas item within one board. Ids are never reused on a board.
type ItemID uint64

// CanvasItem is one placed object on a board.
type CanvasItem struct {
	ID       ItemID      `json:"id"`
	Position vector.Pt   `json:"position"`
	Size     vector.Size `json:"size"`
	Content  Content     `json:"content"`
}

// NewItem places content at pos using its default size.
func NewItem(id ItemID, content Content, pos vector.Pt) CanvasItem {
	return CanvasItem{ID: id, Position: pos, Size: content.DefaultSize(), Content: content}
}

// BoundingBox returns the canvas-space rect the item occupies.
func (c CanvasItem) BoundingBox() vector.Rect {
	if c.Content == nil {
		return vector.R(c.Position.X, c.Position.Y, c.Size.W, c.Size.H)
	}
	return c.Content.BoundingBox(c.Position, c.Size)
}

// DisplayName is a short human label for lists and search results.
func (c CanvasItem) DisplayName() string {
	if c.Content == nil {
		return fmt.Sprintf("item %d", c.ID)
	}
	return c.Content.DisplayName()
}

// Validate checks the item against the geometry and content limits.
func (c CanvasItem) Validate() error {
	if c.Content == nil {
		return &FieldError{Field: "content", Reason: "missing"}
	}
	if !c.Position.Finite() {
		return &FieldError{Field: "position", Reason: "must be finite"}
	}
	if err := ValidateSize(c.Content, c.Size); err != nil {
		return err
	}
	return c.Content.validate()
}

// ValidateSize checks size against the rules for the given content. Arrows ignore size.
func ValidateSize(content Content, s vector.Size) error {
	if content != nil && content.Kind() == KindArrow {
		return nil
	}
	if !s.Finite() {
		return &FieldError{Field: "size", Reason: "must be finite"}
	}
	if !s.Positive() {
		return &FieldError{Field: "size", Reason: "must be positive"}
	}
	if s.W > MaxDimension || s.H > MaxDimension {
		return &FieldError{Field: "size", Reason: fmt.Sprintf("must not exceed %g", float32(MaxDimension))}
	}
	return nil
}

// FieldError describes which part of an item or viewport broke a rule.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Reason }
