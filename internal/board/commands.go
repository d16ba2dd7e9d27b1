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
	"moodboard/internal/vector"
)

// Command is a single validated change to a board. The set is closed; every command
// either applies completely or leaves the board untouched.
type Command interface {
	Name() string
	apply(w *working) error
}

// working is the mutable copy a command runs against. It becomes the next live
// snapshot only when the command succeeds.
type working struct {
	items    []domain.CanvasItem
	viewport domain.Viewport
	nextID   domain.ItemID

	// used holds every id the board has ever held; added collects new ones.
	used  map[domain.ItemID]struct{}
	added []domain.ItemID
}

func newWorking(s *Snapshot, nextID domain.ItemID, used map[domain.ItemID]struct{}) *working {
	return &working{items: slices.Clone(s.items), viewport: s.viewport, nextID: nextID, used: used}
}

func (w *working) idTaken(id domain.ItemID) bool {
	if _, ok := w.used[id]; ok {
		return true
	}
	return slices.Contains(w.added, id) ||
		slices.ContainsFunc(w.items, func(it domain.CanvasItem) bool { return it.ID == id })
}

func (w *working) find(op string, id domain.ItemID) (int, error) {
	i := slices.IndexFunc(w.items, func(it domain.CanvasItem) bool { return it.ID == id })
	if i < 0 {
		return -1, invalid(op, id, "no such item")
	}
	return i, nil
}

// AddItem places a new item on top of the z-order. The id must never have been
// held by this board, not even by an item removed through undo; Board.NewItem
// allocates one.
type AddItem struct{ Item domain.CanvasItem }

func (AddItem) Name() string { return "add_item" }
func (c AddItem) apply(w *working) error {
	if c.Item.ID == 0 {
		return &ValidationError{Op: c.Name(), Field: "id", Reason: "must be non-zero"}
	}
	if w.idTaken(c.Item.ID) {
		return &ValidationError{Op: c.Name(), Item: c.Item.ID, Field: "id", Reason: "already used on this board"}
	}
	if err := c.Item.Validate(); err != nil {
		return invalidField(c.Name(), c.Item.ID, err)
	}
	w.items = append(w.items, c.Item)
	w.added = append(w.added, c.Item.ID)
	w.nextID = max(w.nextID, c.Item.ID+1)
	return nil
}

// MoveItem sets an item's position.
type MoveItem struct {
	ID domain.ItemID
	To vector.Pt
}

func (MoveItem) Name() string { return "move_item" }
func (c MoveItem) apply(w *working) error {
	i, err := w.find(c.Name(), c.ID)
	if err != nil {
		return err
	}
	if !c.To.Finite() {
		return &ValidationError{Op: c.Name(), Item: c.ID, Field: "position", Reason: "must be finite"}
	}
	w.items[i].Position = c.To
	return nil
}

// ResizeItem sets an item's size.
type ResizeItem struct {
	ID   domain.ItemID
	Size vector.Size
}

func (ResizeItem) Name() string { return "resize_item" }
func (c ResizeItem) apply(w *working) error {
	i, err := w.find(c.Name(), c.ID)
	if err != nil {
		return err
	}
	if err := domain.ValidateSize(w.items[i].Content, c.Size); err != nil {
		return invalidField(c.Name(), c.ID, err)
	}
	w.items[i].Size = c.Size
	return nil
}

// TransformItem sets position and size together, as a corner resize does.
type TransformItem struct {
	ID       domain.ItemID
	Position vector.Pt
	Size     vector.Size
}

func (TransformItem) Name() string { return "transform_item" }
func (c TransformItem) apply(w *working) error {
	i, err := w.find(c.Name(), c.ID)
	if err != nil {
		return err
	}
	it := w.items[i]
	it.Position, it.Size = c.Position, c.Size
	if err := it.Validate(); err != nil {
		return invalidField(c.Name(), c.ID, err)
	}
	w.items[i] = it
	return nil
}

// UpdateContent replaces an item's content, e.g. after editing a text box. The
// content kind may change; the size is kept.
type UpdateContent struct {
	ID      domain.ItemID
	Content domain.Content
}

func (UpdateContent) Name() string { return "update_content" }
func (c UpdateContent) apply(w *working) error {
	i, err := w.find(c.Name(), c.ID)
	if err != nil {
		return err
	}
	it := w.items[i]
	it.Content = c.Content
	if err := it.Validate(); err != nil {
		return invalidField(c.Name(), c.ID, err)
	}
	w.items[i] = it
	return nil
}

// DeleteItems removes every listed item. All ids must exist.
type DeleteItems struct{ IDs []domain.ItemID }

func (DeleteItems) Name() string { return "delete_items" }
func (c DeleteItems) apply(w *working) error {
	if len(c.IDs) == 0 {
		return &ValidationError{Op: c.Name(), Field: "ids", Reason: "empty"}
	}
	for _, id := range c.IDs {
		if _, err := w.find(c.Name(), id); err != nil {
			return err
		}
	}
	w.items = slices.DeleteFunc(w.items, func(it domain.CanvasItem) bool { return slices.Contains(c.IDs, it.ID) })
	return nil
}

// BringToFront moves an item to the top of the z-order.
type BringToFront struct{ ID domain.ItemID }

func (BringToFront) Name() string { return "bring_to_front" }
func (c BringToFront) apply(w *working) error {
	i, err := w.find(c.Name(), c.ID)
	if err != nil {
		return err
	}
	it := w.items[i]
	w.items = append(slices.Delete(w.items, i, i+1), it)
	return nil
}

// SetViewport replaces the pan offset and zoom.
type SetViewport struct{ Viewport domain.Viewport }

func (SetViewport) Name() string { return "set_viewport" }
func (c SetViewport) apply(w *working) error {
	if err := c.Viewport.Validate(); err != nil {
		return invalidField(c.Name(), 0, err)
	}
	w.viewport = c.Viewport
	return nil
}

// Batch applies several commands as one step with one history entry. If any
// command fails, none take effect.
type Batch struct{ Commands []Command }

func (Batch) Name() string { return "batch" }
func (c Batch) apply(w *working) error {
	if len(c.Commands) == 0 {
		return &ValidationError{Op: c.Name(), Reason: "no commands"}
	}
	for _, cmd := range c.Commands {
		if cmd == nil {
			return &ValidationError{Op: c.Name(), Reason: "nil command"}
		}
		if err := cmd.apply(w); err != nil {
			return err
		}
	}
	return nil
}
