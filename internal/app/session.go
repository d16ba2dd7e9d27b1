/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"moodboard/internal/board"
	"moodboard/internal/domain"
	"moodboard/internal/focus"
	"moodboard/internal/media"
	"moodboard/internal/notify"
	"moodboard/internal/persist"
	"moodboard/internal/storage"
	"moodboard/internal/vector"
)

// DefaultScreen is the canvas area assumed until the UI reports its size.
var DefaultScreen = vector.Size{W: 1280, H: 800}

// Session is one open board with its own focus state and persistence scheduler.
type Session struct {
	app *App

	Meta  storage.BoardMeta
	Board *board.Board
	Focus *focus.Arbiter
	Saver *persist.Scheduler

	// Screen is the size of the canvas area in pixels.
	Screen    vector.Size
	selection []domain.ItemID
}

func (s *Session) ID() string { return s.Meta.ID }

// ScreenSize is Screen, or DefaultScreen before the UI has reported a size.
func (s *Session) ScreenSize() vector.Size {
	if s.Screen.Positive() {
		return s.Screen
	}
	return DefaultScreen
}

// Apply runs cmd as one undoable step. Rejected commands are counted and reported
// to the notifier; the board is unchanged.
func (s *Session) Apply(cmd board.Command) error {
	err := s.Board.Apply(cmd)
	s.report(cmd, err)
	if err == nil {
		s.pruneSelection()
	}
	return err
}

// UpdateGesture applies cmd provisionally to the open gesture.
func (s *Session) UpdateGesture(cmd board.Command) error {
	err := s.Board.UpdateGesture(cmd)
	s.report(cmd, err)
	return err
}

func (s *Session) report(cmd board.Command, err error) {
	if !errors.Is(err, board.ErrValidation) {
		return
	}
	name := "nil"
	if cmd != nil {
		name = cmd.Name()
	}
	s.app.metrics.ValidationFailed(name)
	s.app.notifier.Notify(notify.Event{Kind: notify.ValidationFailure, Board: s.ID(), Err: err, At: s.app.now()})
}

func (s *Session) Undo() error { return s.history("undo", s.Board.Undo) }
func (s *Session) Redo() error { return s.history("redo", s.Board.Redo) }

func (s *Session) history(op string, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	s.app.metrics.HistoryOp(op)
	s.pruneSelection()
	return nil
}

// AddFile places a dropped file at pos. ok is false for unsupported file types.
func (s *Session) AddFile(path string, pos vector.Pt) (id domain.ItemID, ok bool, err error) {
	c, ok := media.ContentForFile(path)
	if !ok {
		return 0, false, nil
	}
	id, err = s.add(c, pos)
	return id, true, err
}

// AddURL places a pasted URL at pos as a YouTube item or a link.
func (s *Session) AddURL(raw string, pos vector.Pt) (domain.ItemID, error) {
	return s.add(domain.ContentForURL(raw), pos)
}

// AddContent places c at pos with its default size.
func (s *Session) AddContent(c domain.Content, pos vector.Pt) (domain.ItemID, error) {
	return s.add(c, pos)
}

func (s *Session) add(c domain.Content, pos vector.Pt) (domain.ItemID, error) {
	it := s.Board.NewItem(c, pos)
	if err := s.Apply(board.AddItem{Item: it}); err != nil {
		return 0, err
	}
	s.selection = []domain.ItemID{it.ID}
	return it.ID, nil
}

// Selection returns the selected item ids in selection order.
func (s *Session) Selection() []domain.ItemID { return slices.Clone(s.selection) }

// Select replaces the selection, ignoring ids that are not on the board.
func (s *Session) Select(ids ...domain.ItemID) {
	s.selection = s.selection[:0]
	for _, id := range ids {
		if _, ok := s.Board.Item(id); ok && !slices.Contains(s.selection, id) {
			s.selection = append(s.selection, id)
		}
	}
}

func (s *Session) SelectAll() {
	s.selection = s.selection[:0]
	for _, it := range s.Board.Items() {
		s.selection = append(s.selection, it.ID)
	}
}

func (s *Session) pruneSelection() {
	s.selection = slices.DeleteFunc(s.selection, func(id domain.ItemID) bool {
		_, ok := s.Board.Item(id)
		return !ok
	})
}

// DeleteSelected removes the selected items in one step.
func (s *Session) DeleteSelected() error {
	if len(s.selection) == 0 {
		return nil
	}
	err := s.Apply(board.DeleteItems{IDs: slices.Clone(s.selection)})
	if err == nil {
		s.selection = nil
	}
	return err
}

// duplicateOffset is how far copies are shifted from their originals.
var duplicateOffset = vector.Pt{X: 20, Y: 20}

// DuplicateSelected copies the selected items and selects the copies.
func (s *Session) DuplicateSelected() error {
	if len(s.selection) == 0 {
		return nil
	}
	var cmds []board.Command
	var ids []domain.ItemID
	for _, id := range s.selection {
		it, ok := s.Board.Item(id)
		if !ok {
			continue
		}
		cp := s.Board.NewItem(it.Content, it.Position.Add(duplicateOffset))
		cp.Size = it.Size
		cmds = append(cmds, board.AddItem{Item: cp})
		ids = append(ids, cp.ID)
	}
	if err := s.Apply(board.Batch{Commands: cmds}); err != nil {
		return err
	}
	s.selection = ids
	return nil
}

// Nudge moves the selected items by d in one step.
func (s *Session) Nudge(d vector.Pt) error {
	if len(s.selection) == 0 {
		return nil
	}
	cmds := make([]board.Command, 0, len(s.selection))
	for _, id := range s.selection {
		if it, ok := s.Board.Item(id); ok {
			cmds = append(cmds, board.MoveItem{ID: id, To: it.Position.Add(d)})
		}
	}
	return s.Apply(board.Batch{Commands: cmds})
}

const zoomStep = 1.1

// Zoom scales the viewport around the centre of the canvas area.
func (s *Session) Zoom(factor float32) error {
	sc := s.ScreenSize()
	return s.Apply(s.Board.ZoomAround(factor, vector.Pt{X: sc.W / 2, Y: sc.H / 2}))
}

func (s *Session) ZoomReset() error {
	vp := s.Board.Viewport()
	vp.Zoom = domain.DefaultZoom
	return s.Apply(board.SetViewport{Viewport: vp})
}

// Save flushes the board immediately.
func (s *Session) Save(ctx context.Context) error {
	err := s.Saver.FlushNow(ctx)
	if err != nil {
		s.app.log.Error("save failed", slog.String("board", s.ID()), slog.Any("err", err))
	}
	return err
}
