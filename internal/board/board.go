/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package board holds the live state of one open board: its items and viewport,
// the undo history of committed snapshots and the dirty flag the persistence
// scheduler watches. A Board is owned by the event loop and has no locks.
package board

import (
	"log/slog"
	"time"

	"moodboard/internal/domain"
	applog "moodboard/internal/log"
	"moodboard/internal/undo"
	"moodboard/internal/vector"
)

// Options tune a Board. Zero values select the defaults.
type Options struct {
	// HistoryCapacity bounds the number of snapshots kept for undo.
	HistoryCapacity int
	// HistoryMaxBytes softly bounds the estimated memory of those snapshots. 0 disables it.
	HistoryMaxBytes int
	// Now is the clock used for last-change times.
	Now func() time.Time
}

// Board is the in-memory state of one open board.
type Board struct {
	id      string
	live    *Snapshot
	history *undo.Log[*Snapshot]
	nextID  domain.ItemID

	// used holds every id committed to the board since it was opened.
	used map[domain.ItemID]struct{}

	dirty      bool
	lastChange time.Time
	revision   uint64

	gesture *gesture
	now     func() time.Time
	log     *slog.Logger
}

// New returns an empty board.
func New(id string, opts Options) *Board {
	return newBoard(id, emptySnapshot, 1, opts)
}

func newBoard(id string, s *Snapshot, nextID domain.ItemID, opts Options) *Board {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := &Board{
		id:     id,
		live:   s,
		nextID: max(nextID, 1),
		used:   make(map[domain.ItemID]struct{}, len(s.items)),
		now:    opts.Now,
		log:    applog.WithComponent("board").With(slog.String("board", id)),
	}
	b.history = undo.New(undo.Config[*Snapshot]{
		Capacity: opts.HistoryCapacity,
		MaxBytes: opts.HistoryMaxBytes,
		Size:     estimateSize,
	})
	for _, it := range s.items {
		b.used[it.ID] = struct{}{}
	}
	// The opened state is the first entry so the first change can be undone.
	b.history.Push(s)
	return b
}

func (b *Board) ID() string { return b.id }

// Snapshot returns the live state. It is immutable and safe to hand to another goroutine.
func (b *Board) Snapshot() *Snapshot { return b.live }

func (b *Board) Items() []domain.CanvasItem                      { return b.live.Items() }
func (b *Board) Item(id domain.ItemID) (domain.CanvasItem, bool) { return b.live.Item(id) }
func (b *Board) Viewport() domain.Viewport                       { return b.live.viewport }

// Dirty reports whether the board has changes that have not been persisted.
func (b *Board) Dirty() bool           { return b.dirty }
func (b *Board) LastChange() time.Time { return b.lastChange }

// Revision increases on every committed change, including undo and redo.
func (b *Board) Revision() uint64 { return b.revision }

// MarkSaved records that the state at revision rev has been persisted. The dirty
// flag is cleared only if nothing changed since; it reports whether it was.
func (b *Board) MarkSaved(rev uint64) bool {
	if rev != b.revision {
		return false
	}
	b.dirty = false
	return true
}

// NextItemID reports the id the next NewItem call will hand out.
func (b *Board) NextItemID() domain.ItemID { return b.nextID }

// NewItem builds an item for content at pos with a fresh id and the content's
// default size. The id is reserved even if the item is never added, so two
// NewItem calls never return the same id.
func (b *Board) NewItem(content domain.Content, pos vector.Pt) domain.CanvasItem {
	it := domain.NewItem(b.nextID, content, pos)
	b.nextID++
	return it
}

// Apply validates cmd and commits it as one undoable step. On error the board is
// unchanged and the error matches ErrValidation.
func (b *Board) Apply(cmd Command) error {
	if cmd == nil {
		return &ValidationError{Op: "apply", Reason: "nil command"}
	}
	if b.gesture != nil {
		return &ValidationError{Op: cmd.Name(), Reason: "a gesture is in progress"}
	}
	next, nextID, err := b.run(b.live, cmd)
	if err != nil {
		b.log.Debug("command rejected", slog.String("cmd", cmd.Name()), slog.Any("err", err))
		return err
	}
	b.nextID = nextID
	b.commit(next)
	return nil
}

func (b *Board) run(base *Snapshot, cmd Command) (*Snapshot, domain.ItemID, error) {
	w := newWorking(base, b.nextID, b.used)
	if err := cmd.apply(w); err != nil {
		return nil, 0, err
	}
	for _, id := range w.added {
		b.used[id] = struct{}{}
	}
	return newSnapshot(w.items, w.viewport), max(w.nextID, b.nextID), nil
}

// commit makes s the live state and pushes it onto the history.
func (b *Board) commit(s *Snapshot) {
	b.live = s
	b.history.Push(s)
	b.touch()
}

func (b *Board) touch() {
	b.dirty = true
	b.lastChange = b.now()
	b.revision++
}

// Undo restores the previous snapshot. It returns ErrNoHistory at the oldest
// entry. An open gesture is cancelled first.
func (b *Board) Undo() error {
	b.CancelGesture()
	s, ok := b.history.Undo()
	if !ok {
		return ErrNoHistory
	}
	b.live = s
	b.touch()
	return nil
}

// Redo re-applies the next snapshot. It returns ErrNoHistory at the newest entry.
func (b *Board) Redo() error {
	b.CancelGesture()
	s, ok := b.history.Redo()
	if !ok {
		return ErrNoHistory
	}
	b.live = s
	b.touch()
	return nil
}

func (b *Board) CanUndo() bool   { return b.history.CanUndo() }
func (b *Board) CanRedo() bool   { return b.history.CanRedo() }
func (b *Board) HistoryLen() int { return b.history.Len() }

// SetHistoryCapacity changes the undo depth, evicting entries if it shrinks.
func (b *Board) SetHistoryCapacity(n int) { b.history.SetCapacity(n) }
