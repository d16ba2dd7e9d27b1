/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package persist writes dirty boards to storage without blocking the event loop.
// Each open board gets one Scheduler driven by a periodic tick; a tick starts a
// flush once the board has been quiet for the debounce window.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moodboard/internal/board"
	"moodboard/internal/domain"
	"moodboard/internal/eventloop"
	applog "moodboard/internal/log"
	"moodboard/internal/metrics"
	"moodboard/internal/notify"
	"moodboard/internal/storage"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultTick     = 100 * time.Millisecond
)

// ErrIO is matched by every *IOError.
var ErrIO = errors.New("persistence failure")

// IOError reports a failed flush. The board keeps its edits and stays dirty.
type IOError struct {
	Board string
	Err   error
}

func (e *IOError) Error() string        { return fmt.Sprintf("flush board %s: %v", e.Board, e.Err) }
func (e *IOError) Unwrap() error        { return e.Err }
func (e *IOError) Is(target error) bool { return target == ErrIO }

// Dispatcher delivers a function to the event loop. *eventloop.Loop implements it.
type Dispatcher interface {
	Post(fn func())
}

// Toucher records a successful save in the board index.
type Toucher interface {
	Touch(ctx context.Context, id string, t time.Time) error
}

type Config struct {
	Store    storage.Store
	Dispatch Dispatcher

	Debounce time.Duration
	Tick     time.Duration

	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Index    Toucher

	// Run starts background work. It defaults to a new goroutine per flush.
	Run func(fn func())
	Now func() time.Time
}

// Scheduler flushes one board. Tick, FlushNow, Start, Stop and SetDebounce must be
// called on the event loop.
type Scheduler struct {
	b   *board.Board
	cfg Config
	log *slog.Logger

	inFlight bool
	failing  bool
	timer    *eventloop.Timer

	// writeMu serializes writes of this board; persisted is the newest revision stored.
	writeMu   sync.Mutex
	persisted uint64
}

func New(b *board.Board, cfg Config) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Run == nil {
		cfg.Run = func(fn func()) { go fn() }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.LogNotifier{}
	}
	return &Scheduler{
		b:   b,
		cfg: cfg,
		log: applog.WithComponent("persist").With(slog.String("board", b.ID())),
	}
}

// InFlight reports whether a background flush is running.
func (s *Scheduler) InFlight() bool { return s.inFlight }

// Failing reports whether the most recent flush failed.
func (s *Scheduler) Failing() bool { return s.failing }

func (s *Scheduler) Debounce() time.Duration { return s.cfg.Debounce }

// SetDebounce changes the quiet period required before a flush.
func (s *Scheduler) SetDebounce(d time.Duration) {
	if d > 0 {
		s.cfg.Debounce = d
	}
}

// Start registers the periodic tick on loop. Calling Start again replaces the timer.
func (s *Scheduler) Start(loop *eventloop.Loop) {
	s.Stop()
	s.timer = loop.Every(s.cfg.Tick, func() { s.Tick(s.cfg.Now()) })
}

// Stop cancels the periodic tick. A flush in flight still completes.
func (s *Scheduler) Stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// SetTick changes the tick period of a started scheduler.
func (s *Scheduler) SetTick(d time.Duration) {
	if d <= 0 {
		return
	}
	s.cfg.Tick = d
	if s.timer != nil {
		s.timer.Reset(d)
	}
}

// Tick starts a background flush when the board is dirty, has been quiet for the
// debounce window, no flush is in flight and no gesture is open.
func (s *Scheduler) Tick(now time.Time) {
	if s.inFlight || !s.b.Dirty() || s.b.InGesture() {
		return
	}
	if now.Sub(s.b.LastChange()) < s.cfg.Debounce {
		return
	}
	s.begin()
}

func (s *Scheduler) begin() {
	snap, nextID, rev := s.b.Snapshot(), s.b.NextItemID(), s.b.Revision()
	id := s.b.ID()
	s.inFlight = true
	start := s.cfg.Now()
	s.cfg.Run(func() {
		err := s.write(context.Background(), id, snap, nextID, rev)
		d := s.cfg.Now().Sub(start)
		s.cfg.Dispatch.Post(func() { s.complete(rev, err, d) })
	})
}

// write encodes and stores one snapshot. It runs off the loop and only reads the
// immutable snapshot. A revision older than what is already stored is skipped.
func (s *Scheduler) write(ctx context.Context, id string, snap *board.Snapshot, nextID domain.ItemID, rev uint64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if rev <= s.persisted {
		s.cfg.Metrics.FlushStale()
		return nil
	}
	data, err := board.Encode(board.NewDocument(id, snap, nextID))
	if err != nil {
		return err
	}
	if err := s.cfg.Store.Write(ctx, id, data); err != nil {
		return err
	}
	s.persisted = rev
	if s.cfg.Index != nil {
		if err := s.cfg.Index.Touch(ctx, id, s.cfg.Now()); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("index touch failed", slog.Any("err", err))
		}
	}
	return nil
}

// complete runs on the loop when a background flush finishes.
func (s *Scheduler) complete(rev uint64, err error, d time.Duration) {
	s.inFlight = false
	if err != nil {
		s.fail(err, d)
		return
	}
	s.cfg.Metrics.FlushOK(d)
	if s.failing {
		s.log.Info("flush recovered")
	}
	s.failing = false
	if s.b.MarkSaved(rev) {
		s.log.Debug("board saved", slog.Uint64("rev", rev), slog.Duration("took", d))
	}
}

func (s *Scheduler) fail(err error, d time.Duration) {
	s.cfg.Metrics.FlushFailed(d)
	ioErr := &IOError{Board: s.b.ID(), Err: err}
	if s.failing {
		// Still the same failure streak: the user already knows.
		s.log.Debug("flush failed again", slog.Any("err", err))
		return
	}
	s.failing = true
	s.log.Error("flush failed", slog.Any("err", err))
	s.cfg.Notifier.Notify(notify.Event{Kind: notify.IoFailure, Board: s.b.ID(), Err: ioErr, At: s.cfg.Now()})
}

// Flush is a snapshot captured for a synchronous write. Write may run on any
// goroutine; Done must run on the loop.
type Flush struct {
	s      *Scheduler
	snap   *board.Snapshot
	nextID domain.ItemID
	rev    uint64
	start  time.Time
}

// Capture prepares a synchronous flush of the current state, committing an open
// gesture first so the user's visible state is what gets written. It returns nil
// when the board is clean after that.
func (s *Scheduler) Capture() (*Flush, error) {
	if s.b.InGesture() {
		if _, err := s.b.CommitGesture(); err != nil {
			return nil, err
		}
	}
	if !s.b.Dirty() {
		return nil, nil
	}
	return &Flush{s: s, snap: s.b.Snapshot(), nextID: s.b.NextItemID(), rev: s.b.Revision(), start: s.cfg.Now()}, nil
}

// Write stores the captured snapshot. Failures are returned as *IOError.
func (f *Flush) Write(ctx context.Context) error {
	if err := f.s.write(ctx, f.s.b.ID(), f.snap, f.nextID, f.rev); err != nil {
		return &IOError{Board: f.s.b.ID(), Err: err}
	}
	return nil
}

// Done records the outcome of Write on the loop.
func (f *Flush) Done(err error) {
	d := f.s.cfg.Now().Sub(f.start)
	if err != nil {
		f.s.cfg.Metrics.FlushFailed(d)
		return
	}
	f.s.cfg.Metrics.FlushOK(d)
	f.s.failing = false
	f.s.b.MarkSaved(f.rev)
}

// FlushNow writes the current state synchronously, regardless of the debounce window.
// It is used when a board closes and on shutdown. A clean board is not written.
func (s *Scheduler) FlushNow(ctx context.Context) error {
	f, err := s.Capture()
	if f == nil || err != nil {
		return err
	}
	err = f.Write(ctx)
	f.Done(err)
	return err
}
