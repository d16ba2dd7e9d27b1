/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app is the application root. It owns configuration, storage, the event
// loop and one Session per open board, and wires them together explicitly.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"moodboard/internal/board"
	"moodboard/internal/config"
	"moodboard/internal/eventloop"
	"moodboard/internal/focus"
	applog "moodboard/internal/log"
	"moodboard/internal/metrics"
	"moodboard/internal/notify"
	"moodboard/internal/persist"
	"moodboard/internal/storage"
)

var (
	// ErrUnsaved is returned by Close when the final flush failed. The board stays open.
	ErrUnsaved = errors.New("board has unsaved changes")
	// ErrTrashed is returned when opening a board that is in the trash.
	ErrTrashed = errors.New("board is in the trash")
)

// maxParallelFlushes bounds FlushAll.
const maxParallelFlushes = 4

type Options struct {
	Config  config.AppConfig
	Secrets config.Secrets

	// Store and Index override the storage selected by Config.Storage. Both must be
	// set together; the App does not close storage it did not open.
	Store storage.Store
	Index *storage.Index

	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Loop     *eventloop.Loop
	Now      func() time.Time
}

// App must be used from its event loop, except where a method says otherwise.
type App struct {
	cfg      config.AppConfig
	store    storage.Store
	index    *storage.Index
	owns     bool
	notifier notify.Notifier
	metrics  *metrics.Metrics
	loop     *eventloop.Loop
	now      func() time.Time
	log      *slog.Logger

	sessions map[string]*Session
}

// New opens the storage selected by the config unless Options supplies it.
func New(ctx context.Context, opts Options) (*App, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	a := &App{
		cfg:      opts.Config,
		store:    opts.Store,
		index:    opts.Index,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		loop:     opts.Loop,
		now:      opts.Now,
		log:      applog.WithComponent("app"),
		sessions: map[string]*Session{},
	}
	if a.notifier == nil {
		a.notifier = notify.LogNotifier{}
	}
	if a.loop == nil {
		a.loop = eventloop.New()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.store == nil || a.index == nil {
		st, ix, err := storage.Open(ctx, opts.Config.Storage, opts.Secrets)
		if err != nil {
			return nil, err
		}
		a.store, a.index, a.owns = st, ix, true
	}
	return a, nil
}

func (a *App) Config() config.AppConfig  { return a.cfg }
func (a *App) Loop() *eventloop.Loop     { return a.loop }
func (a *App) Index() *storage.Index     { return a.index }
func (a *App) Store() storage.Store      { return a.store }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Create registers a new board and opens it.
func (a *App) Create(ctx context.Context, name string) (*Session, error) {
	meta, err := a.index.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	b := board.New(meta.ID, a.boardOptions())
	data, err := board.Encode(b.Document())
	if err != nil {
		return nil, err
	}
	if err := a.store.Write(ctx, meta.ID, data); err != nil {
		return nil, &persist.IOError{Board: meta.ID, Err: err}
	}
	a.log.Info("board created", slog.String("board", meta.ID), slog.String("name", meta.Name))
	return a.attach(meta, b), nil
}

// Open returns the session of id, loading the board if it is not open yet. A board
// whose document was never written opens empty.
func (a *App) Open(ctx context.Context, id string) (*Session, error) {
	if s, ok := a.sessions[id]; ok {
		return s, nil
	}
	l := applog.WithOperation(a.log, "open").With(slog.String("board", id))
	meta, err := a.index.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.Trashed() {
		return nil, fmt.Errorf("open %s: %w", id, ErrTrashed)
	}
	b, err := a.load(ctx, id)
	if err != nil {
		l.Error("load failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("board opened", slog.Int("items", b.Snapshot().Len()))
	return a.attach(meta, b), nil
}

// Load reads and decodes a board without opening a session.
func (a *App) Load(ctx context.Context, id string) (*board.Board, error) {
	return a.load(ctx, id)
}

func (a *App) load(ctx context.Context, id string) (*board.Board, error) {
	ctx = applog.ContextWithBoard(ctx, id)
	data, err := a.store.Read(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return board.New(id, a.boardOptions()), nil
	}
	if err != nil {
		return nil, &persist.IOError{Board: id, Err: err}
	}
	doc, err := board.Decode(data)
	if err != nil {
		return nil, err
	}
	if doc.ID != id {
		a.log.WarnContext(ctx, "document id does not match index", slog.String("doc_id", doc.ID))
		doc.ID = id
	}
	b, repaired := board.Open(doc, a.boardOptions())
	if repaired {
		a.log.WarnContext(ctx, "board repaired on load")
	}
	return b, nil
}

func (a *App) boardOptions() board.Options {
	return board.Options{
		HistoryCapacity: a.cfg.History.Capacity,
		HistoryMaxBytes: a.cfg.History.MaxBytes,
		Now:             a.now,
	}
}

func (a *App) attach(meta storage.BoardMeta, b *board.Board) *Session {
	s := &Session{app: a, Meta: meta, Board: b}
	s.Focus = focus.New(focus.WithSuppressedHook(func(requested, _ focus.Context) {
		a.metrics.Suppressed(requested.String())
	}))
	s.Saver = persist.New(b, persist.Config{
		Store:    a.store,
		Dispatch: a.loop,
		Debounce: a.cfg.Persistence.Debounce(),
		Tick:     a.cfg.Persistence.Tick(),
		Notifier: a.notifier,
		Metrics:  a.metrics,
		Index:    a.index,
		Now:      a.now,
	})
	s.Saver.Start(a.loop)
	a.sessions[meta.ID] = s
	a.metrics.BoardOpened()
	return s
}

// Session returns the open session of id.
func (a *App) Session(id string) (*Session, bool) {
	s, ok := a.sessions[id]
	return s, ok
}

// Sessions returns the open sessions ordered by board name.
func (a *App) Sessions() []*Session {
	out := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y *Session) int {
		if c := strings.Compare(x.Meta.Name, y.Meta.Name); c != 0 {
			return c
		}
		return strings.Compare(x.Meta.ID, y.Meta.ID)
	})
	return out
}

// Close flushes and closes the board. If the flush fails the session stays open
// and the error wraps both ErrUnsaved and the *persist.IOError.
func (a *App) Close(ctx context.Context, id string) error {
	s, ok := a.sessions[id]
	if !ok {
		return nil
	}
	if err := s.Saver.FlushNow(ctx); err != nil {
		a.log.Error("close: final flush failed", slog.String("board", id), slog.Any("err", err))
		return fmt.Errorf("close %s: %w: %w", id, ErrUnsaved, err)
	}
	s.Saver.Stop()
	s.Focus.Reset()
	delete(a.sessions, id)
	a.metrics.BoardClosed()
	a.log.Info("board closed", slog.String("board", id))
	return nil
}

// CloseAll closes every session, keeping the ones that could not be saved.
func (a *App) CloseAll(ctx context.Context) error {
	var errs []error
	for _, s := range a.Sessions() {
		if err := a.Close(ctx, s.Meta.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FlushAll writes every dirty board now. Writes run in parallel; the states are
// captured and the results recorded on the calling goroutine.
func (a *App) FlushAll(ctx context.Context) error {
	var flushes []*persist.Flush
	var errs []error
	for _, s := range a.Sessions() {
		f, err := s.Saver.Capture()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f != nil {
			flushes = append(flushes, f)
		}
	}
	results := make([]error, len(flushes))
	var g errgroup.Group
	g.SetLimit(maxParallelFlushes)
	for i, f := range flushes {
		g.Go(func() error {
			results[i] = f.Write(ctx)
			return nil
		})
	}
	_ = g.Wait()
	for i, f := range flushes {
		f.Done(results[i])
	}
	return errors.Join(append(errs, results...)...)
}

// ApplyConfig adopts a reloaded configuration. History, persistence and logging
// settings take effect immediately; storage changes need a restart.
func (a *App) ApplyConfig(cfg config.AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Storage != a.cfg.Storage {
		a.log.Warn("storage settings changed; restart to apply")
		cfg.Storage = a.cfg.Storage
	}
	if cfg.Logging.Level != a.cfg.Logging.Level {
		applog.SetLevel(cfg.Logging.Level)
	}
	for _, s := range a.sessions {
		s.Board.SetHistoryCapacity(cfg.History.Capacity)
		s.Saver.SetDebounce(cfg.Persistence.Debounce())
		s.Saver.SetTick(cfg.Persistence.Tick())
	}
	a.cfg = cfg
	a.log.Info("configuration applied")
	return nil
}

// PurgeTrash removes boards trashed longer than the retention period, together
// with their documents.
func (a *App) PurgeTrash(ctx context.Context) ([]string, error) {
	ids, err := a.index.Purge(ctx, a.cfg.Index.TrashRetention())
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := a.store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			a.log.Warn("delete purged document failed", slog.String("board", id), slog.Any("err", err))
		}
	}
	if len(ids) > 0 {
		a.log.Info("trash purged", slog.Int("boards", len(ids)))
	}
	return ids, nil
}

// Shutdown flushes and closes every board, then releases storage the App opened.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.CloseAll(ctx)
	if a.owns {
		err = errors.Join(err, a.store.Close(), a.index.Close())
	}
	return err
}
