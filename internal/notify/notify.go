/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package notify carries user-visible failures from the core to whatever surfaces
// them. The core never renders anything itself.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	applog "moodboard/internal/log"
)

type Kind int

const (
	// IoFailure is a failed flush. The edit is kept in memory and retried.
	IoFailure Kind = iota + 1
	// ValidationFailure is a rejected command.
	ValidationFailure
)

func (k Kind) String() string {
	switch k {
	case IoFailure:
		return "io_failure"
	case ValidationFailure:
		return "validation_failure"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind  Kind
	Board string
	Err   error
	At    time.Time
}

// Notifier receives events. Implementations must not block the caller.
type Notifier interface {
	Notify(Event)
}

// Func adapts a function to Notifier.
type Func func(Event)

func (f Func) Notify(e Event) { f(e) }

// LogNotifier writes events to the application log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(e Event) {
	l := n.Logger
	if l == nil {
		l = applog.WithComponent("notify")
	}
	level := slog.LevelWarn
	if e.Kind == IoFailure {
		level = slog.LevelError
	}
	l.Log(context.Background(), level, "board notification",
		slog.String("kind", e.Kind.String()),
		slog.String("board", e.Board),
		slog.Any("err", e.Err))
}

// Recorder keeps every event. It backs the UI toast feed and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Drain returns the recorded events and forgets them.
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}
