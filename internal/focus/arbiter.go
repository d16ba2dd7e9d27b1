/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package focus

import (
	"errors"
	"log/slog"
	"slices"

	applog "moodboard/internal/log"
)

// ErrSuppressed is returned when a focus request loses to the active context.
// It is expected and should not be shown to the user.
var ErrSuppressed = errors.New("focus suppressed by higher priority context")

// Change describes one transition of the active context.
type Change struct {
	Previous Context
	Current  Context
}

func (c Change) FocusIn(ctx Context) bool  { return c.Current == ctx && c.Previous != ctx }
func (c Change) FocusOut(ctx Context) bool { return c.Previous == ctx && c.Current != ctx }

// Arbiter tracks the active context and the contexts it suspended. It must only be
// used from the event loop.
type Arbiter struct {
	active    Context
	suspended []Context

	subs         []func(Change)
	onSuppressed func(requested, active Context)
	log          *slog.Logger
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithSuppressedHook calls fn for every rejected focus request.
func WithSuppressedHook(fn func(requested, active Context)) Option {
	return func(a *Arbiter) { a.onSuppressed = fn }
}

// New returns an arbiter with Canvas active.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{active: Canvas, log: applog.WithComponent("focus")}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Active returns the context that currently receives input.
func (a *Arbiter) Active() Context { return a.active }

// Suspended returns a copy of the contexts waiting to regain focus, oldest first.
func (a *Arbiter) Suspended() []Context { return slices.Clone(a.suspended) }

// IsInputActive reports whether anything other than the canvas owns input.
func (a *Arbiter) IsInputActive() bool { return a.active != Canvas }

// CapturesTextInput reports whether the active context consumes typed text.
func (a *Arbiter) CapturesTextInput() bool { return a.active.CapturesTextInput() }

// KeyContext is the key binding context of the active context.
func (a *Arbiter) KeyContext() string { return a.active.KeyContext() }

// Subscribe registers fn to run after every change of the active context.
func (a *Arbiter) Subscribe(fn func(Change)) { a.subs = append(a.subs, fn) }

// Focus makes ctx active if its priority is at least that of the active context,
// suspending the previous one. Otherwise nothing changes and ErrSuppressed is
// returned. Focusing the active context is a no-op.
func (a *Arbiter) Focus(ctx Context) error {
	if ctx == a.active {
		return nil
	}
	if ctx.Priority() < a.active.Priority() {
		a.log.Debug("focus suppressed", slog.String("requested", ctx.String()), slog.String("active", a.active.String()))
		if a.onSuppressed != nil {
			a.onSuppressed(ctx, a.active)
		}
		return ErrSuppressed
	}
	a.suspended = slices.DeleteFunc(a.suspended, func(c Context) bool { return c == ctx })
	a.suspended = append(a.suspended, a.active)
	a.set(ctx)
	return nil
}

// Release hands focus back when ctx is the active context: the highest priority
// suspended context becomes active, or Canvas if none is left. Releasing a context
// that is not active does nothing.
func (a *Arbiter) Release(ctx Context) {
	if ctx != a.active {
		return
	}
	next := Canvas
	if len(a.suspended) > 0 {
		i := 0
		for j, c := range a.suspended {
			if c.Priority() > a.suspended[i].Priority() {
				i = j
			}
		}
		next = a.suspended[i]
		a.suspended = slices.Delete(a.suspended, i, i+1)
	}
	a.set(next)
}

// Reset drops every suspended context and returns focus to the canvas, as when
// switching boards.
func (a *Arbiter) Reset() {
	a.suspended = nil
	if a.active != Canvas {
		a.set(Canvas)
	}
}

func (a *Arbiter) set(ctx Context) {
	ch := Change{Previous: a.active, Current: ctx}
	a.active = ctx
	a.log.Debug("focus changed", slog.String("from", ch.Previous.String()), slog.String("to", ch.Current.String()))
	for _, fn := range a.subs {
		fn(ch)
	}
}
