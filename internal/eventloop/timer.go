/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package eventloop

import (
	"sync"
	"time"
)

// Timer is a callback registered on a loop. The callback always runs on the loop.
// Stop and Reset may be called from anywhere; a tick already queued when the timer
// is stopped or reset is discarded.
type Timer struct {
	loop   *Loop
	fn     func()
	period time.Duration

	mu      sync.Mutex
	t       *time.Timer
	gen     uint64
	stopped bool
}

// Every calls fn on the loop every d until the timer is stopped.
func (l *Loop) Every(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, fn: fn, period: d}
	t.mu.Lock()
	t.arm(d)
	t.mu.Unlock()
	return t
}

// After calls fn on the loop once, after d.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, fn: fn}
	t.mu.Lock()
	t.arm(d)
	t.mu.Unlock()
	return t
}

// arm must be called with t.mu held.
func (t *Timer) arm(d time.Duration) {
	t.gen++
	g := t.gen
	t.t = time.AfterFunc(d, func() { t.loop.Post(func() { t.fire(g) }) })
}

func (t *Timer) fire(g uint64) {
	t.mu.Lock()
	if t.stopped || g != t.gen {
		t.mu.Unlock()
		return
	}
	if t.period > 0 {
		t.arm(t.period)
	} else {
		t.stopped = true
	}
	t.mu.Unlock()
	t.fn()
}

// Stop cancels the timer. It reports whether the timer was still active.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.gen++
	t.t.Stop()
	return true
}

// Reset re-arms the timer to fire after d. For a periodic timer d also becomes
// the new period. A stopped timer is restarted.
func (t *Timer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.t.Stop()
	if t.period > 0 {
		t.period = d
	}
	t.stopped = false
	t.arm(d)
}

// Active reports whether the timer will fire again.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped
}
