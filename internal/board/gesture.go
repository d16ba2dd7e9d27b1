/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import "log/slog"

// gesture is an open drag, resize or pan. Updates change the live state without
// touching history; the net effect is committed as one step.
type gesture struct {
	base  *Snapshot
	steps int
}

// BeginGesture opens a gesture transaction. Apply is rejected until it is
// committed or cancelled.
func (b *Board) BeginGesture() error {
	if b.gesture != nil {
		return &ValidationError{Op: "begin_gesture", Reason: "a gesture is already in progress"}
	}
	b.gesture = &gesture{base: b.live}
	return nil
}

// InGesture reports whether a gesture is open.
func (b *Board) InGesture() bool { return b.gesture != nil }

// UpdateGesture applies cmd provisionally. The command is validated against the
// current live state; on error the live state is unchanged and the gesture stays open.
func (b *Board) UpdateGesture(cmd Command) error {
	if b.gesture == nil {
		return ErrNoGesture
	}
	if cmd == nil {
		return &ValidationError{Op: "update_gesture", Reason: "nil command"}
	}
	next, nextID, err := b.run(b.live, cmd)
	if err != nil {
		return err
	}
	b.live, b.nextID = next, nextID
	b.gesture.steps++
	return nil
}

// CommitGesture closes the gesture and records its net effect as one history
// entry. It reports false, and records nothing, when the live state ended up equal
// to the state the gesture started from.
func (b *Board) CommitGesture() (bool, error) {
	g := b.gesture
	if g == nil {
		return false, ErrNoGesture
	}
	b.gesture = nil
	if b.live.Equal(g.base) {
		b.live = g.base
		return false, nil
	}
	b.commit(b.live)
	b.log.Debug("gesture committed", slog.Int("updates", g.steps))
	return true, nil
}

// CancelGesture restores the state the gesture started from. It is a no-op when
// no gesture is open.
func (b *Board) CancelGesture() {
	if b.gesture == nil {
		return
	}
	b.live = b.gesture.base
	b.gesture = nil
}
