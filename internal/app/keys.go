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
	"strings"

	"moodboard/internal/board"
	"moodboard/internal/focus"
	"moodboard/internal/vector"
)

// Key is one key press. Ctrl stands for the platform command modifier.
type Key struct {
	Name  string
	Ctrl  bool
	Shift bool
	Alt   bool
}

// ParseKey reads chords such as "ctrl+shift+z", "cmd-k" or "delete".
func ParseKey(s string) Key {
	var k Key
	s = strings.ToLower(strings.TrimSpace(s))
	// A trailing separator is the key itself, as in "ctrl++" or "cmd--".
	for _, sep := range []string{"++", "--"} {
		if strings.HasSuffix(s, sep) && len(s) > 2 {
			k.Name = sep[:1]
			s = s[:len(s)-2]
			break
		}
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == '-' })
	for i, p := range parts {
		switch p {
		case "ctrl", "cmd", "super":
			k.Ctrl = true
		case "shift":
			k.Shift = true
		case "alt", "option":
			k.Alt = true
		default:
			if k.Name == "" || i == len(parts)-1 {
				k.Name = p
			}
		}
	}
	return k
}

func (k Key) String() string {
	var b strings.Builder
	if k.Ctrl {
		b.WriteString("ctrl+")
	}
	if k.Alt {
		b.WriteString("alt+")
	}
	if k.Shift {
		b.WriteString("shift+")
	}
	b.WriteString(k.Name)
	return b.String()
}

const (
	nudgeStep      = 10
	nudgeStepLarge = 50
)

// HandleKey routes a key press through the focus state. Shortcuts that act on the
// canvas only fire while the canvas owns input; command palette and escape work
// in every context. handled is false when the key was left to the focused widget.
// ErrNoHistory from undo and redo and ErrSuppressed from a blocked focus request
// are swallowed: the key was consumed and there is nothing to report.
func (s *Session) HandleKey(ctx context.Context, k Key) (handled bool, err error) {
	if handled, err = s.handleGlobal(ctx, k); handled {
		if errors.Is(err, focus.ErrSuppressed) {
			err = nil
		}
		return handled, err
	}
	if k.Name == "escape" && s.Focus.IsInputActive() {
		s.Focus.Release(s.Focus.Active())
		return true, nil
	}
	if s.Focus.IsInputActive() {
		return false, nil
	}
	handled, err = s.handleCanvas(k)
	if errors.Is(err, board.ErrNoHistory) {
		err = nil
	}
	return handled, err
}

func (s *Session) handleGlobal(ctx context.Context, k Key) (bool, error) {
	if !k.Ctrl {
		return false, nil
	}
	switch {
	case k.Name == "k" && !k.Shift:
		return true, s.TogglePalette()
	case k.Name == "s" && !k.Shift:
		if s.Focus.Active() != focus.Canvas && s.Focus.Active() != focus.CodeEditor {
			return false, nil
		}
		return true, s.Save(ctx)
	case s.Focus.CapturesTextInput():
		// Text widgets own their zoom and editing chords.
		return false, nil
	case k.Name == "=" || k.Name == "+":
		return true, s.Zoom(zoomStep)
	case k.Name == "-":
		return true, s.Zoom(1 / zoomStep)
	case k.Name == "0":
		return true, s.ZoomReset()
	}
	return false, nil
}

func (s *Session) handleCanvas(k Key) (bool, error) {
	if k.Ctrl {
		switch {
		case k.Name == "z" && k.Shift, k.Name == "y" && !k.Shift:
			return true, s.Redo()
		case k.Name == "z":
			return true, s.Undo()
		case k.Name == "d":
			return true, s.DuplicateSelected()
		case k.Name == "a":
			s.SelectAll()
			return true, nil
		}
		return false, nil
	}
	step := float32(nudgeStep)
	if k.Shift {
		step = nudgeStepLarge
	}
	switch k.Name {
	case "delete", "backspace":
		return true, s.DeleteSelected()
	case "escape":
		s.selection = nil
		return true, nil
	case "up":
		return true, s.Nudge(vector.Pt{Y: -step})
	case "down":
		return true, s.Nudge(vector.Pt{Y: step})
	case "left":
		return true, s.Nudge(vector.Pt{X: -step})
	case "right":
		return true, s.Nudge(vector.Pt{X: step})
	}
	return false, nil
}

// TogglePalette opens the command palette, or closes it when it is active. Opening
// it under a modal is suppressed.
func (s *Session) TogglePalette() error {
	if s.Focus.Active() == focus.CommandPalette {
		s.Focus.Release(focus.CommandPalette)
		return nil
	}
	return s.Focus.Focus(focus.CommandPalette)
}
