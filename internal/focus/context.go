/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package focus decides which interaction context receives keyboard input. Contexts
// are totally ordered by priority and a lower one can never take focus from a
// higher one.
package focus

// Context is an interaction region that can own keyboard input. Larger values
// have higher priority.
type Context uint8

const (
	Canvas Context = iota
	Landing
	Preview
	CodeEditor
	TextboxEditing
	CommandPalette
	Modal
)

// Contexts lists every context, highest priority first.
var Contexts = []Context{Modal, CommandPalette, TextboxEditing, CodeEditor, Preview, Landing, Canvas}

var keyContexts = [...]string{
	Canvas:         "Canvas",
	Landing:        "Landing",
	Preview:        "Preview",
	CodeEditor:     "CodeEditor",
	TextboxEditing: "TextboxEditing",
	CommandPalette: "CommandPalette",
	Modal:          "Modal",
}

// Priority orders contexts; there are no ties.
func (c Context) Priority() int { return int(c) }

func (c Context) Valid() bool { return int(c) < len(keyContexts) }

// KeyContext is the stable identifier key bindings are registered under.
func (c Context) KeyContext() string {
	if !c.Valid() {
		return "Unknown"
	}
	return keyContexts[c]
}

func (c Context) String() string { return c.KeyContext() }

// CapturesTextInput reports whether typing in this context produces text, so
// single-key shortcuts must not fire.
func (c Context) CapturesTextInput() bool {
	switch c {
	case CommandPalette, TextboxEditing, CodeEditor, Preview, Landing:
		return true
	}
	return false
}

// ParseContext resolves a key context identifier.
func ParseContext(s string) (Context, bool) {
	for i, k := range keyContexts {
		if k == s {
			return Context(i), true
		}
	}
	return Canvas, false
}
