/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import "testing"

func TestUndoRedoBasic(t *testing.T) {
	l := New(Config[string]{Capacity: 10})
	if _, ok := l.Undo(); ok {
		t.Fatalf("undo on empty log must fail")
	}
	if _, ok := l.Redo(); ok {
		t.Fatalf("redo on empty log must fail")
	}
	l.Push("a")
	l.Push("b")
	if l.Len() != 2 || l.Cursor() != 1 {
		t.Fatalf("expected len=2 cursor=1, got len=%d cursor=%d", l.Len(), l.Cursor())
	}
	s, ok := l.Undo()
	if !ok || s != "a" {
		t.Fatalf("undo expected 'a', got ok=%v s=%q", ok, s)
	}
	if _, ok := l.Undo(); ok {
		t.Fatalf("undo past the oldest entry must fail")
	}
	s, ok = l.Redo()
	if !ok || s != "b" {
		t.Fatalf("redo expected 'b', got ok=%v s=%q", ok, s)
	}
	if _, ok := l.Redo(); ok {
		t.Fatalf("redo past the newest entry must fail")
	}
}

func TestPushTruncatesRedo(t *testing.T) {
	l := New(Config[int]{Capacity: 10})
	for i := 0; i < 5; i++ {
		l.Push(i)
	}
	l.Undo()
	l.Undo()
	l.Push(99)
	if l.Len() != 4 {
		t.Fatalf("expected redo entries dropped, len=%d", l.Len())
	}
	if l.CanRedo() {
		t.Fatalf("no redo after a new push")
	}
	if cur, _ := l.Current(); cur != 99 {
		t.Fatalf("current = %d", cur)
	}
	if s, _ := l.Undo(); s != 2 {
		t.Fatalf("undo after branch = %d, want 2", s)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	l := New(Config[int]{Capacity: 3})
	for i := 0; i < 10; i++ {
		l.Push(i)
		if l.Len() > 3 {
			t.Fatalf("len %d exceeds capacity", l.Len())
		}
	}
	steps := 0
	last := -1
	for {
		s, ok := l.Undo()
		if !ok {
			break
		}
		steps++
		last = s
	}
	if steps != 2 || last != 7 {
		t.Fatalf("expected 2 undo steps ending at 7, got %d ending at %d", steps, last)
	}
}

func TestSetCapacityShrinksAroundCursor(t *testing.T) {
	l := New(Config[int]{Capacity: 10})
	for i := 0; i < 6; i++ {
		l.Push(i)
	}
	// cursor at 1: history [0] behind, redo [2..5] ahead
	for i := 0; i < 4; i++ {
		l.Undo()
	}
	l.SetCapacity(3)
	if l.Len() != 3 {
		t.Fatalf("len=%d after shrink", l.Len())
	}
	if cur, _ := l.Current(); cur != 1 {
		t.Fatalf("cursor entry must survive shrink, got %d", cur)
	}
	if s, _ := l.Redo(); s != 2 {
		t.Fatalf("redo after shrink = %d", s)
	}
}

func TestMemoryCapNeverEvictsCursor(t *testing.T) {
	l := New(Config[string]{Capacity: 100, MaxBytes: 10, Size: func(s string) int { return len(s) }})
	l.Push("xxxxx")
	l.Push("yyyyy")
	l.Push("zzzzzzzzzzzz")
	total, n := l.Stats()
	if n != 1 || total != 12 {
		t.Fatalf("expected only the cursor entry to remain, got n=%d total=%d", n, total)
	}
	if cur, _ := l.Current(); cur != "zzzzzzzzzzzz" {
		t.Fatalf("current = %q", cur)
	}
}

func TestReset(t *testing.T) {
	l := New(Config[int]{})
	if l.Capacity() != DefaultCapacity {
		t.Fatalf("default capacity = %d", l.Capacity())
	}
	l.Push(1)
	l.Push(2)
	l.Reset(7)
	if l.Len() != 1 || l.CanUndo() || l.CanRedo() {
		t.Fatalf("reset should leave a single entry")
	}
	if cur, _ := l.Current(); cur != 7 {
		t.Fatalf("current = %d", cur)
	}
}
