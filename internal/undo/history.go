/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo provides the bounded, cursor-addressed history used for undo/redo.
package undo

// DefaultCapacity is used when Config.Capacity is not positive.
const DefaultCapacity = 100

// Config controls depth and memory caps.
type Config[S any] struct {
	// Capacity is the maximum number of entries kept, including the current one.
	Capacity int
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded, but never
	// the entry under the cursor. 0 disables it.
	MaxBytes int
	// Size estimates the memory held by an entry. Required when MaxBytes > 0.
	Size func(S) int
}

// Log is an ordered, bounded sequence of snapshots with a cursor. Entries past the
// cursor are redo history and are discarded by the next Push.
//
// A Log belongs to a single owner on the event loop and is not safe for concurrent use.
type Log[S any] struct {
	cfg     Config[S]
	entries []S
	sizes   []int
	cursor  int
	// accounting
	totalBytes int
}

func New[S any](cfg Config[S]) *Log[S] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Size == nil {
		cfg.MaxBytes = 0
	}
	return &Log[S]{cfg: cfg, cursor: -1}
}

// Push records s as the newest entry. Redo history past the cursor is dropped, the
// cursor moves to s, and the oldest entries are evicted while over capacity.
func (l *Log[S]) Push(s S) {
	l.truncateAfter(l.cursor)
	n := 0
	if l.cfg.Size != nil {
		n = l.cfg.Size(s)
	}
	l.entries = append(l.entries, s)
	l.sizes = append(l.sizes, n)
	l.totalBytes += n
	l.cursor = len(l.entries) - 1
	l.enforceCaps()
}

// Undo moves the cursor one entry back and returns the entry now under it.
// ok is false at the oldest entry; the log is unchanged then.
func (l *Log[S]) Undo() (s S, ok bool) {
	if l.cursor <= 0 {
		return s, false
	}
	l.cursor--
	return l.entries[l.cursor], true
}

// Redo moves the cursor one entry forward. ok is false at the newest entry.
func (l *Log[S]) Redo() (s S, ok bool) {
	if l.cursor < 0 || l.cursor >= len(l.entries)-1 {
		return s, false
	}
	l.cursor++
	return l.entries[l.cursor], true
}

// Current returns the entry under the cursor.
func (l *Log[S]) Current() (s S, ok bool) {
	if l.cursor < 0 {
		return s, false
	}
	return l.entries[l.cursor], true
}

// Reset drops every entry and seeds the log with s.
func (l *Log[S]) Reset(s S) {
	l.truncateAfter(-1)
	l.Push(s)
}

func (l *Log[S]) Len() int      { return len(l.entries) }
func (l *Log[S]) Cursor() int   { return l.cursor }
func (l *Log[S]) Capacity() int { return l.cfg.Capacity }
func (l *Log[S]) CanUndo() bool { return l.cursor > 0 }
func (l *Log[S]) CanRedo() bool { return l.cursor >= 0 && l.cursor < len(l.entries)-1 }

// Stats returns current sizes for diagnostics.
func (l *Log[S]) Stats() (totalBytes int, entries int) { return l.totalBytes, len(l.entries) }

// SetCapacity changes the depth cap and evicts immediately if needed.
func (l *Log[S]) SetCapacity(n int) {
	if n <= 0 {
		n = DefaultCapacity
	}
	l.cfg.Capacity = n
	l.enforceCaps()
}

// truncateAfter drops every entry with index > i.
func (l *Log[S]) truncateAfter(i int) {
	keep := i + 1
	if keep >= len(l.entries) {
		return
	}
	for j := keep; j < len(l.entries); j++ {
		l.totalBytes -= l.sizes[j]
	}
	clear(l.entries[keep:])
	l.entries = l.entries[:keep]
	l.sizes = l.sizes[:keep]
	if l.cursor >= keep {
		l.cursor = keep - 1
	}
}

// dropOldest removes the first k entries and shifts the cursor with them.
func (l *Log[S]) dropOldest(k int) {
	for j := 0; j < k; j++ {
		l.totalBytes -= l.sizes[j]
	}
	n := copy(l.entries, l.entries[k:])
	clear(l.entries[n:])
	l.entries = l.entries[:n]
	copy(l.sizes, l.sizes[k:])
	l.sizes = l.sizes[:n]
	l.cursor -= k
}

func (l *Log[S]) enforceCaps() {
	// Depth cap: evict history before the cursor first, then redo entries.
	if over := len(l.entries) - l.cfg.Capacity; over > 0 {
		k := min(over, l.cursor)
		if k > 0 {
			l.dropOldest(k)
		}
		if len(l.entries) > l.cfg.Capacity {
			l.truncateAfter(l.cfg.Capacity - 1)
		}
	}
	// Memory cap: prune oldest, never the entry under the cursor.
	for l.cfg.MaxBytes > 0 && l.totalBytes > l.cfg.MaxBytes && l.cursor > 0 {
		l.dropOldest(1)
	}
}
