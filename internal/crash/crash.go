/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and an emergency save.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "moodboard/internal/log"
	"moodboard/internal/version"
)

// ReportDirName is the folder under the data directory that receives crash reports.
const ReportDirName = "crash"

// flushTimeout bounds the emergency save so a hung store cannot keep a crashed
// process alive.
const flushTimeout = 5 * time.Second

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Flusher writes every dirty board. *app.App implements it.
type Flusher interface {
	FlushAll(ctx context.Context) error
}

// Caller runs fn on another goroutine and waits for it. *eventloop.Loop implements it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

// OnLoop returns a Flusher that runs f.FlushAll on the goroutine behind c. Use it
// for Recover on goroutines other than the one that owns the boards; the deadline
// of the emergency save also bounds the wait for that goroutine.
func OnLoop(c Caller, f Flusher) Flusher { return loopFlusher{c: c, f: f} }

type loopFlusher struct {
	c Caller
	f Flusher
}

func (l loopFlusher) FlushAll(ctx context.Context) error {
	var err error
	if cerr := l.c.Call(ctx, func() { err = l.f.FlushAll(ctx) }); cerr != nil {
		return fmt.Errorf("event loop unavailable: %w", cerr)
	}
	return err
}

// Recover captures a panic, logs it with its stack, writes a report to dataDir and
// tries to save every dirty board before exiting with code 2.
//
// Usage: defer crash.Recover(a, dataDir)
func Recover(f Flusher, dataDir string) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(dataDir, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if f != nil {
		if err := emergencyFlush(f); err != nil {
			l.Error("emergency save failed", slog.Any("err", err))
		} else {
			l.Info("emergency save complete")
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

// emergencyFlush runs the save with its own panic guard; a second panic while
// saving must not hide the first.
func emergencyFlush(f Flusher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during emergency save: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	return f.FlushAll(ctx)
}

func writeReport(dataDir string, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if dataDir != "" {
		dir = filepath.Join(dataDir, ReportDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			dir = os.TempDir()
		}
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Moodboard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if dataDir != "" {
		_, _ = fmt.Fprintf(&buf, "DataDir: %s\n", dataDir)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
