/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up the slog logger shared by every moodboard package.
//
// Records go to a console handler (short text or JSON) and, when a file is
// configured, to a size-rotated JSON file. Every record carries app and ver;
// records logged with a context from ContextWithBoard also carry board.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"moodboard/internal/version"
)

// Options controls Init. FromEnv reads them from
// MB_LOG_LEVEL, MB_LOG_FORMAT, MB_LOG_SOURCE and MB_LOG_FILE.
type Options struct {
	Level     string
	Format    string // console or json
	AddSource bool
	File      string    // rotated JSON log, empty disables
	Console   io.Writer // defaults to stderr
}

// Rotation limits for the log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

var (
	current atomic.Pointer[slog.Logger]
	// level is shared by every handler so SetLevel applies without re-initializing.
	level = new(slog.LevelVar)
)

// L returns the application logger, initializing it from the environment on first use.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Init replaces the application logger and slog.Default.
func Init(opts Options) {
	level.Set(parseLevel(opts.Level))
	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var outs []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		outs = append(outs, slog.NewJSONHandler(console, hopts))
	} else {
		outs = append(outs, newConsoleHandler(console, hopts))
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{
			Filename:   f,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		}
		outs = append(outs, slog.NewJSONHandler(w, hopts))
	}

	l := slog.New(&fanout{outs: outs}).With(
		slog.String("app", "moodboard"),
		slog.String("ver", version.String()),
	)
	current.Store(l)
	slog.SetDefault(l)
}

// SetLevel changes the minimum level of the running logger.
func SetLevel(s string) { level.Set(parseLevel(s)) }

// Level returns the current minimum level.
func Level() slog.Level { return level.Level() }

// FromEnv builds Options from the MB_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("MB_LOG_LEVEL", "info"),
		Format:    getenv("MB_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("MB_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("MB_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type boardKey struct{}

// ContextWithBoard returns a context whose log records carry board=<id>.
func ContextWithBoard(ctx context.Context, boardID string) context.Context {
	return context.WithValue(ctx, boardKey{}, boardID)
}

func boardFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(boardKey{}).(string)
	return s
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends each record to every enabled output, adding the board id
// from the context first.
type fanout struct{ outs []slog.Handler }

func (f *fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f.outs {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	if id := boardFrom(ctx); id != "" {
		r.AddAttrs(slog.String("board", id))
	}
	var first error
	for _, h := range f.outs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanout) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *fanout) derive(fn func(slog.Handler) slog.Handler) *fanout {
	outs := make([]slog.Handler, len(f.outs))
	for i, h := range f.outs {
		outs[i] = fn(h)
	}
	return &fanout{outs: outs}
}

// newConsoleHandler is slog's text handler trimmed for a terminal:
// wall-clock time, three-letter levels and short source positions.
func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	o := *opts
	o.ReplaceAttr = consoleAttr
	return slog.NewTextHandler(w, &o)
}

func consoleAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			return slog.String(slog.TimeKey, t.Format("15:04:05.000"))
		}
	case slog.LevelKey:
		if l, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(slog.LevelKey, shortLevel(l))
		}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String("src", filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
		}
	}
	return a
}

func shortLevel(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return l.String()
	}
}
