/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "moodboard/internal/log"
)

// watchDebounce collapses the burst of events editors emit for a single save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the config file at path whenever it changes and hands the result to fn.
// The parent directory is watched because editors usually replace the file rather than
// write it in place. fn runs on the watcher goroutine; Watch returns once the watcher is
// installed and stops when ctx is cancelled.
func Watch(ctx context.Context, path string, fn func(AppConfig)) error {
	l := applog.WithOperation(applog.WithComponent("config"), "watch").With(slog.String("path", path))
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer func() { _ = watcher.Close() }()
		var mu sync.Mutex
		var timer *time.Timer
		reload := func() {
			cfg, err := LoadFile(target)
			if err != nil {
				l.Warn("config reload failed; keeping previous settings", slog.Any("err", err))
				return
			}
			if err := cfg.Validate(); err != nil {
				l.Warn("reloaded config invalid; keeping previous settings", slog.Any("err", err))
				return
			}
			l.Info("config reloaded")
			fn(cfg)
		}
		for {
			select {
			case <-ctx.Done():
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				mu.Unlock()
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, reload)
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.Warn("watcher error", slog.Any("err", err))
			}
		}
	}()
	return nil
}
