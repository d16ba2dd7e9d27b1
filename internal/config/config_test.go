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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// memSecrets is an in-memory SecretStore for tests.
type memSecrets struct{ m map[string]string }

func (s *memSecrets) Get(service, key string) (string, error) {
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (s *memSecrets) Set(service, key, value string) error {
	s.m[service+"/"+key] = value
	return nil
}
func (s *memSecrets) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	t.Cleanup(SetSecretStore(&memSecrets{m: map[string]string{}}))
	return path
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	useTempConfig(t)
	cfg, sec, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.History.Capacity != 100 || cfg.Persistence.DebounceMs != 500 || cfg.Persistence.TickMs != 100 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Fatalf("default backend = %q", cfg.Storage.Backend)
	}
	if sec != (Secrets{}) {
		t.Fatalf("expected no secrets, got %#v", sec)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	useTempConfig(t)
	cfg := Defaults()
	cfg.History.Capacity = 250
	cfg.Storage.Backend = BackendSQLite
	cfg.Metrics.Enabled = true
	if err := Save(cfg, Secrets{RedisPassword: "hunter2"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, sec, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.History.Capacity != 250 || got.Storage.Backend != BackendSQLite || !got.Metrics.Enabled {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if sec.RedisPassword != "hunter2" {
		t.Fatalf("secret not restored from keyring: %#v", sec)
	}
	if err := DeleteSecrets(); err != nil {
		t.Fatalf("DeleteSecrets() error: %v", err)
	}
	if _, sec, _ = Load(); sec.RedisPassword != "" {
		t.Fatalf("secret survived DeleteSecrets")
	}
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte("history: [not, a, map"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.History.Capacity != 100 {
		t.Fatalf("defaults should still be returned on parse error")
	}
}

func TestEnvOverridesPersistence(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvDebounceMs, "750")
	t.Setenv(EnvHistoryCapacity, "500")
	t.Setenv(EnvStorageBackend, "REDIS")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Persistence.Debounce() != 750*time.Millisecond {
		t.Fatalf("Debounce() = %v", cfg.Persistence.Debounce())
	}
	if cfg.History.Capacity != 500 || cfg.Storage.Backend != BackendRedis {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if env, ok := EnvOverrideFor("persistence.debounce_ms"); !ok || env != EnvDebounceMs {
		t.Fatalf("EnvOverrideFor mismatch: %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("logging.file is not overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := AppConfig{}
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = " /tmp/mb.log "
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/mb.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	if dst.History.Capacity != 100 {
		t.Fatalf("zero values in src must not clobber defaults")
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/mb.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/mb.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.History.Capacity = 1
	cfg.Storage.Backend = "floppy"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "history.capacity") || !strings.Contains(msg, "storage.backend") {
		t.Fatalf("missing messages: %q", msg)
	}
	cfg = Defaults()
	cfg.Storage.Backend = BackendPostgres
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "postgres_dsn") {
		t.Fatalf("postgres backend without DSN must fail, got %v", err)
	}
}

func TestWatchDeliversReloadedConfig(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte("history:\n  capacity: 120\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan AppConfig, 4)
	if err := Watch(ctx, path, func(c AppConfig) { got <- c }); err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	if err := os.WriteFile(path, []byte("history:\n  capacity: 300\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-got:
		if c.History.Capacity != 300 {
			t.Fatalf("reloaded capacity = %d", c.History.Capacity)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for config reload")
	}
}
