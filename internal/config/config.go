/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark" (informational for now)
}

type HistoryConfig struct {
	// Capacity is the number of snapshots kept per board, including the opened state.
	Capacity int `yaml:"capacity"`
	// MaxBytes is a soft cap on the estimated history size per board (0 disables it).
	MaxBytes int `yaml:"max_bytes"`
}

type PersistenceConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
	TickMs     int `yaml:"tick_ms"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // "file" | "sqlite" | "redis" | "postgres"
	DataDir     string `yaml:"data_dir"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// Passwords are not stored on disk; they live in the OS keychain.
}

type IndexConfig struct {
	TrashRetentionDays int `yaml:"trash_retention_days"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AppConfig struct {
	ConfigVersion int               `yaml:"config_version"`
	General       GeneralConfig     `yaml:"general"`
	History       HistoryConfig     `yaml:"history"`
	Persistence   PersistenceConfig `yaml:"persistence"`
	Storage       StorageConfig     `yaml:"storage"`
	Index         IndexConfig       `yaml:"index"`
	Logging       LoggingConfig     `yaml:"logging"`
	Metrics       MetricsConfig     `yaml:"metrics"`
}

// Storage backends understood by storage.Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		History:       HistoryConfig{Capacity: 100, MaxBytes: 64 * 1024 * 1024},
		Persistence:   PersistenceConfig{DebounceMs: 500, TickMs: 100},
		Storage:       StorageConfig{Backend: BackendFile, RedisAddr: "localhost:6379"},
		Index:         IndexConfig{TrashRetentionDays: 30},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Metrics:       MetricsConfig{Enabled: false, Addr: "127.0.0.1:9464"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "MB_CONFIG"
	EnvHistoryCapacity = "MB_HISTORY_CAPACITY"
	EnvDebounceMs      = "MB_DEBOUNCE_MS"
	EnvTickMs          = "MB_TICK_MS"
	EnvStorageBackend  = "MB_STORAGE_BACKEND"
	EnvDataDir         = "MB_DATA_DIR"
	EnvRedisAddr       = "MB_REDIS_ADDR"
	EnvPostgresDSN     = "MB_POSTGRES_DSN"
	EnvMetricsEnabled  = "MB_METRICS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "MB_LOG_LEVEL"
	EnvLogFormat = "MB_LOG_FORMAT"
	EnvLogSource = "MB_LOG_SOURCE"
	EnvLogFile   = "MB_LOG_FILE"
)

// Debounce returns the persistence debounce window.
func (p PersistenceConfig) Debounce() time.Duration {
	if p.DebounceMs < 0 {
		return 0
	}
	return time.Duration(p.DebounceMs) * time.Millisecond
}

// Tick returns the scheduler tick interval, falling back to the default for non-positive values.
func (p PersistenceConfig) Tick() time.Duration {
	if p.TickMs <= 0 {
		return time.Duration(Defaults().Persistence.TickMs) * time.Millisecond
	}
	return time.Duration(p.TickMs) * time.Millisecond
}

// TrashRetention returns how long trashed boards are kept before purge.
func (i IndexConfig) TrashRetention() time.Duration {
	return time.Duration(i.TrashRetentionDays) * 24 * time.Hour
}

// Validate reports configuration values the application cannot run with.
func (c AppConfig) Validate() error {
	var errs []error
	if c.History.Capacity < 2 {
		errs = append(errs, fmt.Errorf("history.capacity must be at least 2, got %d", c.History.Capacity))
	}
	if c.Persistence.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("persistence.debounce_ms must not be negative, got %d", c.Persistence.DebounceMs))
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendRedis, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of file, sqlite, redis, postgres", c.Storage.Backend))
	}
	if c.Storage.Backend == BackendPostgres && strings.TrimSpace(c.Storage.PostgresDSN) == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
	}
	return errors.Join(errs...)
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := userDir(os.Getenv("XDG_CONFIG_HOME"), ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultDataDir returns the per-user directory holding board documents and the index.
func DefaultDataDir() (string, error) {
	return userDir(os.Getenv("XDG_DATA_HOME"), filepath.Join(".local", "share"))
}

func userDir(xdg, homeRel string) (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Moodboard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Moodboard")
	default: // linux and others
		if xdg != "" {
			base = filepath.Join(xdg, "moodboard")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, homeRel, "moodboard")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve user directory")
	}
	return base, nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// Backend secrets are read from the keyring and returned separately.
func Load() (AppConfig, Secrets, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), Secrets{}, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, Secrets{}, err
	}
	return cfg, loadSecrets(), nil
}

// LoadFile reads path on top of the defaults and applies environment overrides.
// A missing file is not an error; a malformed one is.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if uerr := yaml.Unmarshal(data, &fileCfg); uerr != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, uerr)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML and persists non-empty secrets into the OS keyring.
func Save(cfg AppConfig, sec Secrets) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	return saveSecrets(sec)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	if src.History.Capacity != 0 {
		dst.History.Capacity = src.History.Capacity
	}
	if src.History.MaxBytes != 0 {
		dst.History.MaxBytes = src.History.MaxBytes
	}
	if src.Persistence.DebounceMs != 0 {
		dst.Persistence.DebounceMs = src.Persistence.DebounceMs
	}
	if src.Persistence.TickMs != 0 {
		dst.Persistence.TickMs = src.Persistence.TickMs
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); v != "" {
		dst.Storage.Backend = v
	}
	if v := strings.TrimSpace(src.Storage.DataDir); v != "" {
		dst.Storage.DataDir = v
	}
	if v := strings.TrimSpace(src.Storage.RedisAddr); v != "" {
		dst.Storage.RedisAddr = v
	}
	if src.Storage.RedisDB != 0 {
		dst.Storage.RedisDB = src.Storage.RedisDB
	}
	if v := strings.TrimSpace(src.Storage.PostgresDSN); v != "" {
		dst.Storage.PostgresDSN = v
	}
	if src.Index.TrashRetentionDays != 0 {
		dst.Index.TrashRetentionDays = src.Index.TrashRetentionDays
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Metrics.Enabled = src.Metrics.Enabled
	if v := strings.TrimSpace(src.Metrics.Addr); v != "" {
		dst.Metrics.Addr = v
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envInt(EnvHistoryCapacity, &cfg.History.Capacity)
	envInt(EnvDebounceMs, &cfg.Persistence.DebounceMs)
	envInt(EnvTickMs, &cfg.Persistence.TickMs)
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMetricsEnabled)); v != "" {
		cfg.Metrics.Enabled = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"history.capacity":        EnvHistoryCapacity,
	"persistence.debounce_ms": EnvDebounceMs,
	"persistence.tick_ms":     EnvTickMs,
	"storage.backend":         EnvStorageBackend,
	"storage.data_dir":        EnvDataDir,
	"storage.redis_addr":      EnvRedisAddr,
	"storage.postgres_dsn":    EnvPostgresDSN,
	"metrics.enabled":         EnvMetricsEnabled,
	"logging.level":           EnvLogLevel,
	"logging.format":          EnvLogFormat,
	"logging.source":          EnvLogSource,
	"logging.file":            EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
