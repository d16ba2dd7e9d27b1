/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"moodboard/internal/config"
	applog "moodboard/internal/log"
)

// RedisNamespace prefixes every key the redis store writes.
const RedisNamespace = "moodboard"

// Open builds the board index and the document store selected by cfg. The index
// always lives in SQLite under the data directory; the sqlite backend shares its
// database. Passwords come from the keyring, never from the config file.
func Open(ctx context.Context, cfg config.StorageConfig, sec config.Secrets) (Store, *Index, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		d, err := config.DefaultDataDir()
		if err != nil {
			return nil, nil, err
		}
		dataDir = d
	}
	ix, err := OpenIndex(dataDir)
	if err != nil {
		return nil, nil, err
	}
	l := applog.WithComponent("storage").With(slog.String("backend", cfg.Backend))

	var st Store
	switch cfg.Backend {
	case "", config.BackendFile:
		st, err = NewFileStore(dataDir)
	case config.BackendSQLite:
		st = NewSQLiteStore(ix.DB())
	case config.BackendRedis:
		var rs *RedisStore
		rs, err = NewRedisStore(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Password: sec.RedisPassword}, RedisNamespace)
		if err == nil {
			if err = rs.Ping(ctx); err != nil {
				_ = rs.Close()
				err = fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
			}
		}
		st = rs
	case config.BackendPostgres:
		st, err = openPostgres(ctx, cfg.PostgresDSN, sec.PostgresPassword)
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		_ = ix.Close()
		l.Error("open store failed", slog.Any("err", err))
		return nil, nil, err
	}
	l.Info("storage ready", slog.String("data_dir", dataDir))
	return st, ix, nil
}

func openPostgres(ctx context.Context, dsn, password string) (*PostgresStore, error) {
	pc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if password != "" {
		pc.Password = password
	}
	return OpenPostgresStore(ctx, stdlib.RegisterConnConfig(pc))
}
