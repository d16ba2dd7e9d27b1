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
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// language=SQL
// dialect=PostgreSQL
const createBoardDocumentsSQL = `CREATE TABLE IF NOT EXISTS board_documents (
	board_id   TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// language=SQL
// dialect=PostgreSQL
const upsertBoardDocumentSQL = `
	INSERT INTO board_documents (board_id, data, updated_at)
	VALUES ($1,$2,$3)
	ON CONFLICT (board_id) DO UPDATE
	SET data = excluded.data, updated_at = excluded.updated_at
`

// PostgresStore keeps one row per board in a shared database.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgresStore connects with dsn, verifies the connection and creates the table.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an open database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the documents table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createBoardDocumentsSQL); err != nil {
		return fmt.Errorf("create board_documents: %w", err)
	}
	return nil
}

func (s *PostgresStore) Write(ctx context.Context, id string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertBoardDocumentSQL, id, data, s.now().UTC()); err != nil {
		return fmt.Errorf("upsert board %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM board_documents WHERE board_id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", id, err)
	}
	return append([]byte(nil), data...), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM board_documents WHERE board_id = $1`, id); err != nil {
		return fmt.Errorf("delete board %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
