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
	"time"
)

// DefaultKeepVersions is how many versions per board the SQLite store retains.
const DefaultKeepVersions = 5

// language=SQL
// dialect=SQLite
const insertDocumentSQL = `INSERT INTO documents(board_id, ts, data) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestDocumentSQL = `SELECT data FROM documents WHERE board_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listVersionsSQL = `SELECT ts, data FROM documents WHERE board_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldVersionsSQL = `DELETE FROM documents WHERE board_id = ? AND id NOT IN (
	SELECT id FROM documents WHERE board_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// SQLiteStore keeps every write as a new version row and prunes to the newest
// KeepVersions, so a bad save can be rolled back with Versions.
type SQLiteStore struct {
	db           *sql.DB
	owned        bool
	KeepVersions int
	now          func() time.Time
}

// OpenSQLiteStore opens its own database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, owned: true, KeepVersions: DefaultKeepVersions, now: time.Now}, nil
}

// NewSQLiteStore uses an already opened database, typically the index's. Close leaves db open.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, KeepVersions: DefaultKeepVersions, now: time.Now}
}

func (s *SQLiteStore) Write(ctx context.Context, id string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	keep := s.KeepVersions
	if keep <= 0 {
		keep = DefaultKeepVersions
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, insertDocumentSQL, id, formatTime(s.now()), data); err != nil {
		return fmt.Errorf("write board %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, pruneOldVersionsSQL, id, id, keep); err != nil {
		return fmt.Errorf("prune board %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit board %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, selectLatestDocumentSQL, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read board %s: %w", id, err)
	}
	return data, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE board_id = ?`, id); err != nil {
		return fmt.Errorf("delete board %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Version is one stored revision of a board.
type Version struct {
	At   time.Time
	Data []byte
}

// Versions returns up to limit stored versions of a board, newest first.
func (s *SQLiteStore) Versions(ctx context.Context, id string, limit int) ([]Version, error) {
	if limit <= 0 {
		limit = DefaultKeepVersions
	}
	rows, err := s.db.QueryContext(ctx, listVersionsSQL, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list versions %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Version
	for rows.Next() {
		var ts string
		var v Version
		if err := rows.Scan(&ts, &v.Data); err != nil {
			return nil, err
		}
		v.At = parseTime(ts)
		out = append(out, v)
	}
	return out, rows.Err()
}
