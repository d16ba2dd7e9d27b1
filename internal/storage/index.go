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

	"github.com/google/uuid"
)

// BoardMeta is the index entry of a board.
type BoardMeta struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Trashed reports whether the board is in the trash.
func (m BoardMeta) Trashed() bool { return m.DeletedAt != nil }

// ListOptions selects which boards List returns.
type ListOptions struct {
	Trashed bool
	// Query filters by a case-insensitive substring of the name.
	Query string
}

// language=SQL
// dialect=SQLite
const insertBoardSQL = `INSERT INTO boards(id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectBoardSQL = `SELECT id, name, created_at, updated_at, deleted_at FROM boards WHERE id = ?`

// language=SQL
// dialect=SQLite
const listBoardsSQL = `SELECT id, name, created_at, updated_at, deleted_at FROM boards
WHERE (deleted_at IS NOT NULL) = ? AND name LIKE ? ESCAPE '\'
ORDER BY updated_at DESC, id`

// language=SQL
// dialect=SQLite
const selectPurgeableSQL = `SELECT id FROM boards WHERE deleted_at IS NOT NULL AND deleted_at < ?`

// Index keeps board names and timestamps, and the trash. It does not hold documents.
type Index struct {
	db    *sql.DB
	owned bool
	now   func() time.Time
}

// OpenIndex opens the index database in dataDir.
func OpenIndex(dataDir string) (*Index, error) {
	db, err := OpenDB(IndexPath(dataDir))
	if err != nil {
		return nil, err
	}
	return &Index{db: db, owned: true, now: time.Now}, nil
}

// NewIndex uses an already opened database. Close leaves db open.
func NewIndex(db *sql.DB) *Index {
	return &Index{db: db, now: time.Now}
}

// DB exposes the underlying database so a SQLiteStore can share it.
func (ix *Index) DB() *sql.DB { return ix.db }

func (ix *Index) Close() error {
	if !ix.owned {
		return nil
	}
	return ix.db.Close()
}

// Create adds a board with a fresh id.
func (ix *Index) Create(ctx context.Context, name string) (BoardMeta, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled Board"
	}
	now := ix.now().UTC()
	m := BoardMeta{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	if _, err := ix.db.ExecContext(ctx, insertBoardSQL, m.ID, m.Name, formatTime(now), formatTime(now)); err != nil {
		return BoardMeta{}, fmt.Errorf("create board: %w", err)
	}
	return m, nil
}

// Get returns the index entry of id, trashed or not.
func (ix *Index) Get(ctx context.Context, id string) (BoardMeta, error) {
	m, err := scanBoard(ix.db.QueryRowContext(ctx, selectBoardSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return BoardMeta{}, ErrNotFound
	}
	if err != nil {
		return BoardMeta{}, fmt.Errorf("get board %s: %w", id, err)
	}
	return m, nil
}

// List returns boards, most recently updated first.
func (ix *Index) List(ctx context.Context, opts ListOptions) ([]BoardMeta, error) {
	rows, err := ix.db.QueryContext(ctx, listBoardsSQL, opts.Trashed, likeContains(opts.Query))
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []BoardMeta
	for rows.Next() {
		m, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Rename changes a board's display name.
func (ix *Index) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("board name is required")
	}
	return ix.exec(ctx, "rename", id, `UPDATE boards SET name = ?, updated_at = ? WHERE id = ?`, name, formatTime(ix.now()), id)
}

// Touch records that the board's content changed at t.
func (ix *Index) Touch(ctx context.Context, id string, t time.Time) error {
	return ix.exec(ctx, "touch", id, `UPDATE boards SET updated_at = ? WHERE id = ?`, formatTime(t), id)
}

// Trash moves a board to the trash. Its document is kept until Purge.
func (ix *Index) Trash(ctx context.Context, id string) error {
	return ix.exec(ctx, "trash", id, `UPDATE boards SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, formatTime(ix.now()), id)
}

// Restore takes a board out of the trash.
func (ix *Index) Restore(ctx context.Context, id string) error {
	return ix.exec(ctx, "restore", id, `UPDATE boards SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`, id)
}

// Purge removes trashed boards deleted more than retention ago and returns their ids
// so the caller can delete the documents too.
func (ix *Index) Purge(ctx context.Context, retention time.Duration) ([]string, error) {
	cutoff := formatTime(ix.now().Add(-retention))
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, selectPurgeableSQL, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select purgeable: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff); err != nil {
		return nil, fmt.Errorf("purge boards: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purge: %w", err)
	}
	return ids, nil
}

func (ix *Index) exec(ctx context.Context, op, id, q string, args ...any) error {
	res, err := ix.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s board %s: %w", op, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(r rowScanner) (BoardMeta, error) {
	var m BoardMeta
	var created, updated string
	var deleted sql.NullString
	if err := r.Scan(&m.ID, &m.Name, &created, &updated, &deleted); err != nil {
		return BoardMeta{}, err
	}
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	if deleted.Valid {
		t := parseTime(deleted.String)
		m.DeletedAt = &t
	}
	return m, nil
}

// Times are stored as fixed-width UTC text so that string comparison orders them.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func likeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
