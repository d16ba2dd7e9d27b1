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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	applog "moodboard/internal/log"
)

const (
	BoardsDirName  = "boards"
	BackupsDirName = "backups"

	// DefaultMaxBackups is how many backups per board the file store keeps.
	DefaultMaxBackups = 10

	backupStamp = "20060102-150405.000000"
)

// FileStore keeps one JSON file per board under Root/boards and timestamped copies of
// previous versions under Root/backups.
type FileStore struct {
	Root       string
	MaxBackups int

	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates the directory layout under root.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	for _, d := range []string{BoardsDirName, BackupsDirName} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	return &FileStore{Root: root, MaxBackups: DefaultMaxBackups, now: time.Now}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.Root, BoardsDirName, id+".json")
}

// Write replaces the board file transactionally: the previous version is copied to a
// backup, the new bytes go to a synced temp file which is then renamed over the target.
func (s *FileStore) Write(ctx context.Context, id string, data []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(id)
	if _, statErr := os.Stat(target); statErr == nil {
		bname := fmt.Sprintf("%s.json.%s.bak", id, s.now().Format(backupStamp))
		if cerr := copyFile(target, filepath.Join(s.Root, BackupsDirName, bname)); cerr != nil {
			return fmt.Errorf("backup board %s: %w", id, cerr)
		}
		s.pruneBackups(id)
	}

	temp := filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.tmp-%d-%d", id, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp board %s: %w", id, werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace board %s: %w", id, rerr)
	}
	return nil
}

// Read returns the board file. If it is missing or not valid JSON while backups exist,
// the latest backup is returned instead.
func (s *FileStore) Read(ctx context.Context, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path(id))
	if err == nil && json.Valid(b) {
		return b, nil
	}
	backup, berr := s.latestBackup(id)
	switch {
	case berr == nil:
		applog.WithComponent("storage").Warn("board file unreadable, using latest backup",
			slog.String("board", id), slog.Any("err", err))
		return backup, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("read board %s: %w; backup attempt: %v", id, err, berr)
	default:
		return nil, fmt.Errorf("board %s is corrupt; backup attempt: %v", id, berr)
	}
}

// Delete removes the board file and its backups.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete board %s: %w", id, err)
	}
	for _, p := range s.backups(id) {
		_ = os.Remove(p)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Backups lists the backup files of a board, oldest first.
func (s *FileStore) Backups(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backups(id)
}

func (s *FileStore) backups(id string) []string {
	bdir := filepath.Join(s.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	prefix := id + ".json."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func (s *FileStore) pruneBackups(id string) {
	keep := s.MaxBackups
	if keep <= 0 {
		keep = DefaultMaxBackups
	}
	all := s.backups(id)
	for len(all) > keep {
		_ = os.Remove(all[0])
		all = all[1:]
	}
}

// latestBackup returns the newest backup that holds valid JSON.
func (s *FileStore) latestBackup(id string) ([]byte, error) {
	candidates := s.backups(id)
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err == nil && json.Valid(b) {
			return b, nil
		}
	}
	return nil, errors.New("no readable backup")
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
