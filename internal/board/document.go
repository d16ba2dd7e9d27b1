/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"moodboard/internal/domain"
	applog "moodboard/internal/log"
)

// DocumentVersion is written into every encoded board.
const DocumentVersion = 1

// ErrInvalidDocument is returned by Decode for bytes that are not a board document.
var ErrInvalidDocument = errors.New("invalid board document")

// Document is the persisted form of a board. Undo history is never persisted.
type Document struct {
	Version    int                 `json:"version"`
	ID         string              `json:"id"`
	Viewport   domain.Viewport     `json:"viewport"`
	Items      []domain.CanvasItem `json:"items"`
	NextItemID domain.ItemID       `json:"next_item_id,omitempty"`
}

//go:embed board.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func documentSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// SchemaJSON returns the JSON schema board documents conform to.
func SchemaJSON() []byte { return append([]byte(nil), schemaJSON...) }

// NewDocument builds the document for snapshot s. It only reads s, so it may run
// on any goroutine.
func NewDocument(id string, s *Snapshot, nextID domain.ItemID) Document {
	items := s.Items()
	if items == nil {
		items = []domain.CanvasItem{}
	}
	return Document{Version: DocumentVersion, ID: id, Viewport: s.viewport, Items: items, NextItemID: nextID}
}

// Document returns the persisted form of the live state.
func (b *Board) Document() Document { return NewDocument(b.id, b.live, b.nextID) }

// Encode serializes a document as indented JSON.
func Encode(doc Document) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Items == nil {
		doc.Items = []domain.CanvasItem{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode board %s: %w", doc.ID, err)
	}
	return data, nil
}

// Validate checks raw bytes against the board schema.
func Validate(data []byte) error {
	s, err := documentSchema()
	if err != nil {
		return fmt.Errorf("load board schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return nil
}

// Decode validates data against the schema and parses it. Item values are not
// range checked here; Open repairs them.
func Decode(data []byte) (*Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// Open builds a board from a decoded document. Out-of-range values are repaired
// and items with unknown content or duplicate ids are dropped rather than
// rejected, so that a stored file always opens; repaired reports whether
// anything was changed. A repaired board starts dirty so the fix gets written back.
func Open(doc *Document, opts Options) (b *Board, repaired bool) {
	vp := doc.Viewport
	if vp.Sanitize() {
		repaired = true
	}
	items := make([]domain.CanvasItem, 0, len(doc.Items))
	seen := make(map[domain.ItemID]struct{}, len(doc.Items))
	var maxID domain.ItemID
	for _, it := range doc.Items {
		if it.Content == nil {
			// Unknown content type; keep its id out of circulation.
			maxID = max(maxID, it.ID)
		}
		if _, dup := seen[it.ID]; dup || it.ID == 0 || it.Content == nil {
			applog.WithComponent("board").Warn("dropping unusable item",
				slog.String("board", doc.ID), slog.Uint64("item", uint64(it.ID)))
			repaired = true
			continue
		}
		seen[it.ID] = struct{}{}
		if domain.Sanitize(&it) {
			repaired = true
		}
		maxID = max(maxID, it.ID)
		items = append(items, it)
	}
	b = newBoard(doc.ID, newSnapshot(items, vp), max(doc.NextItemID, maxID+1), opts)
	if repaired {
		b.touch()
	}
	return b, repaired
}
