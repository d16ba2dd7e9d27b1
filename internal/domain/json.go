/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"moodboard/internal/vector"
)

// Content is written as its fields plus a "type" tag:
//
//	{"type":"textbox","text":"hi","font_size":16,"color":"#fff"}

// ErrUnknownContent is returned by UnmarshalContent for a type tag this build does
// not know, for example one written by a newer version.
var ErrUnknownContent = errors.New("unknown content type")

var contentDecoders = map[Kind]func([]byte) (Content, error){
	KindImage:    decodeAs[Image],
	KindPdf:      decodeAs[Pdf],
	KindMarkdown: decodeAs[Markdown],
	KindCode:     decodeAs[Code],
	KindYouTube:  decodeAs[YouTube],
	KindAudio:    decodeAs[Audio],
	KindVideo:    decodeAs[Video],
	KindLink:     decodeAs[Link],
	KindTextBox:  decodeAs[TextBox],
	KindShape:    decodeAs[Shape],
	KindArrow:    decodeAs[Arrow],
}

func decodeAs[T Content](b []byte) (Content, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalContent encodes c with its type tag.
func MarshalContent(c Content) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("marshal content: nil")
	}
	fields, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s content: %w", c.Kind(), err)
	}
	tag, _ := json.Marshal(string(c.Kind()))
	var buf bytes.Buffer
	buf.Grow(len(fields) + len(tag) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if inner := bytes.TrimSpace(fields[1 : len(fields)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalContent decodes a tagged content object.
func UnmarshalContent(b []byte) (Content, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	dec, ok := contentDecoders[head.Type]
	if !ok {
		return nil, fmt.Errorf("unmarshal content: %w %q", ErrUnknownContent, head.Type)
	}
	c, err := dec(b)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s content: %w", head.Type, err)
	}
	return c, nil
}

type itemJSON struct {
	ID       ItemID          `json:"id"`
	Position vector.Pt       `json:"position"`
	Size     vector.Size     `json:"size"`
	Content  json.RawMessage `json:"content"`
}

func (c CanvasItem) MarshalJSON() ([]byte, error) {
	content, err := MarshalContent(c.Content)
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", c.ID, err)
	}
	return json.Marshal(itemJSON{ID: c.ID, Position: c.Position, Size: c.Size, Content: content})
}

func (c *CanvasItem) UnmarshalJSON(b []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	content, err := UnmarshalContent(raw.Content)
	if errors.Is(err, ErrUnknownContent) {
		// Kept without content; board.Open drops it.
		content, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("item %d: %w", raw.ID, err)
	}
	*c = CanvasItem{ID: raw.ID, Position: raw.Position, Size: raw.Size, Content: content}
	return nil
}

type viewportJSON struct {
	OffsetX float32 `json:"offset_x"`
	OffsetY float32 `json:"offset_y"`
	Zoom    float32 `json:"zoom"`
}

func (v Viewport) MarshalJSON() ([]byte, error) {
	return json.Marshal(viewportJSON{OffsetX: v.Offset.X, OffsetY: v.Offset.Y, Zoom: v.Zoom})
}

func (v *Viewport) UnmarshalJSON(b []byte) error {
	raw := viewportJSON{Zoom: DefaultZoom}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = Viewport{Offset: vector.Pt{X: raw.OffsetX, Y: raw.OffsetY}, Zoom: raw.Zoom}
	return nil
}
