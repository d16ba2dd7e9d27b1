/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"strings"

	"moodboard/internal/vector"
)

// Kind names a content variant. It is the "type" tag in board documents.
type Kind string

const (
	KindImage    Kind = "image"
	KindPdf      Kind = "pdf"
	KindMarkdown Kind = "markdown"
	KindCode     Kind = "code"
	KindYouTube  Kind = "youtube"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindLink     Kind = "link"
	KindTextBox  Kind = "textbox"
	KindShape    Kind = "shape"
	KindArrow    Kind = "arrow"
)

// Kinds lists every variant in a stable order.
var Kinds = []Kind{KindImage, KindPdf, KindMarkdown, KindCode, KindYouTube, KindAudio, KindVideo, KindLink, KindTextBox, KindShape, KindArrow}

// Content is the closed set of things an item can show. The unexported method seals
// the interface; every variant lives in this file.
type Content interface {
	Kind() Kind
	// DefaultSize is the size given to a freshly placed item.
	DefaultSize() vector.Size
	DisplayName() string
	// TypeLabel is the human name of the variant ("Image", "Text", ...).
	TypeLabel() string
	// SearchText is matched by board search; empty means not searchable.
	SearchText() string
	BoundingBox(pos vector.Pt, size vector.Size) vector.Rect
	validate() error
}

func box(pos vector.Pt, size vector.Size) vector.Rect {
	return vector.R(pos.X, pos.Y, size.W, size.H)
}

func fileName(p string) string {
	if p == "" {
		return "Untitled"
	}
	return filepath.Base(p)
}

func requirePath(field, p string) error {
	if strings.TrimSpace(p) == "" {
		return &FieldError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

// Image shows a picture from disk. Natural is the pixel size when known.
type Image struct {
	Path    string      `json:"path"`
	Natural vector.Size `json:"natural,omitzero"`
}

const maxImageSide = 800

func (Image) Kind() Kind { return KindImage }
func (c Image) DefaultSize() vector.Size {
	if !c.Natural.Positive() || !c.Natural.Finite() {
		return vector.Size{W: 800, H: 600}
	}
	w, h := c.Natural.W, c.Natural.H
	if m := max(w, h); m > maxImageSide {
		scale := maxImageSide / m
		w, h = w*scale, h*scale
	}
	return vector.Size{W: w, H: h}
}
func (c Image) DisplayName() string                              { return fileName(c.Path) }
func (Image) TypeLabel() string                                  { return "Image" }
func (c Image) SearchText() string                               { return fileName(c.Path) }
func (Image) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Image) validate() error                                  { return requirePath("path", c.Path) }

type Pdf struct {
	Path string `json:"path"`
}

func (Pdf) Kind() Kind                                         { return KindPdf }
func (Pdf) DefaultSize() vector.Size                           { return vector.Size{W: 180, H: 240} }
func (c Pdf) DisplayName() string                              { return fileName(c.Path) }
func (Pdf) TypeLabel() string                                  { return "PDF" }
func (c Pdf) SearchText() string                               { return fileName(c.Path) }
func (Pdf) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Pdf) validate() error                                  { return requirePath("path", c.Path) }

type Markdown struct {
	Path string `json:"path"`
}

func (Markdown) Kind() Kind                                         { return KindMarkdown }
func (Markdown) DefaultSize() vector.Size                           { return vector.Size{W: 200, H: 36} }
func (c Markdown) DisplayName() string                              { return fileName(c.Path) }
func (Markdown) TypeLabel() string                                  { return "Markdown" }
func (c Markdown) SearchText() string                               { return fileName(c.Path) }
func (Markdown) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Markdown) validate() error                                  { return requirePath("path", c.Path) }

type Code struct {
	Path     string `json:"path"`
	Language string `json:"language"`
}

func (Code) Kind() Kind                                         { return KindCode }
func (Code) DefaultSize() vector.Size                           { return vector.Size{W: 200, H: 36} }
func (c Code) DisplayName() string                              { return fileName(c.Path) }
func (Code) TypeLabel() string                                  { return "Code" }
func (c Code) SearchText() string                               { return fileName(c.Path) + " " + c.Language }
func (Code) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Code) validate() error                                  { return requirePath("path", c.Path) }

type YouTube struct {
	VideoID string `json:"video_id"`
}

func (YouTube) Kind() Kind                                         { return KindYouTube }
func (YouTube) DefaultSize() vector.Size                           { return vector.Size{W: 560, H: 315} }
func (c YouTube) DisplayName() string                              { return "YouTube: " + c.VideoID }
func (YouTube) TypeLabel() string                                  { return "YouTube" }
func (c YouTube) SearchText() string                               { return c.VideoID }
func (YouTube) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c YouTube) validate() error {
	if !validVideoID(c.VideoID) {
		return &FieldError{Field: "video_id", Reason: fmt.Sprintf("%q is not a YouTube video id", c.VideoID)}
	}
	return nil
}

type Audio struct {
	Path string `json:"path"`
}

func (Audio) Kind() Kind                                         { return KindAudio }
func (Audio) DefaultSize() vector.Size                           { return vector.Size{W: 320, H: 160} }
func (c Audio) DisplayName() string                              { return fileName(c.Path) }
func (Audio) TypeLabel() string                                  { return "Audio" }
func (c Audio) SearchText() string                               { return fileName(c.Path) }
func (Audio) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Audio) validate() error                                  { return requirePath("path", c.Path) }

type Video struct {
	Path string `json:"path"`
}

func (Video) Kind() Kind                                         { return KindVideo }
func (Video) DefaultSize() vector.Size                           { return vector.Size{W: 400, H: 300} }
func (c Video) DisplayName() string                              { return fileName(c.Path) }
func (Video) TypeLabel() string                                  { return "Video" }
func (c Video) SearchText() string                               { return fileName(c.Path) }
func (Video) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Video) validate() error                                  { return requirePath("path", c.Path) }

type Link struct {
	URL string `json:"url"`
}

func (Link) Kind() Kind               { return KindLink }
func (Link) DefaultSize() vector.Size { return vector.Size{W: 300, H: 150} }
func (c Link) DisplayName() string {
	if u, err := url.Parse(c.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return c.URL
}
func (Link) TypeLabel() string                                  { return "Link" }
func (c Link) SearchText() string                               { return c.URL }
func (Link) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Link) validate() error {
	u, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &FieldError{Field: "url", Reason: fmt.Sprintf("%q is not an absolute URL", c.URL)}
	}
	return nil
}

type TextBox struct {
	Text     string  `json:"text"`
	FontSize float32 `json:"font_size"`
	Color    string  `json:"color"`
}

func (TextBox) Kind() Kind               { return KindTextBox }
func (TextBox) DefaultSize() vector.Size { return vector.Size{W: 200, H: 100} }
func (c TextBox) DisplayName() string {
	line, _, _ := strings.Cut(strings.TrimSpace(c.Text), "\n")
	if line == "" {
		return "Text"
	}
	if r := []rune(line); len(r) > 40 {
		return string(r[:40]) + "…"
	}
	return line
}
func (TextBox) TypeLabel() string                                  { return "Text" }
func (c TextBox) SearchText() string                               { return c.Text }
func (TextBox) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c TextBox) validate() error {
	if !inRange(c.FontSize, MinFontSize, MaxFontSize) {
		return &FieldError{Field: "font_size", Reason: fmt.Sprintf("must be within %g..%g", float32(MinFontSize), float32(MaxFontSize))}
	}
	return validColor("color", c.Color)
}

// ShapeType is the outline drawn by a Shape item.
type ShapeType string

const (
	ShapeRectangle   ShapeType = "rectangle"
	ShapeRoundedRect ShapeType = "rounded_rect"
	ShapeEllipse     ShapeType = "ellipse"
)

type Shape struct {
	Type        ShapeType `json:"shape"`
	Fill        string    `json:"fill"`
	Border      string    `json:"border"`
	BorderWidth float32   `json:"border_width"`
}

func (Shape) Kind() Kind               { return KindShape }
func (Shape) DefaultSize() vector.Size { return vector.Size{W: 150, H: 100} }
func (c Shape) DisplayName() string {
	switch c.Type {
	case ShapeRoundedRect:
		return "Rounded Rectangle"
	case ShapeEllipse:
		return "Ellipse"
	default:
		return "Rectangle"
	}
}
func (Shape) TypeLabel() string                                  { return "Shape" }
func (Shape) SearchText() string                                 { return "" }
func (Shape) BoundingBox(p vector.Pt, s vector.Size) vector.Rect { return box(p, s) }
func (c Shape) validate() error {
	switch c.Type {
	case ShapeRectangle, ShapeRoundedRect, ShapeEllipse:
	default:
		return &FieldError{Field: "shape", Reason: fmt.Sprintf("unknown shape %q", c.Type)}
	}
	if !inRange(c.BorderWidth, 0, MaxBorderWidth) {
		return &FieldError{Field: "border_width", Reason: fmt.Sprintf("must be within 0..%g", float32(MaxBorderWidth))}
	}
	if err := validColor("fill", c.Fill); err != nil {
		return err
	}
	return validColor("border", c.Border)
}

// ArrowHead is the decoration drawn at an arrow's end point.
type ArrowHead string

const (
	HeadNone    ArrowHead = "none"
	HeadArrow   ArrowHead = "arrow"
	HeadDiamond ArrowHead = "diamond"
	HeadCircle  ArrowHead = "circle"
)

// Arrow is defined by its endpoints, given as offsets from the item position, so
// moving the item moves the whole arrow. The item size is not used.
type Arrow struct {
	Start     vector.Pt `json:"start"`
	End       vector.Pt `json:"end"`
	Head      ArrowHead `json:"head"`
	Color     string    `json:"color"`
	Thickness float32   `json:"thickness"`
}

func (Arrow) Kind() Kind { return KindArrow }
func (c Arrow) DefaultSize() vector.Size {
	dx := float32(math.Abs(float64(c.End.X - c.Start.X)))
	dy := float32(math.Abs(float64(c.End.Y - c.Start.Y)))
	return vector.Size{W: max(dx, 50), H: max(dy, 20)}
}
func (Arrow) DisplayName() string { return "Arrow" }
func (Arrow) TypeLabel() string   { return "Arrow" }
func (Arrow) SearchText() string  { return "" }
func (c Arrow) BoundingBox(p vector.Pt, _ vector.Size) vector.Rect {
	return vector.RectFromPoints(p.Add(c.Start), p.Add(c.End))
}
func (c Arrow) validate() error {
	if !c.Start.Finite() || !c.End.Finite() {
		return &FieldError{Field: "endpoints", Reason: "must be finite"}
	}
	switch c.Head {
	case HeadNone, HeadArrow, HeadDiamond, HeadCircle:
	default:
		return &FieldError{Field: "head", Reason: fmt.Sprintf("unknown arrow head %q", c.Head)}
	}
	if !inRange(c.Thickness, MinArrowThickness, MaxArrowThickness) {
		return &FieldError{Field: "thickness", Reason: fmt.Sprintf("must be within %g..%g", float32(MinArrowThickness), float32(MaxArrowThickness))}
	}
	return validColor("color", c.Color)
}

func validColor(field, s string) error {
	if !vector.ValidHex(s) {
		return &FieldError{Field: field, Reason: fmt.Sprintf("%q is not a #RGB, #RRGGBB or #RRGGBBAA colour", s)}
	}
	return nil
}

func inRange(v, lo, hi float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && v >= lo && v <= hi
}
