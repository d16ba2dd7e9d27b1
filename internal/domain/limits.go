/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"math"

	"moodboard/internal/vector"
)

// Limits applied to commands and to loaded documents.
const (
	MinFontSize       = 8
	MaxFontSize       = 200
	MinArrowThickness = 1
	MaxArrowThickness = 20
	MaxBorderWidth    = 50
	MaxDimension      = 10000

	MinItemWidth     = 20
	MinItemHeight    = 20
	MinTextBoxWidth  = 50
	MinTextBoxHeight = 30
	MinShapeSide     = 30

	MinZoom     = 0.1
	MaxZoom     = 10
	DefaultZoom = 1

	DefaultTextColor   = "#ffffff"
	DefaultFontSize    = 16
	DefaultShapeFill   = "#3a3a3a"
	DefaultShapeBorder = "#ffffff"
	DefaultArrowColor  = "#ffffff"
	DefaultThickness   = 2
)

// Sanitize repairs an item read from storage so it satisfies the limits: sizes are
// clamped, non-finite numbers reset, unknown enum values and bad colours replaced by
// defaults. It reports whether anything changed. Content must be non-nil.
func Sanitize(it *CanvasItem) bool {
	changed := false
	if !it.Position.Finite() {
		it.Position = vector.Pt{}
		changed = true
	}
	c, cchanged := sanitizeContent(it.Content)
	if cchanged {
		it.Content = c
		changed = true
	}
	if it.Content.Kind() == KindArrow {
		return changed
	}
	minW, minH := float32(MinItemWidth), float32(MinItemHeight)
	switch it.Content.Kind() {
	case KindTextBox:
		minW, minH = MinTextBoxWidth, MinTextBoxHeight
	case KindShape:
		minW, minH = MinShapeSide, MinShapeSide
	}
	s := it.Size
	if !s.Finite() {
		s = it.Content.DefaultSize()
	}
	s.W = vector.Clamp(s.W, minW, MaxDimension)
	s.H = vector.Clamp(s.H, minH, MaxDimension)
	if s != it.Size {
		it.Size = s
		changed = true
	}
	return changed
}

func sanitizeContent(c Content) (Content, bool) {
	switch v := c.(type) {
	case TextBox:
		orig := v
		if !inRange(v.FontSize, MinFontSize, MaxFontSize) {
			v.FontSize = clampFinite(v.FontSize, MinFontSize, MaxFontSize, DefaultFontSize)
		}
		if !vector.ValidHex(v.Color) {
			v.Color = DefaultTextColor
		}
		return v, v != orig
	case Shape:
		orig := v
		switch v.Type {
		case ShapeRectangle, ShapeRoundedRect, ShapeEllipse:
		default:
			v.Type = ShapeRectangle
		}
		v.BorderWidth = clampFinite(v.BorderWidth, 0, MaxBorderWidth, 0)
		if !vector.ValidHex(v.Fill) {
			v.Fill = DefaultShapeFill
		}
		if !vector.ValidHex(v.Border) {
			v.Border = DefaultShapeBorder
		}
		return v, v != orig
	case Arrow:
		orig := v
		if !v.Start.Finite() {
			v.Start = vector.Pt{}
		}
		if !v.End.Finite() {
			v.End = vector.Pt{X: 100}
		}
		switch v.Head {
		case HeadNone, HeadArrow, HeadDiamond, HeadCircle:
		default:
			v.Head = HeadArrow
		}
		v.Thickness = clampFinite(v.Thickness, MinArrowThickness, MaxArrowThickness, DefaultThickness)
		if !vector.ValidHex(v.Color) {
			v.Color = DefaultArrowColor
		}
		return v, v != orig
	default:
		return c, false
	}
}

func clampFinite(v, lo, hi, def float32) float32 {
	f := float64(v)
	if math.IsNaN(f) {
		return def
	}
	return vector.Clamp(v, lo, hi)
}
