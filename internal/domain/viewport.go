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

	"moodboard/internal/vector"
)

// Viewport maps canvas space to screen space: screen = canvas*zoom + offset.
type Viewport struct {
	Offset vector.Pt
	Zoom   float32
}

// DefaultViewport is the view of a freshly created board.
func DefaultViewport() Viewport { return Viewport{Zoom: DefaultZoom} }

// Validate checks that the offset is finite and the zoom lies within MinZoom..MaxZoom.
func (v Viewport) Validate() error {
	if !v.Offset.Finite() {
		return &FieldError{Field: "viewport.offset", Reason: "must be finite"}
	}
	if !inRange(v.Zoom, MinZoom, MaxZoom) {
		return &FieldError{Field: "viewport.zoom", Reason: fmt.Sprintf("must be within %g..%g", float32(MinZoom), float32(MaxZoom))}
	}
	return nil
}

// Transform returns the canvas-to-screen transform.
func (v Viewport) Transform() vector.Affine2D {
	return vector.Translate(v.Offset.X, v.Offset.Y).Mul(vector.Scale(v.Zoom, v.Zoom))
}

// ToScreen maps a canvas point to screen coordinates.
func (v Viewport) ToScreen(p vector.Pt) vector.Pt { return v.Transform().Apply(p) }

// ToCanvas maps a screen point to canvas coordinates.
func (v Viewport) ToCanvas(p vector.Pt) vector.Pt {
	inv, ok := v.Transform().Invert()
	if !ok {
		return p
	}
	return inv.Apply(p)
}

// ZoomAround returns the viewport zoomed by factor while keeping the screen point
// anchor fixed. The resulting zoom is clamped to MinZoom..MaxZoom.
func (v Viewport) ZoomAround(factor float32, anchor vector.Pt) Viewport {
	z := vector.Clamp(v.Zoom*factor, MinZoom, MaxZoom)
	c := v.ToCanvas(anchor)
	return Viewport{
		Offset: vector.Pt{X: anchor.X - c.X*z, Y: anchor.Y - c.Y*z},
		Zoom:   z,
	}
}

// CenterOn returns the viewport with rect r centred in a screen of the given size,
// keeping the current zoom.
func (v Viewport) CenterOn(r vector.Rect, screen vector.Size) Viewport {
	c := r.Center()
	return Viewport{
		Offset: vector.Pt{X: screen.W/2 - c.X*v.Zoom, Y: screen.H/2 - c.Y*v.Zoom},
		Zoom:   v.Zoom,
	}
}

// Sanitize resets a non-finite offset and clamps zoom. It reports whether anything changed.
func (v *Viewport) Sanitize() bool {
	orig := *v
	if !v.Offset.Finite() {
		v.Offset = vector.Pt{}
	}
	v.Zoom = clampFinite(v.Zoom, MinZoom, MaxZoom, DefaultZoom)
	return *v != orig
}
