/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"moodboard/internal/domain"
	"moodboard/internal/vector"
)

var (
	canvasBackground = color.NRGBA{R: 30, G: 30, B: 34, A: 255}
	selectionStroke  = color.NRGBA{R: 0, G: 170, B: 255, A: 255}
	cardStroke       = color.NRGBA{R: 70, G: 70, B: 78, A: 255}
)

// kindFill is the card colour of items that carry no colour of their own.
var kindFill = map[domain.Kind]color.NRGBA{
	domain.KindImage:    {R: 52, G: 58, B: 70, A: 255},
	domain.KindPdf:      {R: 120, G: 40, B: 40, A: 255},
	domain.KindMarkdown: {R: 44, G: 62, B: 80, A: 255},
	domain.KindCode:     {R: 24, G: 24, B: 28, A: 255},
	domain.KindYouTube:  {R: 160, G: 20, B: 20, A: 255},
	domain.KindAudio:    {R: 40, G: 90, B: 60, A: 255},
	domain.KindVideo:    {R: 60, G: 40, B: 90, A: 255},
	domain.KindLink:     {R: 40, G: 70, B: 110, A: 255},
	domain.KindTextBox:  {A: 0},
}

func nrgba(c vector.Color) color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

func parseColor(s string, def color.NRGBA) color.NRGBA {
	c, err := vector.ParseHex(s)
	if err != nil {
		return def
	}
	return nrgba(c)
}

// itemStyle returns fill, stroke and text colour for an item card.
func itemStyle(it domain.CanvasItem) (fill, stroke, text color.NRGBA) {
	stroke, text = cardStroke, nrgba(vector.White)
	switch c := it.Content.(type) {
	case domain.Shape:
		return parseColor(c.Fill, kindFill[domain.KindImage]), parseColor(c.Border, cardStroke), text
	case domain.TextBox:
		return color.NRGBA{}, color.NRGBA{}, parseColor(c.Color, text)
	case domain.Arrow:
		col := parseColor(c.Color, text)
		return color.NRGBA{}, col, col
	case nil:
		return kindFill[domain.KindImage], stroke, text
	default:
		return kindFill[c.Kind()], stroke, text
	}
}
