/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package media inspects dropped files so new items get a sensible initial size.
package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"moodboard/internal/domain"
	"moodboard/internal/vector"
)

// ErrUnsupported is returned for files no registered decoder understands.
var ErrUnsupported = errors.New("unsupported image format")

// ProbeImage reads only the image header and returns the pixel size and format name.
func ProbeImage(path string) (vector.Size, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return vector.Size{}, "", err
	}
	defer func() { _ = f.Close() }()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return vector.Size{}, "", fmt.Errorf("%s: %w", path, ErrUnsupported)
		}
		return vector.Size{}, "", fmt.Errorf("probe %s: %w", path, err)
	}
	return vector.Size{W: float32(cfg.Width), H: float32(cfg.Height)}, format, nil
}

// ContentForFile resolves the content for a dropped file. Images are probed so their
// default size follows the picture's aspect ratio; a failed probe falls back to the
// generic image size.
func ContentForFile(path string) (domain.Content, bool) {
	c, ok := domain.ContentForPath(path)
	if !ok {
		return nil, false
	}
	if img, isImage := c.(domain.Image); isImage {
		if sz, _, err := ProbeImage(path); err == nil {
			img.Natural = sz
			return img, true
		}
	}
	return c, true
}
