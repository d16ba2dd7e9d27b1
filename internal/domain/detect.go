/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"net/url"
	"path/filepath"
	"strings"
)

var (
	imageExts    = set(".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff")
	audioExts    = set(".mp3", ".wav", ".ogg", ".flac", ".m4a", ".aac")
	videoExts    = set(".mp4", ".webm", ".mov", ".mkv", ".avi", ".m4v")
	markdownExts = set(".md", ".markdown")
)

var languages = map[string]string{
	".go":    "go",
	".rs":    "rust",
	".py":    "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "tsx",
	".jsx":   "jsx",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "bash",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".lua":   "lua",
	".zig":   "zig",
}

func set(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// LanguageFromPath returns the syntax language for a source file, or "" if unknown.
func LanguageFromPath(path string) string {
	return languages[strings.ToLower(filepath.Ext(path))]
}

// ContentForPath picks the variant for a dropped file by extension. ok is false for
// files the board cannot show.
func ContentForPath(path string) (Content, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, hit := imageExts[ext]; hit {
		return Image{Path: path}, true
	}
	if _, hit := audioExts[ext]; hit {
		return Audio{Path: path}, true
	}
	if _, hit := videoExts[ext]; hit {
		return Video{Path: path}, true
	}
	if _, hit := markdownExts[ext]; hit {
		return Markdown{Path: path}, true
	}
	if ext == ".pdf" {
		return Pdf{Path: path}, true
	}
	if lang := languages[ext]; lang != "" {
		return Code{Path: path, Language: lang}, true
	}
	return nil, false
}

// ContentForURL turns a pasted URL into a YouTube item when it points at a video and
// into a Link otherwise.
func ContentForURL(raw string) Content {
	raw = strings.TrimSpace(raw)
	if id, ok := ExtractYouTubeID(raw); ok {
		return YouTube{VideoID: id}
	}
	return Link{URL: raw}
}

// ExtractYouTubeID understands watch, short-link, embed and shorts URLs.
func ExtractYouTubeID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}
	id, _, _ = strings.Cut(id, "/")
	if !validVideoID(id) {
		return "", false
	}
	return id, true
}

func validVideoID(id string) bool {
	if len(id) != 11 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
