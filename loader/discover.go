// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/poiesic/lorevault/core"
)

// Extensions lists the file extensions treated as markdown.
var Extensions = []string{".md", ".markdown", ".mdown", ".mkd"}

// IsMarkdown reports whether path has a markdown extension.
func IsMarkdown(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// Discover lists the markdown files under root, sorted. A file root is
// returned as-is when it is markdown. excludes are doublestar patterns
// matched against both the path relative to root and the base name.
func Discover(root string, recursive bool, excludes []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrLoad, err)
	}
	if !info.IsDir() {
		if !IsMarkdown(root) {
			return nil, fmt.Errorf("%w: %s is not a markdown file", core.ErrLoad, root)
		}
		return []string{root}, nil
	}

	pattern := "*"
	if recursive {
		pattern = "**/*"
	}

	var files []string
	err = doublestar.GlobWalk(os.DirFS(root), pattern, func(rel string, d fs.DirEntry) error {
		if d.IsDir() || !IsMarkdown(rel) || excluded(rel, excludes) {
			return nil
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrLoad, err)
	}
	slices.Sort(files)
	return files, nil
}

func excluded(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
