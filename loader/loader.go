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


// Package loader reads markdown documents from disk and prepares them for
// chunking: it validates the encoding, gathers lightweight metadata and
// strips markup that should not be embedded.
package loader

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/lorevault/core"
)

var (
	frontmatterPattern = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)
	htmlCommentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
	blankRunPattern    = regexp.MustCompile(`\n{3,}`)
)

// Loader reads documents from the filesystem.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader.
func New() *Loader {
	return &Loader{logger: slog.Default().With("component", "loader")}
}

// Load reads the document at path. Failures wrap core.ErrLoad.
func (l *Loader) Load(path string) (*core.SourceDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrLoad, path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrLoad, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", core.ErrLoad, path)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	doc := &core.SourceDocument{
		ID:       DocumentID(abs),
		Name:     filepath.Base(abs),
		Path:     abs,
		Text:     Clean(content),
		Metadata: ExtractMetadata(content),
	}
	l.logger.Debug("loaded document",
		"path", abs,
		"chars", doc.Metadata.CharCount,
		"cleaned_chars", utf8.RuneCountInString(doc.Text))
	return doc, nil
}

// Load reads the document at path with a default Loader.
func Load(path string) (*core.SourceDocument, error) {
	return New().Load(path)
}

// DocumentID derives the stable identifier of the document at path:
// its absolute, slash-separated form.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// Clean removes frontmatter and HTML comments, collapses runs of blank
// lines and trims the result.
func Clean(content string) string {
	content = frontmatterPattern.ReplaceAllString(content, "")
	content = htmlCommentPattern.ReplaceAllString(content, "")
	content = blankRunPattern.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

func fileHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
