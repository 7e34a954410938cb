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

// Package chunking splits document text into overlapping, boundary-aware windows.
package chunking

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/poiesic/lorevault/core"
)

const (
	// DefaultSize is the default window length in characters.
	DefaultSize = 1000
	// DefaultOverlap is the default number of characters shared by consecutive windows.
	DefaultOverlap = 200
	// DefaultLookBack bounds how far back from a window end a boundary is searched for.
	DefaultLookBack = 200
)

// ErrInvalidWindow is returned when size and overlap do not satisfy size > 0 and 0 <= overlap < size.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunker splits text into windows of at most size characters.
// Lengths and offsets are counted in runes, not bytes.
type Chunker struct {
	size     int
	overlap  int
	lookBack int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLookBack sets how many characters before a window end are searched
// for a paragraph or sentence boundary.
func WithLookBack(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.lookBack = n
		}
	}
}

// New creates a chunker for the given window size and overlap.
func New(size, overlap int, opts ...Option) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidWindow, size, overlap)
	}
	c := &Chunker{
		size:     size,
		overlap:  overlap,
		lookBack: DefaultLookBack,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chunk splits text with a one-off chunker.
func Chunk(documentID, text string, size, overlap int) ([]core.Chunk, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(documentID, text), nil
}

// Split returns the windows of text in order.
//
// A window that ends inside the text is pulled back to the nearest paragraph
// break, then the nearest sentence end, within the look-back range. Without
// either the raw cut is used. The next window starts overlap characters
// before the accepted end, so removing each chunk's leading Overlap
// characters and concatenating reproduces text exactly.
func (c *Chunker) Split(documentID, text string) []core.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []core.Chunk
	start, prevEnd := 0, 0
	for {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.boundary(runes, start, end)
		}

		overlap := 0
		if len(chunks) > 0 {
			overlap = prevEnd - start
		}
		chunks = append(chunks, core.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       string(runes[start:end]),
			Overlap:    overlap,
			Start:      start,
			End:        end,
		})

		if end == n {
			break
		}
		prevEnd = end
		start = end - c.overlap
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// boundary picks the cut position for a window [start, end) that ends inside the text.
// Candidates stay above start+overlap so the following window always advances.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	lo := start + c.overlap + 1
	if limit := end - c.lookBack; limit > lo {
		lo = limit
	}
	if lo > end {
		return end
	}

	for p := end; p >= lo; p-- {
		if p >= 2 && runes[p-1] == '\n' && runes[p-2] == '\n' {
			return p
		}
	}

	for p := end; p >= lo; p-- {
		if isSentenceEnd(runes[p-1]) && (p == len(runes) || unicode.IsSpace(runes[p])) {
			return p
		}
	}

	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
