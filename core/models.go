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

package core

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored points.
// Point IDs are derived from content so re-imports overwrite rather than duplicate.
type ID uint64

// MaxChunksPerDocument bounds the index space reserved for a single document.
// The low 24 bits of a point ID carry the chunk index.
const MaxChunksPerDocument = 1 << 24

const indexMask = ID(MaxChunksPerDocument - 1)

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentBase returns the ID prefix shared by every point of a document.
func DocumentBase(documentID string) ID {
	return IDFromContent(documentID) &^ indexMask
}

// PointID returns the ID of the point holding chunk index of a document.
// IDs of one document share their high bits and increase with the index,
// so ID-ordered scans return a document's chunks in index order.
func PointID(documentID string, index int) ID {
	return DocumentBase(documentID) | (ID(index) & indexMask)
}

// Index returns the chunk index encoded in a point ID.
func (id ID) Index() int {
	return int(id & indexMask)
}

// CollectionTarget identifies which collection a point belongs to.
type CollectionTarget int

const (
	// TargetRulebook holds canonical reference content.
	TargetRulebook CollectionTarget = iota + 1
	// TargetAdventurePath holds campaign-specific narrative content.
	TargetAdventurePath
	// TargetEntity holds extracted entity records.
	TargetEntity
)

var targetNames = map[CollectionTarget]string{
	TargetRulebook:      "rulebook_content",
	TargetAdventurePath: "adventure_path_content",
	TargetEntity:        "entity_store",
}

// AllTargets lists every collection target in a stable order.
func AllTargets() []CollectionTarget {
	return []CollectionTarget{TargetRulebook, TargetAdventurePath, TargetEntity}
}

// ContentTargets lists the targets that hold document chunks.
func ContentTargets() []CollectionTarget {
	return []CollectionTarget{TargetRulebook, TargetAdventurePath}
}

func (t CollectionTarget) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CollectionTarget(%d)", int(t))
}

// MarshalText renders the target by name so exported summaries stay readable.
func (t CollectionTarget) MarshalText() ([]byte, error) {
	if err := ValidateTarget(t); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses a target name produced by MarshalText.
func (t *CollectionTarget) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTarget maps a target name back to its value.
func ParseTarget(name string) (CollectionTarget, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for target, candidate := range targetNames {
		if candidate == name {
			return target, nil
		}
	}
	switch name {
	case "rulebook", "rulebooks":
		return TargetRulebook, nil
	case "adventure", "adventurepaths", "adventure_path":
		return TargetAdventurePath, nil
	case "entity", "entities", "npcs":
		return TargetEntity, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTarget, name)
}

// SourceDocument is a document read from disk, ready to be chunked.
type SourceDocument struct {
	ID       string // Stable document identifier (the cleaned source path)
	Name     string // Base file name used for routing
	Path     string
	Text     string // Cleaned text that gets chunked
	Metadata DocumentMetadata
}

// DocumentMetadata holds lightweight structural facts about a document.
type DocumentMetadata struct {
	FileHash     string            `json:"file_hash,omitempty"`
	CharCount    int               `json:"char_count"`
	WordCount    int               `json:"word_count"`
	LineCount    int               `json:"line_count"`
	Title        string            `json:"title,omitempty"`
	Headers      []string          `json:"headers,omitempty"`
	Frontmatter  map[string]any    `json:"frontmatter,omitempty"`
	ContentHints map[string]bool   `json:"content_hints,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Chunk is one overlapping window of a document's text.
// Start and End are rune offsets into the document text.
type Chunk struct {
	DocumentID string
	Index      int
	Total      int
	Text       string
	Overlap    int // Runes shared with the previous chunk
	Start      int
	End        int
}

// ExtractedEntity is a structured record pulled out of a chunk,
// for example a character stat block.
type ExtractedEntity struct {
	Name           string            `json:"name"`
	Category       string            `json:"category"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Stats          map[string]string `json:"stats,omitempty"`
	Abilities      []string          `json:"abilities,omitempty"`
	Description    string            `json:"description,omitempty"`
	GameSystem     string            `json:"game_system,omitempty"`
	Confidence     float64           `json:"confidence"`
	Canonical      bool              `json:"canonical"`
	SourceDocument string            `json:"source_document"`
	SourceFile     string            `json:"source_file"`
	ChunkIndex     int               `json:"chunk_index"`
	RawText        string            `json:"raw_text,omitempty"`
}

// EmbeddingText returns the text an entity is embedded from.
// The source excerpt is preferred, then the description, then the name.
func (e *ExtractedEntity) EmbeddingText() string {
	switch {
	case strings.TrimSpace(e.RawText) != "":
		return e.RawText
	case strings.TrimSpace(e.Description) != "":
		return e.Description
	default:
		return e.Name
	}
}

// Point is a vector with its payload as stored in a collection.
type Point struct {
	ID         ID
	DocumentID string
	Vector     []float32
	Payload    map[string]any
}

// Payload keys shared by every backend.
const (
	PayloadDocumentID  = "document_id"
	PayloadText        = "text"
	PayloadRawText     = "raw_text"
	PayloadDescription = "description"
	PayloadName        = "name"
	PayloadSourceFile  = "source_file"
)

// EmbeddingText returns the text the point's vector was computed from.
func (p *Point) EmbeddingText() string {
	for _, key := range []string{PayloadText, PayloadRawText, PayloadDescription, PayloadName} {
		if s, ok := p.Payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// ScoredPoint is a point returned from a similarity search.
type ScoredPoint struct {
	Point *Point
	Score float32
}

// CollectionInfo describes a vector collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	Dimension   int    `json:"dimension"`
	PointsCount int    `json:"points_count"`
	Status      string `json:"status"`
}
