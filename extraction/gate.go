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

package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/routing"
)

const (
	// DefaultThreshold is the minimum confidence for keeping a candidate.
	DefaultThreshold = 0.7

	// RawTextLimit bounds the source excerpt stored with an entity, in runes.
	RawTextLimit = 500
)

// Outcome describes what happened to one chunk at the gate.
type Outcome int

const (
	// OutcomeRejected means the pre-filter turned the chunk away; the
	// extractor was not called.
	OutcomeRejected Outcome = iota
	// OutcomeNoEntity means the extractor found nothing usable.
	OutcomeNoEntity
	// OutcomeLowConfidence means a candidate scored below the threshold.
	OutcomeLowConfidence
	// OutcomeAccepted means Entity holds a record ready to store.
	OutcomeAccepted
	// OutcomeFailed means the extraction service failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeNoEntity:
		return "no_entity"
	case OutcomeLowConfidence:
		return "low_confidence"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the gate's verdict for a chunk.
type Result struct {
	Outcome    Outcome
	Entity     *core.ExtractedEntity // set only for OutcomeAccepted
	Confidence float64               // candidate confidence, when there was one
}

// Gate combines the pre-filter, the extraction service and the confidence
// threshold.
type Gate struct {
	extractor ai.EntityExtractor
	threshold float64
	qualifies func(string) bool
	logger    *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate) error

// WithThreshold sets the minimum confidence. Must be within [0,1].
func WithThreshold(threshold float64) Option {
	return func(g *Gate) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: threshold %v", core.ErrConfidenceRange, threshold)
		}
		g.threshold = threshold
		return nil
	}
}

// WithPrefilter replaces Qualifies as the pre-filter.
func WithPrefilter(fn func(string) bool) Option {
	return func(g *Gate) error {
		if fn == nil {
			return fmt.Errorf("prefilter cannot be nil")
		}
		g.qualifies = fn
		return nil
	}
}

// WithLogger sets the logger used by the gate.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		g.logger = logger.With("component", "extraction-gate")
		return nil
	}
}

// NewGate creates a gate in front of extractor.
func NewGate(extractor ai.EntityExtractor, opts ...Option) (*Gate, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	g := &Gate{
		extractor: extractor,
		threshold: DefaultThreshold,
		qualifies: Qualifies,
		logger:    slog.Default().With("component", "extraction-gate"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Threshold returns the configured minimum confidence.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Extract runs one chunk of doc through the gate. target is where the
// document was routed; it decides the canonical flag of an accepted entity.
// Adventure content must be filtered out by the caller before reaching here.
//
// A service failure is returned wrapped in core.ErrExtractionService along
// with an OutcomeFailed result. Low confidence is not an error.
func (g *Gate) Extract(ctx context.Context, doc *core.SourceDocument, chunk core.Chunk, target core.CollectionTarget) (Result, error) {
	if !g.qualifies(chunk.Text) {
		return Result{Outcome: OutcomeRejected}, nil
	}

	candidate, err := g.extractor.ExtractEntity(ctx, chunk.Text)
	if err != nil {
		g.logger.Warn("extraction service failed",
			"document", doc.ID,
			"chunk", chunk.Index,
			"err", err)
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: chunk %d: %w", core.ErrExtractionService, chunk.Index, err)
	}
	if candidate == nil || strings.TrimSpace(candidate.Name) == "" {
		return Result{Outcome: OutcomeNoEntity}, nil
	}

	if candidate.Confidence < g.threshold {
		g.logger.Debug("candidate below threshold",
			"document", doc.ID,
			"chunk", chunk.Index,
			"name", candidate.Name,
			"confidence", candidate.Confidence,
			"threshold", g.threshold)
		return Result{Outcome: OutcomeLowConfidence, Confidence: candidate.Confidence}, nil
	}

	entity := newEntity(candidate, doc, chunk, target)
	if err := core.ValidateEntity(entity); err != nil {
		// Out-of-range confidence or similar: the service answered, but not usefully.
		g.logger.Warn("discarding invalid candidate", "document", doc.ID, "chunk", chunk.Index, "err", err)
		return Result{Outcome: OutcomeNoEntity}, nil
	}
	return Result{Outcome: OutcomeAccepted, Entity: entity, Confidence: candidate.Confidence}, nil
}

func newEntity(c *ai.EntityCandidate, doc *core.SourceDocument, chunk core.Chunk, target core.CollectionTarget) *core.ExtractedEntity {
	gameSystem := c.GameSystem
	if gameSystem == "" {
		gameSystem = DetectGameSystem(chunk.Text)
	}
	category := c.Category
	if category == "" {
		category = "other"
	}
	return &core.ExtractedEntity{
		Name:           strings.TrimSpace(c.Name),
		Category:       category,
		Attributes:     c.Attributes,
		Stats:          c.Stats,
		Abilities:      c.Abilities,
		Description:    c.Description,
		GameSystem:     gameSystem,
		Confidence:     c.Confidence,
		Canonical:      routing.IsCanonical(target),
		SourceDocument: doc.ID,
		SourceFile:     doc.Name,
		ChunkIndex:     chunk.Index,
		RawText:        truncate(chunk.Text, RawTextLimit),
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
