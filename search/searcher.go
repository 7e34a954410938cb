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

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/gateway"
	"github.com/poiesic/lorevault/storage"
)

const (
	// DefaultMinScore drops weak semantic matches.
	DefaultMinScore = 0.3

	// verbatimBoost is added when stored text contains every query word.
	verbatimBoost = 0.3
)

// Hit is one scored point from one collection.
type Hit struct {
	Collection string
	Target     core.CollectionTarget
	Point      *core.Point
	Similarity float32
	Score      float32
	Verbatim   bool
}

// Text returns the stored text of the hit.
func (h *Hit) Text() string {
	return h.Point.EmbeddingText()
}

// Source returns the file the hit came from.
func (h *Hit) Source() string {
	if s, ok := h.Point.Payload[core.PayloadSourceFile].(string); ok {
		return s
	}
	return h.Point.DocumentID
}

// Searcher runs semantic search over the content and entity collections.
type Searcher struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	collections gateway.Collections
	minScore    float32
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithPrefix selects the collection set to search.
func WithPrefix(prefix string) Option {
	return func(s *Searcher) error {
		if prefix == "" {
			return errors.New("collection prefix cannot be empty")
		}
		s.collections = gateway.CollectionsFor(prefix)
		return nil
	}
}

// WithMinScore sets the minimum cosine similarity for a hit.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("min score must be between -1 and 1, got %g", score)
		}
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		store:       store,
		embedder:    provider.Embedder(),
		collections: gateway.CollectionsFor(gateway.DefaultPrefix),
		minScore:    DefaultMinScore,
		logger:      slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search embeds query and returns up to limit hits across targets, best
// first. A nil or empty targets searches every collection.
func (s *Searcher) Search(ctx context.Context, query string, targets []core.CollectionTarget, limit int) ([]*Hit, error) {
	return s.SearchWithMonitor(ctx, query, targets, limit, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
// Collections that do not exist yet are skipped.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, targets []core.CollectionTarget, limit int, monitor SearchMonitor) ([]*Hit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return []*Hit{}, nil
	}
	if len(targets) == 0 {
		targets = core.AllTargets()
	}

	monitor.Start(query)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingService, err)
	}
	monitor.AfterEmbedding(len(vector))

	var hits []*Hit
	for _, target := range targets {
		collection, err := s.collections.Name(target)
		if err != nil {
			return nil, err
		}

		// Over-fetch so the verbatim boost can reorder near misses.
		matches, err := s.store.Search(ctx, collection, vector, limit*2, s.minScore)
		if errors.Is(err, storage.ErrCollectionNotFound) {
			s.logger.Debug("collection missing, skipping", "collection", collection)
			monitor.CollectionMissing(collection)
			continue
		}
		if err != nil {
			s.logger.Error("error searching collection", "collection", collection, "err", err)
			return nil, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		monitor.AfterCollectionSearch(collection, len(matches))

		for _, match := range matches {
			hit := &Hit{
				Collection: collection,
				Target:     target,
				Point:      match.Point,
				Similarity: match.Score,
				Score:      match.Score,
			}
			if queryCoverage(hit.Text(), query) == 1 {
				hit.Verbatim = true
				hit.Score += verbatimBoost
				monitor.VerbatimHit(hit)
			}
			hits = append(hits, hit)
		}
	}

	slices.SortStableFunc(hits, func(a, b *Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []*Hit{}
	}
	monitor.Finish(hits)

	s.logger.Debug("search complete", "query", query, "hits", len(hits))
	return hits, nil
}
