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


package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/routing"
	"github.com/poiesic/lorevault/storage"
)

// DefaultBatchSize is how many texts are embedded per request.
const DefaultBatchSize = 64

// probeText is embedded by CheckConnectivity to learn the vector size.
const probeText = "connectivity check"

// Gateway embeds and stores chunks and entities.
// Safe for concurrent use when the store and embedder are.
type Gateway struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	collections Collections
	batchSize   int
	vectorSize  int
	logger      *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithPrefix sets the collection name prefix.
func WithPrefix(prefix string) Option {
	return func(g *Gateway) error {
		if prefix == "" {
			return errors.New("collection prefix cannot be empty")
		}
		g.collections = CollectionsFor(prefix)
		return nil
	}
}

// WithBatchSize sets how many texts are embedded per request.
func WithBatchSize(size int) Option {
	return func(g *Gateway) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		g.batchSize = size
		return nil
	}
}

// WithVectorSize pins the expected embedding dimension. Zero accepts
// whatever the embedder produces.
func WithVectorSize(size int) Option {
	return func(g *Gateway) error {
		if size < 0 {
			return fmt.Errorf("vector size cannot be negative, got %d", size)
		}
		g.vectorSize = size
		return nil
	}
}

// WithLogger sets the logger used by the gateway.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		g.logger = logger.With("component", "gateway")
		return nil
	}
}

// New creates a gateway over store and embedder.
func New(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if embedder == nil {
		return nil, errors.New("embedder cannot be nil")
	}
	g := &Gateway{
		store:       store,
		embedder:    embedder,
		collections: CollectionsFor(DefaultPrefix),
		batchSize:   DefaultBatchSize,
		logger:      slog.Default().With("component", "gateway"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Collections returns the collection names in use.
func (g *Gateway) Collections() Collections {
	return g.collections
}

// CheckConnectivity verifies that the store and the embedding service
// answer, and returns the embedding dimension. Every failure wraps
// core.ErrConnectivity.
func (g *Gateway) CheckConnectivity(ctx context.Context) (int, error) {
	if err := g.store.Ping(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w: %w", core.ErrConnectivity, core.ErrStore, err)
	}

	vector, err := g.embedder.EmbedText(ctx, probeText)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %w", core.ErrConnectivity, core.ErrEmbeddingService, err)
	}
	if len(vector) == 0 {
		return 0, fmt.Errorf("%w: %w: empty embedding", core.ErrConnectivity, core.ErrEmbeddingService)
	}
	if g.vectorSize > 0 && len(vector) != g.vectorSize {
		return 0, fmt.Errorf("%w: %w: embedder returns %d values, configured %d",
			core.ErrConnectivity, storage.ErrDimensionMismatch, len(vector), g.vectorSize)
	}
	return len(vector), nil
}

// EnsureCollections creates the three collections if they are missing.
func (g *Gateway) EnsureCollections(ctx context.Context, dimension int) error {
	for _, target := range core.AllTargets() {
		name, _ := g.collections.Name(target)
		if err := g.store.EnsureCollection(ctx, name, dimension); err != nil {
			return fmt.Errorf("%w: ensure %s: %w", core.ErrStore, name, err)
		}
	}
	return nil
}

// Exists reports whether documentID already has chunks in either content
// collection. A missing collection counts as "not present".
func (g *Gateway) Exists(ctx context.Context, documentID string) (bool, error) {
	for _, target := range core.ContentTargets() {
		name, _ := g.collections.Name(target)
		found, err := g.store.ExistsByDocument(ctx, name, documentID)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				continue
			}
			return false, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// StoreChunks embeds chunks and writes them to target's collection.
// Point IDs are derived from the document ID and chunk index, so storing
// the same document again overwrites its points.
func (g *Gateway) StoreChunks(ctx context.Context, doc *core.SourceDocument, chunks []core.Chunk, target core.CollectionTarget) (int, error) {
	if target != core.TargetRulebook && target != core.TargetAdventurePath {
		return 0, fmt.Errorf("%w: chunks cannot be stored in %s", core.ErrInvalidTarget, target)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	collection, _ := g.collections.Name(target)

	stored := 0
	for start := 0; start < len(chunks); start += g.batchSize {
		end := min(start+g.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := g.embed(ctx, texts)
		if err != nil {
			return stored, err
		}

		points := make([]*core.Point, len(batch))
		for i, c := range batch {
			points[i] = &core.Point{
				ID:         core.PointID(doc.ID, c.Index),
				DocumentID: doc.ID,
				Vector:     vectors[i],
				Payload:    chunkPayload(doc, c, target),
			}
		}
		if err := g.store.Upsert(ctx, collection, points...); err != nil {
			return stored, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		stored += len(points)
	}

	g.logger.Debug("stored chunks", "document", doc.ID, "collection", collection, "count", stored)
	return stored, nil
}

// StoreEntities embeds entities and writes them to the entity collection.
// Each entity's canonical flag is set from target, the collection its
// source document was routed to.
func (g *Gateway) StoreEntities(ctx context.Context, entities []*core.ExtractedEntity, target core.CollectionTarget) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	if err := core.ValidateTarget(target); err != nil {
		return 0, err
	}

	texts := make([]string, len(entities))
	for i, e := range entities {
		e.Canonical = routing.IsCanonical(target)
		if err := core.ValidateEntity(e); err != nil {
			return 0, err
		}
		texts[i] = e.EmbeddingText()
	}

	stored := 0
	for start := 0; start < len(entities); start += g.batchSize {
		end := min(start+g.batchSize, len(entities))
		vectors, err := g.embed(ctx, texts[start:end])
		if err != nil {
			return stored, err
		}

		points := make([]*core.Point, 0, end-start)
		for i, e := range entities[start:end] {
			points = append(points, &core.Point{
				ID:         core.PointID(e.SourceDocument, e.ChunkIndex),
				DocumentID: e.SourceDocument,
				Vector:     vectors[i],
				Payload:    entityPayload(e),
			})
		}
		if err := g.store.Upsert(ctx, g.collections.Entity, points...); err != nil {
			return stored, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		stored += len(points)
	}

	g.logger.Debug("stored entities", "count", stored, "canonical", routing.IsCanonical(target))
	return stored, nil
}

func (g *Gateway) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := g.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingService, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", core.ErrEmbeddingService, len(vectors), len(texts))
	}
	return vectors, nil
}

func chunkPayload(doc *core.SourceDocument, c core.Chunk, target core.CollectionTarget) map[string]any {
	payload := map[string]any{
		core.PayloadText:       c.Text,
		core.PayloadSourceFile: doc.Name,
		"chunk_index":          c.Index,
		"total_chunks":         c.Total,
		"overlap":              c.Overlap,
		"file_path":            doc.Path,
		"content_type":         contentType(target),
	}
	if doc.Metadata.Title != "" {
		payload["title"] = doc.Metadata.Title
	}
	if doc.Metadata.FileHash != "" {
		payload["file_hash"] = doc.Metadata.FileHash
	}
	return payload
}

func entityPayload(e *core.ExtractedEntity) map[string]any {
	return map[string]any{
		core.PayloadName:        e.Name,
		core.PayloadDescription: e.Description,
		core.PayloadRawText:     e.RawText,
		core.PayloadSourceFile:  e.SourceFile,
		"category":              e.Category,
		"attributes":            e.Attributes,
		"stats":                 e.Stats,
		"abilities":             e.Abilities,
		"game_system":           e.GameSystem,
		"confidence":            e.Confidence,
		"canonical":             e.Canonical,
		"source_document":       e.SourceDocument,
		"chunk_index":           e.ChunkIndex,
		"content_type":          contentType(core.TargetEntity),
	}
}
