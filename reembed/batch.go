package reembed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage"
)

// BatchProcessor re-embeds batches of points and writes them back.
type BatchProcessor struct {
	store          storage.VectorStore
	collection     string
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(store storage.VectorStore, collection string, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		store:          store,
		collection:     collection,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process re-embeds points from their stored text and upserts them.
// Points without any text are left untouched. Returns how many points
// were rewritten.
func (bp *BatchProcessor) Process(ctx context.Context, points []*core.Point) (int, error) {
	var (
		texts   []string
		pending []*core.Point
	)
	for _, p := range points {
		if text := p.EmbeddingText(); text != "" {
			texts = append(texts, text)
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("%w: failed after %d attempts: %w", core.ErrEmbeddingService, bp.maxRetries, err)
	}
	if len(embeddings) != len(pending) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(pending), len(embeddings))
	}

	updated := make([]*core.Point, len(pending))
	for i, p := range pending {
		updated[i] = &core.Point{
			ID:         p.ID,
			DocumentID: p.DocumentID,
			Vector:     NormalizeVector(embeddings[i]),
			Payload:    p.Payload,
		}
	}

	err = RetryWithBackoff(ctx, func() error {
		err := bp.store.Upsert(ctx, bp.collection, updated...)
		if errors.Is(err, storage.ErrDimensionMismatch) {
			return Permanent(err)
		}
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to update points: %w", core.ErrStore, err)
	}
	return len(updated), nil
}
