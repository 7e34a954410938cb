package reembed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder for testing
type mockEmbedder struct {
	embedTextFunc  func(ctx context.Context, text string) ([]float32, error)
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu    sync.Mutex
	texts []string
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if m.embedTextFunc != nil {
		return m.embedTextFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.texts = append(m.texts, texts...)
	m.mu.Unlock()

	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	// Default: return unnormalized vectors for each text
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0} // magnitude = 3.0
	}
	return result, nil
}

func (m *mockEmbedder) embedded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func TestBatchProcessor_Process(t *testing.T) {
	store := setupTestStore(t)
	points := seedPoints(t, store, 3)
	embedder := &mockEmbedder{}

	bp := NewBatchProcessor(store, testCollection, embedder, 3, time.Millisecond)
	n, err := bp.Process(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"chunk 0", "chunk 1", "chunk 2"}, embedder.embedded())

	stored, err := store.ScrollByDocument(context.Background(), testCollection, "books/core.md")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, p := range stored {
		assert.InDeltaSlice(t, []float32{1.0 / 3, 2.0 / 3, 2.0 / 3}, p.Vector, 1e-6)
		assert.NotEmpty(t, p.Payload[core.PayloadText], "payload is preserved")
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	store := setupTestStore(t)
	embedder := &mockEmbedder{}

	n, err := NewBatchProcessor(store, testCollection, embedder, 3, time.Millisecond).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, embedder.embedded())
}

func TestBatchProcessor_SkipsPointsWithoutText(t *testing.T) {
	store := setupTestStore(t)
	points := seedPoints(t, store, 2)
	points[1].Payload = map[string]any{"chunk_index": 1}

	n, err := NewBatchProcessor(store, testCollection, &mockEmbedder{}, 3, time.Millisecond).Process(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBatchProcessor_EmbeddingError(t *testing.T) {
	store := setupTestStore(t)
	points := seedPoints(t, store, 2)
	calls := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			calls++
			return nil, errors.New("embedding service down")
		},
	}

	_, err := NewBatchProcessor(store, testCollection, embedder, 2, time.Millisecond).Process(context.Background(), points)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "embedding service down")
	assert.Equal(t, 2, calls)
}

func TestBatchProcessor_Retry(t *testing.T) {
	store := setupTestStore(t)
	points := seedPoints(t, store, 2)
	calls := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("temporary failure")
			}
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{0, 3, 4}
			}
			return out, nil
		},
	}

	n, err := NewBatchProcessor(store, testCollection, embedder, 3, time.Millisecond).Process(context.Background(), points)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, calls)
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	store := setupTestStore(t)
	points := seedPoints(t, store, 2)
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
	}

	_, err := NewBatchProcessor(store, testCollection, embedder, 1, time.Millisecond).Process(context.Background(), points)
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestBatchProcessor_DimensionMismatchIsNotRetried(t *testing.T) {
	store := setupTestStore(t)
	points := seedPoints(t, store, 1)
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1, 0, 0, 0}}, nil
		},
	}

	start := time.Now()
	_, err := NewBatchProcessor(store, testCollection, embedder, 5, time.Second).Process(context.Background(), points)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.ErrorIs(t, err, core.ErrStore)
	assert.Less(t, time.Since(start), time.Second, "no backoff for a permanent failure")
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	store := setupTestStore(t)
	points := seedPoints(t, store, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBatchProcessor(store, testCollection, &mockEmbedder{}, 3, time.Millisecond).Process(ctx, points)
	assert.ErrorIs(t, err, context.Canceled)
}
