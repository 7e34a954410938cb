package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}
}

func TestNewReembedder_Validation(t *testing.T) {
	store := setupTestStore(t)

	_, err := NewReembedder(store, "", &mockEmbedder{}, nil, nil)
	assert.ErrorIs(t, err, ErrCollectionRequired)

	_, err = NewReembedder(nil, testCollection, &mockEmbedder{}, nil, nil)
	assert.Error(t, err)

	_, err = NewReembedder(store, testCollection, &mockEmbedder{}, &Config{MaxRetries: 0}, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	r, err := NewReembedder(store, testCollection, &mockEmbedder{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), r.config)
}

func TestReembedder_Run(t *testing.T) {
	store := setupTestStore(t)
	seedPoints(t, store, 10)

	var buf bytes.Buffer
	r, err := NewReembedder(store, testCollection, &mockEmbedder{}, testConfig(), &buf)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 10, stats.Reembedded)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Resumed)

	points, err := store.ScrollByDocument(context.Background(), testCollection, "books/core.md")
	require.NoError(t, err)
	require.Len(t, points, 10)
	for _, p := range points {
		assert.True(t, IsNormalized(p.Vector, 1e-6))
		assert.InDelta(t, 1.0/3, p.Vector[0], 1e-6)
	}

	output := buf.String()
	assert.Contains(t, output, "Starting reembedding of 10 points")
	assert.Contains(t, output, "Reembedding complete")
}

func TestReembedder_EmptyCollection(t *testing.T) {
	store := setupTestStore(t)

	var buf bytes.Buffer
	r, err := NewReembedder(store, testCollection, &mockEmbedder{}, testConfig(), &buf)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Contains(t, buf.String(), "No points found")
}

func TestReembedder_MissingCollection(t *testing.T) {
	store := setupTestStore(t)
	r, err := NewReembedder(store, "missing", &mockEmbedder{}, testConfig(), nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestReembedder_EmbeddingError(t *testing.T) {
	store := setupTestStore(t)
	seedPoints(t, store, 5)
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("model unavailable")
		},
	}

	r, err := NewReembedder(store, testCollection, embedder, testConfig(), nil)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingService)
	assert.Zero(t, stats.Reembedded)
}

func TestReembedder_ContextCancellation(t *testing.T) {
	store := setupTestStore(t)
	seedPoints(t, store, 9)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			calls++
			cancel()
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{1, 0, 0}
			}
			return out, nil
		},
	}

	r, err := NewReembedder(store, testCollection, embedder, testConfig(), nil)
	require.NoError(t, err)

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestReembedder_ResumesFromCheckpoint(t *testing.T) {
	store := setupTestStore(t)
	seedPoints(t, store, 9)
	checkpoints, ok := store.(storage.CheckpointStore)
	require.True(t, ok)
	ctx := context.Background()

	// First run dies on the second batch.
	calls := 0
	failing := &mockEmbedder{
		embedTextsFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("out of quota")
			}
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{1, 0, 0}
			}
			return out, nil
		},
	}
	cfg := testConfig()
	cfg.MaxRetries = 1
	r, err := NewReembedder(store, testCollection, failing, cfg, nil, WithCheckpoints(checkpoints))
	require.NoError(t, err)
	_, err = r.Run(ctx)
	require.Error(t, err)

	cp, err := checkpoints.LoadCheckpoint(ctx, CheckpointName(testCollection))
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, 3, cp.Processed)
	assert.Equal(t, 3, cp.Offset.Index())

	// Second run picks up at the fourth point.
	embedder := &mockEmbedder{}
	r, err = NewReembedder(store, testCollection, embedder, cfg, nil, WithCheckpoints(checkpoints))
	require.NoError(t, err)
	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Resumed)
	assert.Equal(t, 6, stats.Reembedded)
	assert.Len(t, embedder.embedded(), 6)
	assert.NotContains(t, embedder.embedded(), "chunk 0")

	cp, err = checkpoints.LoadCheckpoint(ctx, CheckpointName(testCollection))
	require.NoError(t, err)
	assert.Nil(t, cp, "checkpoint cleared after a complete run")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 100, config.ReportInterval)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 1*time.Second, config.RetryDelay)
}

func TestCheckpointName(t *testing.T) {
	assert.Equal(t, "reembed:game_npcs", CheckpointName("game_npcs"))
}
