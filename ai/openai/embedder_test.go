package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/lorevault/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer answers /embeddings with one vector per input, or with
// vectors produced by respond when set.
func embeddingServer(t *testing.T, respond func(inputs []string) [][]float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		vectors := respond(req.Input)
		data := make([]map[string]any, len(vectors))
		for i, v := range vectors {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": v}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-embed",
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(host),
		ai.WithEmbeddingModel("test-embed"),
		ai.WithExtractorModel("test-chat"),
	)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	srv := embeddingServer(t, func(inputs []string) [][]float32 {
		out := make([][]float32, len(inputs))
		for i := range inputs {
			out[i] = []float32{float32(i), 1, 0}
		}
		return out
	})

	e, err := newEmbedder(testConfig(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Dimension())

	vectors, err := e.EmbedTexts(context.Background(), []string{"goblin", "ogre"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1, 0}, vectors[1])
	assert.Equal(t, 3, e.Dimension())

	single, err := e.EmbedText(context.Background(), "dragon")
	require.NoError(t, err)
	assert.Len(t, single, 3)

	empty, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbedder_RejectsShortResponse(t *testing.T) {
	srv := embeddingServer(t, func(inputs []string) [][]float32 {
		return [][]float32{{1, 2}}
	})

	e, err := newEmbedder(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 vectors for 2 texts")
}

func TestEmbedder_RejectsRaggedVectors(t *testing.T) {
	srv := embeddingServer(t, func(inputs []string) [][]float32 {
		return [][]float32{{1, 2}, {1, 2, 3}}
	})

	e, err := newEmbedder(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
	assert.Equal(t, 0, e.Dimension())
}

func TestNewProvider(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig("http://localhost:11434")
		cfg.EmbeddingModel = ""
		_, err := NewProvider(cfg)
		assert.Error(t, err)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		provider, err := NewProvider(testConfig("http://localhost:11434"))
		require.NoError(t, err)
		assert.NotNil(t, provider.Embedder())
		assert.NotNil(t, provider.EntityExtractor())

		p := provider.(*Provider)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		assert.True(t, p.Closed())
	})
}
