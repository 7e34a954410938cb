package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, IDFromContent("core rulebook.md"), IDFromContent("core rulebook.md"))
	})

	t.Run("different content different id", func(t *testing.T) {
		assert.NotEqual(t, IDFromContent("a.md"), IDFromContent("b.md"))
	})
}

func TestPointID(t *testing.T) {
	doc := "books/Core Rulebook.md"

	t.Run("shares document base", func(t *testing.T) {
		base := DocumentBase(doc)
		for i := 0; i < 5; i++ {
			id := PointID(doc, i)
			assert.Equal(t, base, id&^indexMask)
			assert.Equal(t, i, id.Index())
		}
	})

	t.Run("monotonic in index", func(t *testing.T) {
		prev := PointID(doc, 0)
		for i := 1; i < 100; i++ {
			next := PointID(doc, i)
			assert.Greater(t, uint64(next), uint64(prev))
			prev = next
		}
	})

	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, PointID(doc, 7), PointID(doc, 7))
	})
}

func TestCollectionTargetText(t *testing.T) {
	for _, target := range AllTargets() {
		text, err := target.MarshalText()
		require.NoError(t, err)

		var parsed CollectionTarget
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, target, parsed)
	}

	t.Run("aliases", func(t *testing.T) {
		target, err := ParseTarget("npcs")
		require.NoError(t, err)
		assert.Equal(t, TargetEntity, target)

		target, err = ParseTarget("Adventure")
		require.NoError(t, err)
		assert.Equal(t, TargetAdventurePath, target)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseTarget("catchall")
		assert.True(t, errors.Is(err, ErrInvalidTarget))

		_, err = CollectionTarget(0).MarshalText()
		assert.True(t, errors.Is(err, ErrInvalidTarget))
	})
}

func TestEntityEmbeddingText(t *testing.T) {
	e := &ExtractedEntity{Name: "Goblin Boss", Description: "A sneaky goblin", RawText: "Goblin Boss AC 17"}
	assert.Equal(t, "Goblin Boss AC 17", e.EmbeddingText())

	e.RawText = "  "
	assert.Equal(t, "A sneaky goblin", e.EmbeddingText())

	e.Description = ""
	assert.Equal(t, "Goblin Boss", e.EmbeddingText())
}

func TestPointEmbeddingText(t *testing.T) {
	p := &Point{Payload: map[string]any{PayloadText: "chunk text"}}
	assert.Equal(t, "chunk text", p.EmbeddingText())

	p = &Point{Payload: map[string]any{PayloadName: "Mira", PayloadDescription: "A bard"}}
	assert.Equal(t, "A bard", p.EmbeddingText())

	p = &Point{}
	assert.Empty(t, p.EmbeddingText())
}

func TestPointSerialization(t *testing.T) {
	point := Point{
		ID:         PointID("doc.md", 3),
		DocumentID: "doc.md",
		Vector:     []float32{0.25, -1.5, 3},
		Payload: map[string]any{
			"text":        "hello",
			"chunk_index": 3,
		},
	}

	buf := make([]byte, PointMUS.Size(point))
	n := PointMUS.Marshal(point, buf)
	assert.Equal(t, len(buf), n)

	decoded, read, err := PointMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, n, read)
	assert.Equal(t, point.ID, decoded.ID)
	assert.Equal(t, point.DocumentID, decoded.DocumentID)
	assert.Equal(t, point.Vector, decoded.Vector)
	assert.Equal(t, "hello", decoded.Payload["text"])
	// JSON numbers decode as float64
	assert.Equal(t, float64(3), decoded.Payload["chunk_index"])
}

func TestPointSerialization_Truncated(t *testing.T) {
	point := Point{ID: 1, DocumentID: "doc.md", Vector: []float32{1, 2, 3}}
	buf := make([]byte, PointMUS.Size(point))
	PointMUS.Marshal(point, buf)

	_, _, err := PointMUS.Unmarshal(buf[:len(buf)-3])
	assert.Error(t, err)
}

func TestCollectionInfoSerialization(t *testing.T) {
	info := CollectionInfo{Name: "game_rulebooks", Dimension: 384}
	buf := make([]byte, CollectionInfoMUS.Size(info))
	CollectionInfoMUS.Marshal(info, buf)

	decoded, _, err := CollectionInfoMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
}

func TestExtractedEntityJSON(t *testing.T) {
	e := ExtractedEntity{Name: "Mira", Confidence: 0.9, Canonical: true, SourceDocument: "x.md"}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"canonical":true`)
	assert.Contains(t, string(data), `"confidence":0.9`)
}

func TestCheckpointMUS(t *testing.T) {
	cp := Checkpoint{
		Name:      "reembed:game_rulebooks",
		Offset:    PointID("doc", 12),
		Processed: 250,
		UpdatedAt: time.Date(2025, 3, 1, 12, 30, 0, 123000, time.UTC),
	}
	buf := make([]byte, CheckpointMUS.Size(cp))
	CheckpointMUS.Marshal(cp, buf)

	decoded, n, err := CheckpointMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, cp, decoded)
}
