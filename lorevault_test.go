package lorevault

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/lorevault/ai/mock"
	"github.com/poiesic/lorevault/config"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestVault(t *testing.T) (*Vault, *mock.MockProvider) {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	provider := mock.NewMockProviderWithServices(&mock.MockEmbedder{Dim: 8}, mock.NewMockEntityExtractor())

	v, err := Open(config.Default(), WithStore(store), WithProvider(provider))
	require.NoError(t, err)
	return v, provider
}

func TestOpen(t *testing.T) {
	t.Run("badger on disk", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Path = filepath.Join(t.TempDir(), "db")

		v, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		assert.NotNil(t, v.Store())
		require.NoError(t, v.Close())
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Backend = "nope"
		_, err := Open(cfg)
		assert.Error(t, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := Open(config.Default(), WithLogger(nil), WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		store, err := badger.NewMemoryStore()
		require.NoError(t, err)
		v, err := Open(nil, WithStore(store), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		assert.Equal(t, "game", v.Config().Store.CollectionPrefix)
		require.NoError(t, v.Close())
	})
}

func TestVault_Close(t *testing.T) {
	v, provider := openTestVault(t)
	require.NoError(t, v.Close())
	assert.True(t, provider.Closed())
}

func TestVault_ImportAndSearch(t *testing.T) {
	v, _ := openTestVault(t)
	defer v.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "Bestiary.md")
	text := "# Ogre\n\nLarge giant.\n\nArmor Class 11\nHit Points 59\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	importer, err := v.NewImporter()
	require.NoError(t, err)
	defer importer.Release()

	summary, err := importer.ImportBatch(context.Background(), []string{path})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, summary.TotalEntities)

	gw, err := v.Gateway()
	require.NoError(t, err)
	stats, err := gw.Stats(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats, 3)

	searcher, err := v.NewSearcher()
	require.NoError(t, err)
	hits, err := searcher.Search(context.Background(), "Ogre", []core.CollectionTarget{core.TargetEntity}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)

	r, err := v.NewReembedder("game_rulebooks", nil, io.Discard)
	require.NoError(t, err)
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reembedded)
}
