package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/lorevault"
	"github.com/poiesic/lorevault/ai/mock"
	"github.com/poiesic/lorevault/config"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// useMemoryVault makes every command open a fresh in-memory vault with
// mock AI services.
func useMemoryVault(t *testing.T) {
	t.Helper()
	orig := openVault
	openVault = func(cfg *config.Config) (*lorevault.Vault, error) {
		store, err := badger.NewMemoryStore()
		if err != nil {
			return nil, err
		}
		provider := mock.NewMockProviderWithServices(&mock.MockEmbedder{Dim: 8}, mock.NewMockEntityExtractor())
		return lorevault.Open(cfg, lorevault.WithStore(store), lorevault.WithProvider(provider))
	}
	t.Cleanup(func() { openVault = orig })
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"lorevault"}, args...))
	return out.String(), err
}

func findCommand(t *testing.T, name string) *cli.Command {
	t.Helper()
	for _, cmd := range newApp().Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommands(t *testing.T) {
	names := []string{"import", "validate", "stats", "delete", "cleanup-adventures", "search", "reembed"}
	for _, name := range names {
		cmd := findCommand(t, name)
		assert.NotNil(t, cmd.Action, name)
	}
}

func TestImportCommandFlags(t *testing.T) {
	cmd := findCommand(t, "import")

	t.Run("recursive defaults to true", func(t *testing.T) {
		var recursive *cli.BoolFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "recursive" {
				recursive = f
			}
		}
		require.NotNil(t, recursive)
		assert.True(t, recursive.Value)
	})

	t.Run("path is required", func(t *testing.T) {
		_, err := runApp(t, "import")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path is required")
	})

	t.Run("negative workers rejected", func(t *testing.T) {
		_, err := runApp(t, "import", "--workers", "-1", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workers")
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := runApp(t, "import", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no markdown files")
	})
}

func TestReembedCommandFlags(t *testing.T) {
	t.Run("collection is required", func(t *testing.T) {
		_, err := runApp(t, "reembed")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collection")
	})

	t.Run("batch-size must be positive", func(t *testing.T) {
		_, err := runApp(t, "reembed", "--collection", "game_rulebooks", "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size")
	})

	t.Run("max-retries has default value of 3", func(t *testing.T) {
		cmd := findCommand(t, "reembed")
		var retries *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "max-retries" {
				retries = f
			}
		}
		require.NotNil(t, retries)
		assert.Equal(t, 3, retries.Value)
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := runApp(t, "--log-level", "loud", "stats")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("accepts mixed case", func(t *testing.T) {
		useMemoryVault(t)
		_, err := runApp(t, "--log-level", "WARN", "stats")
		assert.NoError(t, err)
	})
}

func TestImportCommand(t *testing.T) {
	useMemoryVault(t)

	dir := t.TempDir()
	books := filepath.Join(dir, "books")
	require.NoError(t, os.MkdirAll(books, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(books, "Bestiary.md"),
		[]byte("# Ogre\n\nArmor Class 11\nHit Points 59\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(books, "Lost Mine Adventure.md"),
		[]byte("# Sildar\n\nArmor Class 16\nHit Points 27\n"), 0o644))
	logPath := filepath.Join(dir, "logs", "summary.json")

	out, err := runApp(t, "--log-level", "error", "import", "--output-log", logPath, books)
	require.NoError(t, err)
	assert.Contains(t, out, "Importing 2 file(s)")
	assert.Contains(t, out, "Successful: 2")
	assert.Contains(t, out, "Extraction skipped for adventure content: 1")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	var summary core.BatchSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 2, summary.TotalFiles)
	assert.Equal(t, 1, summary.TotalEntities)
	assert.Equal(t, 1, summary.CollectionDistribution["game_rulebooks"])
	assert.Equal(t, 1, summary.CollectionDistribution["game_adventurepaths"])
}

func TestImportCommand_NoExtraction(t *testing.T) {
	useMemoryVault(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "Bestiary.md")
	require.NoError(t, os.WriteFile(path, []byte("# Ogre\n\nArmor Class 11\nHit Points 59\n"), 0o644))
	logPath := filepath.Join(dir, "summary.json")

	_, err := runApp(t, "--log-level", "error", "import", "--no-extraction", "--output-log", logPath, path)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	var summary core.BatchSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 0, summary.TotalEntities)
	assert.Equal(t, 1, summary.Successful)
}

func TestSearchCommand(t *testing.T) {
	t.Run("query is required", func(t *testing.T) {
		_, err := runApp(t, "search")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := runApp(t, "search", "--target", "bogus", "ogre")
		require.Error(t, err)
	})

	t.Run("empty store", func(t *testing.T) {
		useMemoryVault(t)
		out, err := runApp(t, "search", "--target", "rulebook", "ogre")
		require.NoError(t, err)
		assert.Contains(t, out, "No results")
	})
}

func TestMaintenanceCommands(t *testing.T) {
	useMemoryVault(t)

	t.Run("stats", func(t *testing.T) {
		out, err := runApp(t, "stats")
		require.NoError(t, err)
		assert.Contains(t, out, "COLLECTION")
	})

	t.Run("delete unknown document", func(t *testing.T) {
		out, err := runApp(t, "delete", "--document", "missing.md")
		require.NoError(t, err)
		assert.Contains(t, out, "No points found")
	})

	t.Run("cleanup on empty store", func(t *testing.T) {
		out, err := runApp(t, "cleanup-adventures")
		require.NoError(t, err)
		assert.Contains(t, out, "No misplaced adventure content found")
	})

	t.Run("validate", func(t *testing.T) {
		out, err := runApp(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "dimension 8")
	})
}

func TestMergeExcludes(t *testing.T) {
	configured := make([]string, 1, 4)
	configured[0] = "draft-*"

	merged := mergeExcludes(configured, []string{"sub/**"})
	assert.Equal(t, []string{"draft-*", "sub/**"}, merged)

	merged[0] = "changed"
	again := mergeExcludes(configured, []string{"other/**"})
	assert.Equal(t, []string{"draft-*", "other/**"}, again)
	assert.Equal(t, "draft-*", configured[:2][0])
	assert.Empty(t, configured[:2][1], "flag patterns must not land in the config's backing array")

	assert.Empty(t, mergeExcludes(nil, nil))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t\tc", 10))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}
