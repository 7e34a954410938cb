package gateway

import (
	"context"
	"testing"

	"github.com/poiesic/lorevault/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t)
	doc := testDocument("Core.md")
	_, err := g.StoreChunks(ctx, doc, testChunks(doc, 3), core.TargetRulebook)
	require.NoError(t, err)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "game_rulebooks", stats[0].Name)
	assert.Equal(t, 3, stats[0].PointsCount)
	assert.Equal(t, testDim, stats[0].Dimension)
	assert.Equal(t, 0, stats[1].PointsCount)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t)
	doc := testDocument("Bestiary.md")
	_, err := g.StoreChunks(ctx, doc, testChunks(doc, 3), core.TargetRulebook)
	require.NoError(t, err)
	_, err = g.StoreEntities(ctx, []*core.ExtractedEntity{
		{Name: "Goblin", Confidence: 0.9, SourceDocument: doc.ID, SourceFile: doc.Name},
	}, core.TargetRulebook)
	require.NoError(t, err)

	deleted, err := g.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"game_rulebooks": 3, "game_npcs": 1}, deleted)

	exists, err := g.Exists(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClearDocument(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t)

	n, err := g.ClearDocument(ctx, "never-imported.md")
	require.NoError(t, err)
	assert.Zero(t, n)

	doc := testDocument("Bestiary.md")
	_, err = g.StoreChunks(ctx, doc, testChunks(doc, 2), core.TargetRulebook)
	require.NoError(t, err)
	_, err = g.StoreEntities(ctx, []*core.ExtractedEntity{
		{Name: "Goblin", Confidence: 0.9, SourceDocument: doc.ID, SourceFile: doc.Name},
	}, core.TargetRulebook)
	require.NoError(t, err)

	n, err = g.ClearDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	for _, info := range stats {
		assert.Zero(t, info.PointsCount, info.Name)
	}
}

func TestCleanupAdventureContent(t *testing.T) {
	ctx := context.Background()
	g, store, _ := newTestGateway(t)

	// Simulate an earlier import that ignored routing.
	misplaced := testDocument("Adventure Path 1.md")
	_, err := g.StoreChunks(ctx, misplaced, testChunks(misplaced, 2), core.TargetRulebook)
	require.NoError(t, err)
	_, err = g.StoreEntities(ctx, []*core.ExtractedEntity{
		{Name: "Campaign Villain", Confidence: 0.9, SourceDocument: misplaced.ID, SourceFile: misplaced.Name},
	}, core.TargetRulebook)
	require.NoError(t, err)

	rulebook := testDocument("Core Rulebook.md")
	_, err = g.StoreChunks(ctx, rulebook, testChunks(rulebook, 2), core.TargetRulebook)
	require.NoError(t, err)
	_, err = g.StoreEntities(ctx, []*core.ExtractedEntity{
		{Name: "Goblin", Confidence: 0.9, SourceDocument: rulebook.ID, SourceFile: rulebook.Name},
	}, core.TargetRulebook)
	require.NoError(t, err)

	report, err := g.CleanupAdventureContent(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, map[string]int{misplaced.ID: 2}, report.MisplacedDocuments)
	assert.Equal(t, map[string]int{misplaced.ID: 1}, report.AdventureEntities)
	assert.Equal(t, []string{misplaced.ID}, report.Documents())
	assert.Zero(t, report.DeletedChunks)

	exists, err := store.ExistsByDocument(ctx, g.Collections().Rulebook, misplaced.ID)
	require.NoError(t, err)
	assert.True(t, exists, "dry run must not delete")

	report, err = g.CleanupAdventureContent(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DeletedChunks)
	assert.Equal(t, 1, report.DeletedEntities)

	report, err = g.FindMisplacedAdventureContent(ctx)
	require.NoError(t, err)
	assert.True(t, report.Empty())

	exists, err = store.ExistsByDocument(ctx, g.Collections().Rulebook, rulebook.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}
