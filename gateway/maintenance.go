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
	"sort"

	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/routing"
	"github.com/poiesic/lorevault/storage"
)

const scanPageSize = 256

// StatusMissing marks a collection that does not exist in the store.
const StatusMissing = "missing"

// Stats returns point counts for the three collections.
func (g *Gateway) Stats(ctx context.Context) ([]core.CollectionInfo, error) {
	stats := make([]core.CollectionInfo, 0, 3)
	for _, target := range core.AllTargets() {
		name, _ := g.collections.Name(target)
		info, err := g.store.CollectionInfo(ctx, name)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				stats = append(stats, core.CollectionInfo{Name: name, Status: StatusMissing})
				continue
			}
			return nil, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		stats = append(stats, *info)
	}
	return stats, nil
}

// DeleteDocument removes every point of documentID from all collections and
// returns the count removed per collection.
func (g *Gateway) DeleteDocument(ctx context.Context, documentID string) (map[string]int, error) {
	deleted, err := g.deleteDocument(ctx, documentID)
	if err != nil {
		return deleted, err
	}
	g.logger.Info("deleted document", "document", documentID, "collections", len(deleted))
	return deleted, nil
}

// ClearDocument removes every point an earlier import of documentID left in
// any collection and returns how many were removed.
func (g *Gateway) ClearDocument(ctx context.Context, documentID string) (int, error) {
	deleted, err := g.deleteDocument(ctx, documentID)
	total := 0
	for _, n := range deleted {
		total += n
	}
	if err != nil {
		return total, err
	}
	if total > 0 {
		g.logger.Debug("cleared previous import", "document", documentID, "points", total)
	}
	return total, nil
}

func (g *Gateway) deleteDocument(ctx context.Context, documentID string) (map[string]int, error) {
	deleted := make(map[string]int)
	for _, target := range core.AllTargets() {
		name, _ := g.collections.Name(target)
		n, err := g.store.DeleteByDocument(ctx, name, documentID)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				continue
			}
			return deleted, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		if n > 0 {
			deleted[name] = n
		}
	}
	return deleted, nil
}

// CleanupReport lists adventure content found where it does not belong.
type CleanupReport struct {
	// MisplacedDocuments maps document IDs sitting in the rulebook
	// collection to their chunk counts.
	MisplacedDocuments map[string]int `json:"misplaced_documents"`

	// AdventureEntities maps source document IDs of entities extracted from
	// adventure content to their entity counts.
	AdventureEntities map[string]int `json:"adventure_entities"`

	DryRun          bool `json:"dry_run"`
	DeletedChunks   int  `json:"deleted_chunks"`
	DeletedEntities int  `json:"deleted_entities"`
}

// Empty reports whether nothing misplaced was found.
func (r *CleanupReport) Empty() bool {
	return len(r.MisplacedDocuments) == 0 && len(r.AdventureEntities) == 0
}

// Documents returns the document IDs from both maps, sorted and deduplicated.
func (r *CleanupReport) Documents() []string {
	seen := make(map[string]bool)
	for id := range r.MisplacedDocuments {
		seen[id] = true
	}
	for id := range r.AdventureEntities {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindMisplacedAdventureContent scans the rulebook and entity collections
// for points whose source file routes to adventure content.
func (g *Gateway) FindMisplacedAdventureContent(ctx context.Context) (*CleanupReport, error) {
	report := &CleanupReport{
		MisplacedDocuments: make(map[string]int),
		AdventureEntities:  make(map[string]int),
		DryRun:             true,
	}
	if err := g.scanAdventure(ctx, g.collections.Rulebook, report.MisplacedDocuments); err != nil {
		return nil, err
	}
	if err := g.scanAdventure(ctx, g.collections.Entity, report.AdventureEntities); err != nil {
		return nil, err
	}
	return report, nil
}

// CleanupAdventureContent finds misplaced adventure content and, unless
// dryRun is set, deletes it.
func (g *Gateway) CleanupAdventureContent(ctx context.Context, dryRun bool) (*CleanupReport, error) {
	report, err := g.FindMisplacedAdventureContent(ctx)
	if err != nil {
		return nil, err
	}
	report.DryRun = dryRun
	if dryRun || report.Empty() {
		return report, nil
	}

	for _, id := range sortedKeys(report.MisplacedDocuments) {
		n, err := g.store.DeleteByDocument(ctx, g.collections.Rulebook, id)
		if err != nil {
			return report, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		report.DeletedChunks += n
	}
	for _, id := range sortedKeys(report.AdventureEntities) {
		n, err := g.store.DeleteByDocument(ctx, g.collections.Entity, id)
		if err != nil {
			return report, fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		report.DeletedEntities += n
	}
	g.logger.Info("cleaned up adventure content",
		"chunks", report.DeletedChunks,
		"entities", report.DeletedEntities)
	return report, nil
}

func (g *Gateway) scanAdventure(ctx context.Context, collection string, found map[string]int) error {
	var offset *core.ID
	for {
		points, next, err := g.store.Scroll(ctx, collection, offset, scanPageSize)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				return nil
			}
			return fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		for _, p := range points {
			if routing.Route(sourceName(p)) == core.TargetAdventurePath {
				found[p.DocumentID]++
			}
		}
		if next == nil {
			return nil
		}
		offset = next
	}
}

// sourceName is the file name a point was imported from.
func sourceName(p *core.Point) string {
	if name, ok := p.Payload[core.PayloadSourceFile].(string); ok && name != "" {
		return name
	}
	return p.DocumentID
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
