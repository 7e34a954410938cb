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

package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/extraction"
	"github.com/poiesic/lorevault/loader"
	"github.com/poiesic/lorevault/routing"
)

// Stages named in ImportResult.FailedStage.
const (
	StageSkipCheck     = "skip_check"
	StageLoad          = "load"
	StageChunk         = "chunk"
	StageClearPrevious = "clear_previous"
	StageStoreChunks   = "store_chunks"
	StageStoreEntities = "store_entities"
)

// ImportDocument runs one document through the import stages and always
// returns a result; failures are recorded in it rather than returned.
//
// ctx is passed straight to the store and services. ImportBatch detaches
// cancellation before calling here so a started document is never cut short.
func (im *Importer) ImportDocument(ctx context.Context, path string) *core.ImportResult {
	started := time.Now()
	target := routing.Route(path)
	result := &core.ImportResult{
		DocumentID: loader.DocumentID(path),
		FilePath:   path,
		Target:     target,
	}
	result.CollectionUsed, _ = im.gateway.Collections().Name(target)

	switch {
	case !routing.ExtractionAllowed(target):
		result.SkippedNPCExtraction = true
		result.ExtractionSkipReason = core.SkipReasonAdventureContent
	case !im.cfg.ExtractEntities:
		result.SkippedNPCExtraction = true
		result.ExtractionSkipReason = core.SkipReasonDisabled
	}

	logger := im.logger.With("document", path, "collection", result.CollectionUsed)
	im.process(ctx, path, result)
	result.ProcessingTime = time.Since(started).Seconds()

	switch {
	case !result.Success:
		logger.Error("document failed",
			"stage", result.FailedStage,
			"reason", result.FailureReason,
			"err", result.Err)
	case result.Skipped:
		logger.Info("document already imported, skipping")
	default:
		logger.Info("imported document",
			"chunks", result.ChunksImported,
			"entities", result.EntitiesImported,
			"below_threshold", result.EntitiesBelowThreshold,
			"extraction_errors", len(result.ExtractionErrors),
			"elapsed", time.Since(started))
	}
	return result
}

func (im *Importer) process(ctx context.Context, path string, result *core.ImportResult) {
	if im.cfg.SkipExisting {
		exists, err := im.gateway.Exists(ctx, result.DocumentID)
		if err != nil {
			result.Fail(StageSkipCheck, err)
			return
		}
		if exists {
			result.Success = true
			result.Skipped = true
			return
		}
	}

	doc, err := im.loader.Load(path)
	if err != nil {
		result.Fail(StageLoad, err)
		return
	}
	result.DocumentID = doc.ID

	if strings.TrimSpace(doc.Text) == "" {
		result.Fail(StageChunk, fmt.Errorf("%w: %s", core.ErrEmptyDocument, path))
		return
	}
	chunks := im.chunker.Split(doc.ID, doc.Text)

	// A re-import replaces the document; indices past the new chunk count
	// and entities from chunks that no longer qualify must not survive.
	if _, err := im.gateway.ClearDocument(ctx, doc.ID); err != nil {
		result.Fail(StageClearPrevious, err)
		return
	}

	stored, err := im.gateway.StoreChunks(ctx, doc, chunks, result.Target)
	result.ChunksImported = stored
	if err != nil {
		result.Fail(StageStoreChunks, err)
		return
	}

	if !result.SkippedNPCExtraction {
		if err := im.extractEntities(ctx, doc, chunks, result); err != nil {
			result.Fail(StageStoreEntities, err)
			return
		}
	}
	result.Success = true
}

// extractEntities gates every chunk in order and stores the accepted
// entities. Extraction service failures are recorded per chunk and do not
// fail the document; only storing the entities can.
func (im *Importer) extractEntities(ctx context.Context, doc *core.SourceDocument, chunks []core.Chunk, result *core.ImportResult) error {
	var entities []*core.ExtractedEntity
	for _, chunk := range chunks {
		res, err := im.gate.Extract(ctx, doc, chunk, result.Target)
		if res.Outcome != extraction.OutcomeRejected {
			result.ExtractionCandidates++
		}
		if err != nil {
			result.ExtractionErrors = append(result.ExtractionErrors, err.Error())
			continue
		}
		switch res.Outcome {
		case extraction.OutcomeAccepted:
			entities = append(entities, res.Entity)
		case extraction.OutcomeLowConfidence:
			result.EntitiesBelowThreshold++
		}
	}

	stored, err := im.gateway.StoreEntities(ctx, entities, result.Target)
	result.EntitiesImported = stored
	return err
}
