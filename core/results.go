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

package core

import (
	"encoding/json"
	"errors"
	"io"
	"time"
)

// FailureReason is a machine-readable classification of a document failure.
type FailureReason string

const (
	FailureNone          FailureReason = ""
	FailureLoad          FailureReason = "load_error"
	FailureEmbedding     FailureReason = "embedding_error"
	FailureStore         FailureReason = "store_error"
	FailureExtraction    FailureReason = "extraction_error"
	FailureEmptyDocument FailureReason = "empty_document"
	FailureConnectivity  FailureReason = "connectivity_error"
	FailureUnknown       FailureReason = "unknown_error"
)

// ClassifyFailure maps an error onto the failure taxonomy.
func ClassifyFailure(err error) FailureReason {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrConnectivity):
		return FailureConnectivity
	case errors.Is(err, ErrLoad):
		return FailureLoad
	case errors.Is(err, ErrEmptyDocument):
		return FailureEmptyDocument
	case errors.Is(err, ErrEmbeddingService):
		return FailureEmbedding
	case errors.Is(err, ErrStore):
		return FailureStore
	case errors.Is(err, ErrExtractionService):
		return FailureExtraction
	default:
		return FailureUnknown
	}
}

// Extraction skip reasons recorded on ImportResult.
const (
	SkipReasonAdventureContent = "adventure_content"
	SkipReasonDisabled         = "extraction_disabled"
)

// ImportResult is the outcome of importing one document.
type ImportResult struct {
	DocumentID             string           `json:"document_id"`
	FilePath               string           `json:"file_path"`
	Success                bool             `json:"success"`
	Skipped                bool             `json:"skipped"`
	Target                 CollectionTarget `json:"-"`
	CollectionUsed         string           `json:"collection_used,omitempty"`
	ChunksImported         int              `json:"chunks_imported"`
	EntitiesImported       int              `json:"entities_imported"`
	ExtractionCandidates   int              `json:"extraction_candidates"`
	EntitiesBelowThreshold int              `json:"entities_below_threshold"`
	SkippedNPCExtraction   bool             `json:"skipped_npc_extraction"`
	ExtractionSkipReason   string           `json:"extraction_skip_reason,omitempty"`
	ExtractionErrors       []string         `json:"extraction_errors,omitempty"`
	FailureReason          FailureReason    `json:"failure_reason,omitempty"`
	FailedStage            string           `json:"failed_stage,omitempty"`
	Error                  string           `json:"error,omitempty"`
	ProcessingTime         float64          `json:"processing_time"` // seconds

	Err error `json:"-"`
}

// Fail marks the result as failed with err, recorded at stage.
func (r *ImportResult) Fail(stage string, err error) {
	r.Success = false
	r.Err = err
	r.Error = err.Error()
	r.FailureReason = ClassifyFailure(err)
	r.FailedStage = stage
}

// Failure summarises a failed document in a BatchSummary.
type Failure struct {
	FilePath string        `json:"file_path"`
	Reason   FailureReason `json:"failure_reason"`
	Stage    string        `json:"failed_stage,omitempty"`
	Error    string        `json:"error"`
}

// BatchSummary aggregates the results of an import run.
type BatchSummary struct {
	RunID                     string          `json:"run_id"`
	Timestamp                 time.Time       `json:"timestamp"`
	TotalFiles                int             `json:"total_files"`
	Attempted                 int             `json:"attempted"`
	Successful                int             `json:"successful"`
	Failed                    int             `json:"failed"`
	Skipped                   int             `json:"skipped"`
	TotalChunks               int             `json:"total_chunks"`
	TotalEntities             int             `json:"total_entities"`
	EntitiesBelowThreshold    int             `json:"entities_below_threshold"`
	ExtractionSkippedByPolicy int             `json:"extraction_skipped_by_policy"`
	CollectionDistribution    map[string]int  `json:"collection_distribution"`
	CollectionChunks          map[string]int  `json:"collection_chunks"`
	Failures                  []Failure       `json:"failures"`
	Results                   []*ImportResult `json:"results"`
	FatalError                string          `json:"fatal_error,omitempty"`
	Cancelled                 bool            `json:"cancelled,omitempty"`
	Duration                  float64         `json:"duration"` // seconds
}

// NewBatchSummary creates an empty summary for a run over totalFiles documents.
func NewBatchSummary(runID string, totalFiles int) *BatchSummary {
	return &BatchSummary{
		RunID:                  runID,
		Timestamp:              time.Now().UTC(),
		TotalFiles:             totalFiles,
		CollectionDistribution: make(map[string]int),
		CollectionChunks:       make(map[string]int),
		Failures:               []Failure{},
		Results:                []*ImportResult{},
	}
}

// Record folds a document result into the summary.
func (s *BatchSummary) Record(result *ImportResult) {
	s.Results = append(s.Results, result)
	s.Attempted++

	switch {
	case !result.Success:
		s.Failed++
		s.Failures = append(s.Failures, Failure{
			FilePath: result.FilePath,
			Reason:   result.FailureReason,
			Stage:    result.FailedStage,
			Error:    result.Error,
		})
	case result.Skipped:
		s.Skipped++
	default:
		s.Successful++
	}

	s.TotalChunks += result.ChunksImported
	s.TotalEntities += result.EntitiesImported
	s.EntitiesBelowThreshold += result.EntitiesBelowThreshold
	if result.ExtractionSkipReason == SkipReasonAdventureContent {
		s.ExtractionSkippedByPolicy++
	}
	if result.Success && !result.Skipped && result.CollectionUsed != "" {
		s.CollectionDistribution[result.CollectionUsed]++
		s.CollectionChunks[result.CollectionUsed] += result.ChunksImported
	}
}

// Fatal marks the whole batch as aborted before any document was attempted.
func (s *BatchSummary) Fatal(err error) {
	s.FatalError = err.Error()
}

// WriteSummary writes the summary as indented JSON.
func WriteSummary(w io.Writer, summary *BatchSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
