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

package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of points to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of points)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Stats describes a finished run.
type Stats struct {
	Collection string
	Total      int // points in the collection when the run started
	Resumed    int // points already done by an earlier, interrupted run
	Reembedded int
	Skipped    int // points without text
	Elapsed    time.Duration
}

// CheckpointName is the checkpoint key used for collection.
func CheckpointName(collection string) string {
	return "reembed:" + collection
}

// Reembedder rewrites every vector of one collection.
type Reembedder struct {
	store       storage.VectorStore
	collection  string
	embedder    ai.Embedder
	config      *Config
	progress    io.Writer
	checkpoints storage.CheckpointStore
	processor   *BatchProcessor
	iterator    *PointIterator
	logger      *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithCheckpoints records progress in cp so an interrupted run resumes.
func WithCheckpoints(cp storage.CheckpointStore) Option {
	return func(r *Reembedder) {
		r.checkpoints = cp
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger != nil {
			r.logger = logger.With("component", "reembed")
		}
	}
}

// NewReembedder creates a reembedder for collection.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store storage.VectorStore, collection string, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if collection == "" {
		return nil, ErrCollectionRequired
	}
	if store == nil || embedder == nil {
		return nil, errors.New("store and embedder are required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		store:      store,
		collection: collection,
		embedder:   embedder,
		config:     config,
		progress:   progress,
		processor:  NewBatchProcessor(store, collection, embedder, config.MaxRetries, config.RetryDelay),
		iterator:   NewPointIterator(store, collection, config.BatchSize),
		logger:     slog.Default().With("component", "reembed"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run re-embeds every point in the collection.
// The embedder must produce vectors of the collection's dimension; the
// first batch fails with storage.ErrDimensionMismatch otherwise.
func (r *Reembedder) Run(ctx context.Context) (*Stats, error) {
	info, err := r.store.CollectionInfo(ctx, r.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect collection %s: %w", r.collection, err)
	}
	stats := &Stats{Collection: r.collection, Total: info.PointsCount}
	if info.PointsCount == 0 {
		fmt.Fprintf(r.progress, "No points found in %s (0 points)\n", r.collection)
		return stats, nil
	}

	offset, err := r.resumeOffset(ctx, stats)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d points in %s (batch size: %d)\n",
		info.PointsCount, r.collection, r.config.BatchSize)
	if stats.Resumed > 0 {
		fmt.Fprintf(r.progress, "Resuming after %d points\n", stats.Resumed)
	}

	tracker := NewProgressTracker(r.progress, "points", info.PointsCount, r.config.ReportInterval)
	tracker.Start(stats.Resumed)

	done := stats.Resumed
	err = r.iterator.ForEach(ctx, offset, func(points []*core.Point, next *core.ID) error {
		n, err := r.processor.Process(ctx, points)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		stats.Reembedded += n
		stats.Skipped += len(points) - n
		done += len(points)
		tracker.Update(done)
		return r.saveCheckpoint(ctx, next, done)
	})
	stats.Elapsed = tracker.Elapsed()
	if err != nil {
		r.logger.Error("reembedding stopped", "collection", r.collection, "done", done, "err", err)
		return stats, err
	}

	tracker.Finish()
	if r.checkpoints != nil {
		if err := r.checkpoints.ClearCheckpoint(ctx, CheckpointName(r.collection)); err != nil {
			return stats, err
		}
	}

	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d points in %v (%.1f points/sec)\n",
		stats.Reembedded, stats.Elapsed.Round(time.Second), float64(stats.Reembedded)/stats.Elapsed.Seconds())
	r.logger.Info("reembedding complete",
		"collection", r.collection,
		"reembedded", stats.Reembedded,
		"skipped", stats.Skipped,
		"resumed", stats.Resumed)
	return stats, nil
}

func (r *Reembedder) resumeOffset(ctx context.Context, stats *Stats) (*core.ID, error) {
	if r.checkpoints == nil {
		return nil, nil
	}
	cp, err := r.checkpoints.LoadCheckpoint(ctx, CheckpointName(r.collection))
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp == nil {
		return nil, nil
	}
	stats.Resumed = cp.Processed
	offset := cp.Offset
	return &offset, nil
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, next *core.ID, done int) error {
	if r.checkpoints == nil || next == nil {
		return nil
	}
	return r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Name:      CheckpointName(r.collection),
		Offset:    *next,
		Processed: done,
		UpdatedAt: time.Now().UTC(),
	})
}
