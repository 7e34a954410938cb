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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/chunking"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/extraction"
	"github.com/poiesic/lorevault/gateway"
	"github.com/poiesic/lorevault/loader"
	"github.com/poiesic/lorevault/storage"
)

// DocumentLoader reads a file into a cleaned source document.
type DocumentLoader interface {
	Load(path string) (*core.SourceDocument, error)
}

// ProgressFunc is called once per finished document. Calls are serialized.
type ProgressFunc func(done, total int, result *core.ImportResult)

// Importer orchestrates the import of documents into the vector store.
// Documents run one at a time unless WithPoolSize asks for more workers.
type Importer struct {
	cfg      Config
	gateway  *gateway.Gateway
	gate     *extraction.Gate
	chunker  *chunking.Chunker
	loader   DocumentLoader
	pool     *ants.Pool
	progress ProgressFunc
	logger   *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithPoolSize sets how many documents are imported concurrently.
// Default is 1: strictly sequential, in discovery order.
func WithPoolSize(size int) Option {
	return func(im *Importer) error {
		if im.pool != nil {
			im.pool.Release()
			im.pool = nil
		}
		if size <= 1 {
			return nil
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		im.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. It is also handed to the gateway and the
// extraction gate. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		im.logger = logger
		return nil
	}
}

// WithLoader replaces the file loader.
func WithLoader(l DocumentLoader) Option {
	return func(im *Importer) error {
		if l == nil {
			return fmt.Errorf("loader cannot be nil")
		}
		im.loader = l
		return nil
	}
}

// WithProgress registers a callback fired after each document.
func WithProgress(fn ProgressFunc) Option {
	return func(im *Importer) error {
		im.progress = fn
		return nil
	}
}

// NewImporter creates an importer writing to store with the services of provider.
func NewImporter(store storage.VectorStore, provider ai.AIProvider, cfg Config, opts ...Option) (*Importer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	im := &Importer{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(im); err != nil {
			im.Release()
			return nil, err
		}
	}
	base := im.logger
	im.logger = base.With("component", "importer")
	if im.loader == nil {
		im.loader = loader.New()
	}

	chunker, err := chunking.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		im.Release()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	im.chunker = chunker

	gw, err := gateway.New(store, provider.Embedder(),
		gateway.WithPrefix(cfg.CollectionPrefix),
		gateway.WithBatchSize(cfg.EmbedBatchSize),
		gateway.WithVectorSize(cfg.VectorSize),
		gateway.WithLogger(base))
	if err != nil {
		im.Release()
		return nil, err
	}
	im.gateway = gw

	gate, err := extraction.NewGate(provider.EntityExtractor(),
		extraction.WithThreshold(cfg.ConfidenceThreshold),
		extraction.WithLogger(base))
	if err != nil {
		im.Release()
		return nil, err
	}
	im.gate = gate

	return im, nil
}

// Gateway exposes the store gateway the importer writes through.
func (im *Importer) Gateway() *gateway.Gateway {
	return im.gateway
}

// ImportBatch imports paths in order and summarizes the run.
//
// Store and embedding connectivity is checked before any document is
// touched; a failure there is returned wrapped in core.ErrConnectivity with
// a summary that records no attempts. Cancellation of ctx is honored only
// between documents: work already started on a document runs to completion,
// and the returned error is ctx.Err() alongside a summary of what finished.
func (im *Importer) ImportBatch(ctx context.Context, paths []string) (*core.BatchSummary, error) {
	started := time.Now()
	summary := core.NewBatchSummary(uuid.NewString(), len(paths))
	defer func() {
		summary.Duration = time.Since(started).Seconds()
	}()

	logger := im.logger.With("run", summary.RunID)
	if err := ctx.Err(); err != nil {
		summary.Cancelled = true
		return summary, err
	}
	if err := im.prepare(ctx); err != nil {
		logger.Error("batch aborted before import", "err", err)
		summary.Fatal(err)
		return summary, err
	}

	logger.Info("starting import", "documents", len(paths), "workers", im.workers())
	results, err := im.run(ctx, paths)
	for _, result := range results {
		summary.Record(result)
	}
	if err != nil {
		summary.Cancelled = true
		logger.Warn("import cancelled", "attempted", summary.Attempted, "remaining", len(paths)-summary.Attempted)
		return summary, err
	}

	logger.Info("import finished",
		"successful", summary.Successful,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"chunks", summary.TotalChunks,
		"entities", summary.TotalEntities)
	return summary, nil
}

// prepare verifies connectivity and makes sure every collection exists.
func (im *Importer) prepare(ctx context.Context) error {
	dimension, err := im.gateway.CheckConnectivity(ctx)
	if err != nil {
		return err
	}
	if err := im.gateway.EnsureCollections(ctx, dimension); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConnectivity, err)
	}
	return nil
}

// run imports paths and returns the results of attempted documents in
// input order.
func (im *Importer) run(ctx context.Context, paths []string) ([]*core.ImportResult, error) {
	results := make([]*core.ImportResult, len(paths))
	docCtx := context.WithoutCancel(ctx)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		done      int
		cancelErr error
	)
	finish := func(i int, result *core.ImportResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = result
		done++
		if im.progress != nil {
			im.progress(done, len(paths), result)
		}
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		if im.pool == nil {
			finish(i, im.ImportDocument(docCtx, path))
			continue
		}
		wg.Add(1)
		err := im.pool.Submit(func() {
			defer wg.Done()
			finish(i, im.ImportDocument(docCtx, path))
		})
		if err != nil {
			wg.Done()
			result := &core.ImportResult{DocumentID: loader.DocumentID(path), FilePath: path}
			result.Fail("schedule", err)
			finish(i, result)
		}
	}
	wg.Wait()

	attempted := make([]*core.ImportResult, 0, len(results))
	for _, result := range results {
		if result != nil {
			attempted = append(attempted, result)
		}
	}
	return attempted, cancelErr
}

func (im *Importer) workers() int {
	if im.pool == nil {
		return 1
	}
	return im.pool.Cap()
}

// Release releases the worker pool.
// The importer should not be used after calling Release.
func (im *Importer) Release() {
	if im.pool != nil {
		im.pool.Release()
		im.pool = nil
	}
}
