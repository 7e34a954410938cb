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

// Package lorevault imports tabletop game books written in markdown into a
// vector store for retrieval.
//
// A Vault wires the configured vector store and AI provider together and
// hands out the importer, searcher and maintenance tools that share them.
package lorevault

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/ai/openai"
	"github.com/poiesic/lorevault/config"
	"github.com/poiesic/lorevault/gateway"
	"github.com/poiesic/lorevault/ingestion"
	"github.com/poiesic/lorevault/reembed"
	"github.com/poiesic/lorevault/search"
	"github.com/poiesic/lorevault/storage"
	"github.com/poiesic/lorevault/storage/badger"
	"github.com/poiesic/lorevault/storage/qdrant"
)

// Vault owns a vector store and an AI provider.
type Vault struct {
	cfg      *config.Config
	store    storage.VectorStore
	provider ai.AIProvider
	logger   *slog.Logger
}

// VaultOption configures Open.
type VaultOption func(*vaultOptions)

type vaultOptions struct {
	store    storage.VectorStore
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithStore uses store instead of opening the configured backend.
func WithStore(store storage.VectorStore) VaultOption {
	return func(o *vaultOptions) {
		o.store = store
	}
}

// WithProvider uses provider instead of building one from the AI settings.
func WithProvider(provider ai.AIProvider) VaultOption {
	return func(o *vaultOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) VaultOption {
	return func(o *vaultOptions) {
		o.logger = logger
	}
}

// Open validates cfg and connects the store and AI provider.
// Components supplied through options are owned by the vault from then on
// and are closed by Close.
func Open(cfg *config.Config, opts ...VaultOption) (*Vault, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &vaultOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	store := options.store
	if store == nil {
		var err error
		if store, err = openStore(cfg.Store); err != nil {
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		var err error
		if provider, err = openai.NewProvider(cfg.AIConfig()); err != nil {
			store.Close()
			return nil, err
		}
	}

	return &Vault{
		cfg:      cfg,
		store:    store,
		provider: provider,
		logger:   options.logger,
	}, nil
}

func openStore(cfg config.StoreConfig) (storage.VectorStore, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		return badger.NewStore(cfg.Path)
	case config.BackendQdrant:
		return qdrant.NewStore(cfg.QdrantURL(), qdrant.WithAPIKey(cfg.QdrantAPIKey))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Close releases the AI provider and the store.
func (v *Vault) Close() error {
	var errs []error
	if err := v.provider.Close(); err != nil {
		v.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := v.store.Close(); err != nil {
		v.logger.Error("error closing vector store", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Config returns the configuration the vault was opened with.
func (v *Vault) Config() *config.Config {
	return v.cfg
}

// Store returns the vector store.
func (v *Vault) Store() storage.VectorStore {
	return v.store
}

// Provider returns the AI provider.
func (v *Vault) Provider() ai.AIProvider {
	return v.provider
}

// Gateway returns a store gateway over the configured collections.
func (v *Vault) Gateway() (*gateway.Gateway, error) {
	return gateway.New(v.store, v.provider.Embedder(),
		gateway.WithPrefix(v.cfg.Store.CollectionPrefix),
		gateway.WithBatchSize(v.cfg.Import.EmbedBatchSize),
		gateway.WithVectorSize(v.cfg.AI.VectorDimension),
		gateway.WithLogger(v.logger))
}

// NewImporter creates an importer using the configured import settings.
// The worker count comes from the configuration unless opts override it.
func (v *Vault) NewImporter(opts ...ingestion.Option) (*ingestion.Importer, error) {
	base := []ingestion.Option{
		ingestion.WithLogger(v.logger),
		ingestion.WithPoolSize(v.cfg.Import.Workers),
	}
	return ingestion.NewImporter(v.store, v.provider, v.cfg.ImportConfig(), append(base, opts...)...)
}

// NewSearcher creates a searcher over the configured collections.
func (v *Vault) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithLogger(v.logger),
		search.WithPrefix(v.cfg.Store.CollectionPrefix),
	}
	return search.NewSearcher(v.store, v.provider, append(base, opts...)...)
}

// NewReembedder creates a reembedder for collection. Progress is
// checkpointed when the store supports it.
func (v *Vault) NewReembedder(collection string, cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	opts := []reembed.Option{reembed.WithLogger(v.logger)}
	if cp, ok := v.store.(storage.CheckpointStore); ok {
		opts = append(opts, reembed.WithCheckpoints(cp))
	}
	return reembed.NewReembedder(v.store, collection, v.provider.Embedder(), cfg, progress, opts...)
}
