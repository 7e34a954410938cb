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

package openai

import (
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/lorevault/ai"
)

// Provider bundles the embedder and entity extractor built from one
// ai.Config. Both talk to OpenAI-compatible endpoints, possibly on
// different hosts.
type Provider struct {
	embedder  *Embedder
	extractor *EntityExtractor
	closed    atomic.Bool
	logger    *slog.Logger
}

// NewProvider validates config and builds both services.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	extractor, err := newEntityExtractor(config)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		embedder:  embedder,
		extractor: extractor,
		logger:    slog.Default().With("component", "openai-provider"),
	}
	p.logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"extractor_host", config.ExtractorHost,
		"extractor_model", config.ExtractorModel)
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) EntityExtractor() ai.EntityExtractor {
	return p.extractor
}

// Close marks the provider closed. The HTTP clients underneath hold no
// resources that need releasing, so closing twice is harmless.
func (p *Provider) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Debug("closing provider")
	return nil
}

// Closed reports whether Close has been called.
func (p *Provider) Closed() bool {
	return p.closed.Load()
}
