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
	"errors"
	"fmt"

	"github.com/poiesic/lorevault/extraction"
	"github.com/poiesic/lorevault/gateway"
)

// Config holds the knobs an import run consumes.
type Config struct {
	ChunkSize           int
	ChunkOverlap        int
	ConfidenceThreshold float64
	CollectionPrefix    string
	ExtractEntities     bool
	SkipExisting        bool
	EmbedBatchSize      int

	// VectorSize is the expected embedding dimension. Zero accepts
	// whatever the embedder produces.
	VectorSize int
}

// DefaultConfig returns the standard import settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		ConfidenceThreshold: extraction.DefaultThreshold,
		CollectionPrefix:    gateway.DefaultPrefix,
		ExtractEntities:     true,
		EmbedBatchSize:      gateway.DefaultBatchSize,
	}
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ChunkSize must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("ChunkOverlap must be in [0, ChunkSize), got %d", c.ChunkOverlap))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("ConfidenceThreshold must be between 0 and 1, got %g", c.ConfidenceThreshold))
	}
	if c.CollectionPrefix == "" {
		errs = append(errs, errors.New("CollectionPrefix cannot be empty"))
	}
	if c.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("EmbedBatchSize must be positive, got %d", c.EmbedBatchSize))
	}
	if c.VectorSize < 0 {
		errs = append(errs, fmt.Errorf("VectorSize cannot be negative, got %d", c.VectorSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
