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

// Package config loads lorevault's application settings.
//
// Settings come from three layers, later ones winning: built-in defaults,
// an optional YAML file, and environment variables (optionally seeded from a
// .env file). The result feeds ai.Config, ingestion.Config and the choice of
// vector store backend.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/lorevault/ai"
	"github.com/poiesic/lorevault/extraction"
	"github.com/poiesic/lorevault/gateway"
	"github.com/poiesic/lorevault/ingestion"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "lorevault.yaml"

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Backend          string `yaml:"backend"`
	Path             string `yaml:"path"`
	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

// QdrantURL returns the base URL of the Qdrant REST API.
func (s StoreConfig) QdrantURL() string {
	host := s.QdrantHost
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Port() != "" {
		return strings.TrimSuffix(host, "/")
	}
	return fmt.Sprintf("%s://%s:%d", u.Scheme, u.Hostname(), s.QdrantPort)
}

// AIConfig configures the embedding and extraction services.
type AIConfig struct {
	EmbeddingHost   string  `yaml:"embedding_host"`
	ExtractorHost   string  `yaml:"extractor_host"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	ExtractorModel  string  `yaml:"extractor_model"`
	APIKey          string  `yaml:"api_key"`
	Temperature     float64 `yaml:"temperature"`
	MaxInputChars   int     `yaml:"max_input_chars"`
	VectorDimension int     `yaml:"vector_dimension"`
}

// ImportConfig configures import runs.
type ImportConfig struct {
	ChunkSize           int      `yaml:"chunk_size"`
	ChunkOverlap        int      `yaml:"chunk_overlap"`
	ExtractEntities     bool     `yaml:"extract_entities"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	EmbedBatchSize      int      `yaml:"embed_batch_size"`
	SkipExisting        bool     `yaml:"skip_existing"`
	Workers             int      `yaml:"workers"`
	Recursive           bool     `yaml:"recursive"`
	Exclude             []string `yaml:"exclude"`
}

// Config is the complete application configuration.
type Config struct {
	Store           StoreConfig  `yaml:"store"`
	AI              AIConfig     `yaml:"ai"`
	Import          ImportConfig `yaml:"import"`
	OutputDirectory string       `yaml:"output_directory"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	importDefaults := ingestion.DefaultConfig()
	return &Config{
		Store: StoreConfig{
			Backend:          BackendBadger,
			Path:             "./lorevault-data",
			QdrantHost:       "localhost",
			QdrantPort:       6333,
			CollectionPrefix: gateway.DefaultPrefix,
		},
		AI: AIConfig{
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			ExtractorHost:  aiDefaults.ExtractorHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ExtractorModel: aiDefaults.ExtractorModel,
			Temperature:    aiDefaults.Temperature,
			MaxInputChars:  aiDefaults.MaxInputChars,
		},
		Import: ImportConfig{
			ChunkSize:           importDefaults.ChunkSize,
			ChunkOverlap:        importDefaults.ChunkOverlap,
			ExtractEntities:     importDefaults.ExtractEntities,
			ConfidenceThreshold: extraction.DefaultThreshold,
			EmbedBatchSize:      importDefaults.EmbedBatchSize,
			Workers:             1,
			Recursive:           true,
		},
		OutputDirectory: "./import_logs",
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment.
//
// An empty path falls back to DefaultFile when it exists. envFile names a
// .env file to load first; when empty, a .env in the working directory is
// loaded if present. Variables already set in the environment win over the
// .env file.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendBadger:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the badger backend"))
		}
	case BackendQdrant:
		if c.Store.QdrantHost == "" {
			errs = append(errs, errors.New("store.qdrant_host is required for the qdrant backend"))
		}
		if c.Store.QdrantPort <= 0 || c.Store.QdrantPort > 65535 {
			errs = append(errs, fmt.Errorf("store.qdrant_port out of range: %d", c.Store.QdrantPort))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", BackendBadger, BackendQdrant, c.Store.Backend))
	}
	if c.AI.VectorDimension < 0 {
		errs = append(errs, fmt.Errorf("ai.vector_dimension cannot be negative: %d", c.AI.VectorDimension))
	}
	if c.Import.Workers < 1 {
		errs = append(errs, fmt.Errorf("import.workers must be at least 1, got %d", c.Import.Workers))
	}
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.ImportConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AIConfig converts the AI section for the provider.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithExtractorHost(c.AI.ExtractorHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithExtractorModel(c.AI.ExtractorModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithMaxInputChars(c.AI.MaxInputChars),
	)
}

// ImportConfig converts the import section for the importer.
func (c *Config) ImportConfig() ingestion.Config {
	return ingestion.Config{
		ChunkSize:           c.Import.ChunkSize,
		ChunkOverlap:        c.Import.ChunkOverlap,
		ConfidenceThreshold: c.Import.ConfidenceThreshold,
		CollectionPrefix:    c.Store.CollectionPrefix,
		ExtractEntities:     c.Import.ExtractEntities,
		SkipExisting:        c.Import.SkipExisting,
		EmbedBatchSize:      c.Import.EmbedBatchSize,
		VectorSize:          c.AI.VectorDimension,
	}
}

// Redacted renders the configuration for logs with secrets masked.
func (c *Config) Redacted() string {
	clone := *c
	clone.AI.APIKey = mask(c.AI.APIKey)
	clone.Store.QdrantAPIKey = mask(c.Store.QdrantAPIKey)
	data, err := yaml.Marshal(&clone)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(data)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// parseBool accepts the spellings people put in .env files.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return strconv.ParseBool(s)
}
