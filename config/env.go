package config

import (
	"errors"
	"fmt"
	"strconv"
)

// Environment variables recognized by applyEnv.
const (
	EnvQdrantHost          = "QDRANT_HOST"
	EnvQdrantPort          = "QDRANT_PORT"
	EnvQdrantAPIKey        = "QDRANT_API_KEY"
	EnvCollectionPrefix    = "QDRANT_COLLECTION_PREFIX"
	EnvChunkSize           = "CHUNK_SIZE"
	EnvChunkOverlap        = "CHUNK_OVERLAP"
	EnvExtractEntities     = "ENABLE_NPC_EXTRACTION"
	EnvConfidenceThreshold = "NPC_CONFIDENCE_THRESHOLD"
	EnvEmbeddingModel      = "EMBEDDING_MODEL"
	EnvVectorDimension     = "VECTOR_DIMENSION"
	EnvOutputDirectory     = "OUTPUT_DIRECTORY"
	EnvEmbeddingHost       = "EMBEDDING_HOST"
	EnvExtractorHost       = "EXTRACTOR_HOST"
	EnvExtractorModel      = "EXTRACTOR_MODEL"
	EnvAPIKey              = "LLM_API_KEY"
	EnvStoreBackend        = "STORE_BACKEND"
	EnvStorePath           = "STORE_PATH"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overrides cfg from the environment. Malformed numbers and
// booleans are collected and returned together.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := parseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(EnvStoreBackend, &cfg.Store.Backend)
	str(EnvStorePath, &cfg.Store.Path)
	str(EnvQdrantHost, &cfg.Store.QdrantHost)
	integer(EnvQdrantPort, &cfg.Store.QdrantPort)
	str(EnvQdrantAPIKey, &cfg.Store.QdrantAPIKey)
	str(EnvCollectionPrefix, &cfg.Store.CollectionPrefix)

	str(EnvEmbeddingHost, &cfg.AI.EmbeddingHost)
	str(EnvExtractorHost, &cfg.AI.ExtractorHost)
	str(EnvEmbeddingModel, &cfg.AI.EmbeddingModel)
	str(EnvExtractorModel, &cfg.AI.ExtractorModel)
	str(EnvAPIKey, &cfg.AI.APIKey)
	integer(EnvVectorDimension, &cfg.AI.VectorDimension)

	integer(EnvChunkSize, &cfg.Import.ChunkSize)
	integer(EnvChunkOverlap, &cfg.Import.ChunkOverlap)
	boolean(EnvExtractEntities, &cfg.Import.ExtractEntities)
	float(EnvConfidenceThreshold, &cfg.Import.ConfidenceThreshold)

	str(EnvOutputDirectory, &cfg.OutputDirectory)

	return errors.Join(errs...)
}
