package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityExtractor pulls a structured entity record out of a text chunk.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntity asks the extraction service for the most confident
	// entity described in text.
	// Returns nil, nil when the service reports nothing or its response
	// cannot be parsed; a malformed answer is not a failure.
	// Returns an error only when the service itself fails (network, quota, timeout).
	ExtractEntity(ctx context.Context, text string) (*EntityCandidate, error)
}

// EntityCandidate is an entity proposed by the extraction service,
// before the confidence gate decides whether to keep it.
type EntityCandidate struct {
	// Name of the entity, e.g. "Goblin Boss".
	Name string

	// Category from EntityCategories, e.g. "npc", "monster".
	Category string

	// Attributes are descriptive traits: race, class, level, alignment, size.
	Attributes map[string]string

	// Stats are numeric game statistics: ability scores, hit points, armor class.
	Stats map[string]string

	// Abilities lists skills, spells, equipment and special actions as free text.
	Abilities []string

	Description string
	GameSystem  string

	// Confidence is the service's own score in [0,1].
	Confidence float64
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and EntityExtractor instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// EntityExtractor returns the entity extraction service.
	// The returned EntityExtractor is safe for concurrent use.
	EntityExtractor() EntityExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
