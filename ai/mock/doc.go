// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.EntityExtractor,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockEntityExtractor())
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	provider.GetMockExtractor().ExtractEntityFunc = func(ctx context.Context, text string) (*ai.EntityCandidate, error) {
//	    return nil, nil
//	}
//
//	// Check call counts
//	count := provider.GetMockEmbedder().CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockEntityExtractor: Names an npc after the first line of the text
//   - MockProvider: Aggregates mock embedder and extractor
//
// All mocks are safe for concurrent use.
package mock
