package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/lorevault/ai"
)

// MockEntityExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockEntityExtractor struct {
	// ExtractEntityFunc is called by ExtractEntity if set.
	// If nil, the first non-blank line of the text is reported as an npc
	// with Confidence.
	ExtractEntityFunc func(ctx context.Context, text string) (*ai.EntityCandidate, error)

	// Confidence used by the default behavior.
	Confidence float64

	mu    sync.Mutex
	texts []string
}

// NewMockEntityExtractor creates a mock entity extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockEntityExtractor() *MockEntityExtractor {
	return &MockEntityExtractor{Confidence: 0.9}
}

// ExtractEntity records text and returns a candidate.
func (m *MockEntityExtractor) ExtractEntity(ctx context.Context, text string) (*ai.EntityCandidate, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	fn := m.ExtractEntityFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	for _, line := range strings.Split(text, "\n") {
		name := strings.Trim(strings.TrimSpace(line), "#*_ ")
		if name == "" {
			continue
		}
		return &ai.EntityCandidate{
			Name:       name,
			Category:   "npc",
			Attributes: map[string]string{},
			Stats:      map[string]string{},
			Confidence: m.Confidence,
		}, nil
	}
	return nil, nil
}

// CallCount returns the number of times ExtractEntity was called.
func (m *MockEntityExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

// Texts returns the texts passed to ExtractEntity, in call order.
func (m *MockEntityExtractor) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears recorded calls and custom functions.
func (m *MockEntityExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = nil
	m.ExtractEntityFunc = nil
}
