package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/lorevault/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel replays canned responses in order and records the prompts it saw.
type scriptedModel struct {
	responses []string
	err       error
	calls     int
	lastInput string
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(messages) > 1 {
		if part, ok := messages[1].Parts[0].(llms.TextContent); ok {
			m.lastInput = part.Text
		}
	}
	if len(m.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[idx]}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newTestExtractor(model llms.Model, maxInput int) *EntityExtractor {
	cfg := ai.DefaultConfig()
	cfg.MaxInputChars = maxInput
	return newEntityExtractorWithModel(model, cfg)
}

func TestParseEntityResponse(t *testing.T) {
	t.Run("entities wrapper", func(t *testing.T) {
		got, err := parseEntityResponse(`{"entities": [{"name": "Goblin Boss", "category": "monster",
			"stats": {"armor_class": 17, "hit_points": "21 (6d6)"}, "abilities": ["Redirect Attack"],
			"game_system": "D&D 5e", "confidence": 0.95}]}`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Goblin Boss", got[0].Name)
		assert.Equal(t, "monster", got[0].Category)
		assert.Equal(t, "17", got[0].Stats["armor_class"])
		assert.Equal(t, "21 (6d6)", got[0].Stats["hit_points"])
		assert.Equal(t, []string{"Redirect Attack"}, got[0].Abilities)
		assert.Equal(t, 0.95, got[0].Confidence)
	})

	t.Run("npcs wrapper with flat fields", func(t *testing.T) {
		got, err := parseEntityResponse(`{"npcs": [{"name": "Aldric", "type": "NPC", "race": "Human",
			"class": "Fighter", "level": 5, "hit_points": 44, "skills": ["Athletics"], "confidence_score": 0.75}]}`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "npc", got[0].Category)
		assert.Equal(t, "Human", got[0].Attributes["race"])
		assert.Equal(t, "5", got[0].Attributes["level"])
		assert.Equal(t, "44", got[0].Stats["hit_points"])
		assert.Equal(t, []string{"Athletics"}, got[0].Abilities)
		assert.Equal(t, 0.75, got[0].Confidence)
	})

	t.Run("bare array", func(t *testing.T) {
		got, err := parseEntityResponse(`[{"name": "A", "category": "npc"}, {"name": "B", "category": "dragon"}]`)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, defaultConfidence, got[0].Confidence)
		assert.Equal(t, "other", got[1].Category)
	})

	t.Run("single object", func(t *testing.T) {
		got, err := parseEntityResponse("```json\n{\"name\": \"Vex\", \"category\": \"villain\", \"confidence\": 1.4}\n```")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 1.0, got[0].Confidence)
	})

	t.Run("repairable", func(t *testing.T) {
		got, err := parseEntityResponse(`{"entities": [{"name": "Vex", confidence": 0.6,}]}`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 0.6, got[0].Confidence)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseEntityResponse("I could not find any characters.")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := parseEntityResponse("   ")
		assert.Error(t, err)
	})
}

func TestPickBest(t *testing.T) {
	assert.Nil(t, pickBest(nil))
	assert.Nil(t, pickBest([]ai.EntityCandidate{{Name: "", Confidence: 1}}))

	best := pickBest([]ai.EntityCandidate{
		{Name: "A", Confidence: 0.6},
		{Name: "B", Confidence: 0.9},
		{Name: "C", Confidence: 0.9},
	})
	require.NotNil(t, best)
	assert.Equal(t, "B", best.Name)
}

func TestExtractEntity(t *testing.T) {
	ctx := context.Background()

	t.Run("returns most confident entity", func(t *testing.T) {
		model := &scriptedModel{responses: []string{
			`{"entities": [{"name": "Guard", "category": "npc", "confidence": 0.5},
				{"name": "Captain Rhea", "category": "npc", "confidence": 0.9}]}`,
		}}
		got, err := newTestExtractor(model, 3000).ExtractEntity(ctx, "Captain Rhea STR 14 DEX 12")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Captain Rhea", got.Name)
		assert.Equal(t, 1, model.calls)
	})

	t.Run("retries malformed output", func(t *testing.T) {
		model := &scriptedModel{responses: []string{
			"not json",
			`{"entities": [{"name": "Rhea", "category": "npc", "confidence": 0.8}]}`,
		}}
		got, err := newTestExtractor(model, 3000).ExtractEntity(ctx, "text")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 2, model.calls)
	})

	t.Run("persistently malformed output is no entity", func(t *testing.T) {
		model := &scriptedModel{responses: []string{"not json"}}
		got, err := newTestExtractor(model, 3000).ExtractEntity(ctx, "text")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, maxParseAttempts, model.calls)
	})

	t.Run("empty entity list", func(t *testing.T) {
		model := &scriptedModel{responses: []string{`{"entities": []}`}}
		got, err := newTestExtractor(model, 3000).ExtractEntity(ctx, "text")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("no choices", func(t *testing.T) {
		model := &scriptedModel{}
		got, err := newTestExtractor(model, 3000).ExtractEntity(ctx, "text")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("service failure", func(t *testing.T) {
		model := &scriptedModel{err: errors.New("connection refused")}
		got, err := newTestExtractor(model, 3000).ExtractEntity(ctx, "text")
		assert.Error(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 1, model.calls)
	})

	t.Run("blank input skips the service", func(t *testing.T) {
		model := &scriptedModel{}
		got, err := newTestExtractor(model, 3000).ExtractEntity(ctx, "  \n ")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 0, model.calls)
	})

	t.Run("input truncated", func(t *testing.T) {
		model := &scriptedModel{responses: []string{`{"entities": []}`}}
		_, err := newTestExtractor(model, 5).ExtractEntity(ctx, "abcdefghij")
		require.NoError(t, err)
		assert.Equal(t, "abcde", model.lastInput)
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt()
	for _, c := range ai.EntityCategories {
		assert.Contains(t, prompt, c)
	}
	assert.Contains(t, prompt, `"entities"`)
}
