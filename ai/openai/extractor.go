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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/lorevault/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// defaultConfidence is assumed when the model omits a confidence score.
	defaultConfidence = 0.8

	maxParseAttempts = 3
)

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible chat APIs.
type EntityExtractor struct {
	client        llms.Model
	temperature   float64
	maxInputChars int
	logger        *slog.Logger
}

// rawEntity matches the structure expected from the model. Older prompts
// produced flat fields for race, class and the like; those are folded into
// attributes and stats when present.
type rawEntity struct {
	Name            string         `json:"name"`
	Category        string         `json:"category"`
	Type            string         `json:"type"`
	Attributes      map[string]any `json:"attributes"`
	Stats           map[string]any `json:"stats"`
	Abilities       []any          `json:"abilities"`
	Description     string         `json:"description"`
	GameSystem      string         `json:"game_system"`
	Confidence      *float64       `json:"confidence"`
	ConfidenceScore *float64       `json:"confidence_score"`

	Race       any   `json:"race"`
	Class      any   `json:"class"`
	Level      any   `json:"level"`
	Alignment  any   `json:"alignment"`
	HitPoints  any   `json:"hit_points"`
	ArmorClass any   `json:"armor_class"`
	Skills     []any `json:"skills"`
	Spells     []any `json:"spells"`
	Equipment  []any `json:"equipment"`
}

// newEntityExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityExtractor(config *ai.Config) (*EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return newEntityExtractorWithModel(client, config), nil
}

func newEntityExtractorWithModel(client llms.Model, config *ai.Config) *EntityExtractor {
	return &EntityExtractor{
		client:        client,
		temperature:   config.Temperature,
		maxInputChars: config.MaxInputChars,
		logger:        slog.Default().With("component", "openai-extractor"),
	}
}

// NewEntityExtractor creates a new entity extractor using the provided configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newEntityExtractor(config)
}

// ExtractEntity asks the model for stat-block entities in text and returns
// the most confident one. A response that still fails to parse after
// retries is treated as "no entity".
func (e *EntityExtractor) ExtractEntity(ctx context.Context, text string) (*ai.EntityCandidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if e.maxInputChars > 0 {
		text = truncateRunes(text, e.maxInputChars)
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	var candidates []ai.EntityCandidate
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content,
			llms.WithTemperature(e.temperature),
			llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return nil, nil
		}

		candidates, err = parseEntityResponse(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Warn("giving up on malformed extractor response", "err", lastErr)
		return nil, nil
	}

	best := pickBest(candidates)
	if best == nil {
		e.logger.Debug("no entity in response")
		return nil, nil
	}
	e.logger.Debug("extracted entity",
		"name", best.Name,
		"category", best.Category,
		"confidence", best.Confidence,
		"candidates", len(candidates))
	return best, nil
}

// parseEntityResponse decodes the model output. It accepts a wrapper object
// keyed by "entities" or "npcs", a bare array, or a single entity object.
func parseEntityResponse(text string) ([]ai.EntityCandidate, error) {
	text = repairJSON(stripCodeFence(text))
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	var raws []rawEntity
	switch text[0] {
	case '[':
		if err := json.Unmarshal([]byte(text), &raws); err != nil {
			return nil, err
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &wrapper); err != nil {
			return nil, err
		}
		list, ok := wrapper["entities"]
		if !ok {
			list, ok = wrapper["npcs"]
		}
		if ok {
			if err := json.Unmarshal(list, &raws); err != nil {
				return nil, err
			}
			break
		}
		var single rawEntity
		if err := json.Unmarshal([]byte(text), &single); err != nil {
			return nil, err
		}
		raws = []rawEntity{single}
	default:
		return nil, fmt.Errorf("unexpected response start %q", text[0])
	}

	candidates := make([]ai.EntityCandidate, 0, len(raws))
	for _, r := range raws {
		candidates = append(candidates, r.candidate())
	}
	return candidates, nil
}

func (r rawEntity) candidate() ai.EntityCandidate {
	c := ai.EntityCandidate{
		Name:        strings.TrimSpace(r.Name),
		Category:    normalizeCategory(r.Category, r.Type),
		Attributes:  stringMap(r.Attributes),
		Stats:       stringMap(r.Stats),
		Abilities:   stringList(r.Abilities),
		Description: strings.TrimSpace(r.Description),
		GameSystem:  strings.TrimSpace(r.GameSystem),
		Confidence:  defaultConfidence,
	}

	switch {
	case r.Confidence != nil:
		c.Confidence = *r.Confidence
	case r.ConfidenceScore != nil:
		c.Confidence = *r.ConfidenceScore
	}
	if math.IsNaN(c.Confidence) {
		c.Confidence = 0
	}
	c.Confidence = math.Max(0, math.Min(1, c.Confidence))

	for key, v := range map[string]any{"race": r.Race, "class": r.Class, "level": r.Level, "alignment": r.Alignment} {
		if s := stringify(v); s != "" {
			if _, ok := c.Attributes[key]; !ok {
				c.Attributes[key] = s
			}
		}
	}
	for key, v := range map[string]any{"hit_points": r.HitPoints, "armor_class": r.ArmorClass} {
		if s := stringify(v); s != "" {
			if _, ok := c.Stats[key]; !ok {
				c.Stats[key] = s
			}
		}
	}
	c.Abilities = append(c.Abilities, stringList(r.Skills)...)
	c.Abilities = append(c.Abilities, stringList(r.Spells)...)
	c.Abilities = append(c.Abilities, stringList(r.Equipment)...)
	return c
}

// pickBest returns the highest confidence candidate that has a name.
// Ties keep the earlier candidate.
func pickBest(candidates []ai.EntityCandidate) *ai.EntityCandidate {
	var best *ai.EntityCandidate
	for i := range candidates {
		c := &candidates[i]
		if c.Name == "" {
			continue
		}
		if best == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

func normalizeCategory(category, fallback string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		c = strings.ToLower(strings.TrimSpace(fallback))
	}
	c = strings.ReplaceAll(c, " ", "_")
	if !ai.IsEntityCategory(c) {
		return "other"
	}
	return c
}

func stringMap(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s := stringify(v); s != "" {
			out[strings.ToLower(strings.TrimSpace(k))] = s
		}
	}
	return out
}

func stringList(in []any) []string {
	var out []string
	for _, v := range in {
		if s := stringify(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stringify renders a decoded JSON value as text. Nested values are
// re-encoded as compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
