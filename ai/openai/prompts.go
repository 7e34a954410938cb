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
	"fmt"
	"strings"

	"github.com/poiesic/lorevault/ai"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "category": {"type": "string"},
          "attributes": {
            "type": "object",
            "description": "race, class, level, alignment, size, type",
            "additionalProperties": {"type": "string"}
          },
          "stats": {
            "type": "object",
            "description": "str, dex, con, int, wis, cha, hit_points, armor_class, challenge_rating, speed",
            "additionalProperties": {"type": "string"}
          },
          "abilities": {"type": "array", "items": {"type": "string"}},
          "description": {"type": "string"},
          "game_system": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["name", "category", "confidence"]
      }
    }
  },
  "required": ["entities"]
}`

const extractionPromptTemplate = `You extract tabletop roleplaying game characters and creatures from rulebook text.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Only extract entities that have an actual stat block or detailed game statistics in the text.
- Category must match exactly one of the listed values: %s.
- Copy statistics as written, e.g. "15 (+2)" for an ability score or "45 (6d8+18)" for hit points.
- Abilities are short free-text entries: skills, spells, equipment, special actions.
- game_system is the rules system if it is evident (e.g. "D&D 5e", "Pathfinder"), otherwise "".
- confidence is a number from 0 to 1 describing how sure you are this is a complete, real stat block.
- If the text contains no stat block, return {"entities": []}.
- The JSON must parse without errors; no trailing commas and no extraneous text outside the object.

Example:
Input: "GOBLIN BOSS Small humanoid (goblinoid), neutral evil. Armor Class 17 (chain shirt, shield) Hit Points 21 (6d6) STR 10 (+0) DEX 14 (+2) CON 10 (+0) INT 10 (+0) WIS 8 (-1) CHA 10 (+0) Challenge 1 (200 XP)"
Output:
{
  "entities": [
    {
      "name": "Goblin Boss",
      "category": "monster",
      "attributes": {"size": "Small", "type": "humanoid (goblinoid)", "alignment": "neutral evil"},
      "stats": {"armor_class": "17", "hit_points": "21 (6d6)", "str": "10 (+0)", "dex": "14 (+2)", "con": "10 (+0)", "int": "10 (+0)", "wis": "8 (-1)", "cha": "10 (+0)", "challenge_rating": "1"},
      "abilities": [],
      "description": "A goblin leader in a chain shirt.",
      "game_system": "D&D 5e",
      "confidence": 0.95
    }
  ]
}`

// buildSystemPrompt creates the system prompt with entity categories embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(ai.EntityCategories, ", "))
}
