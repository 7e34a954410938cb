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

// Package extraction decides which chunks are worth sending to the entity
// extraction service and turns accepted candidates into entity records.
//
// Extraction is expensive, so every chunk first passes a regex pre-filter.
// A chunk qualifies when it shows at least two distinct kinds of stat block
// signal (ability scores, hit points, armor class and so on). Qualifying
// chunks go to the extractor; its answer is kept only when the reported
// confidence reaches the configured threshold.
package extraction

import "regexp"

// MinSignals is the number of distinct signal categories a chunk needs
// before it is sent to the extractor.
const MinSignals = 2

// Signal is one category of stat block marker.
type Signal string

const (
	SignalStrength     Signal = "strength"
	SignalDexterity    Signal = "dexterity"
	SignalConstitution Signal = "constitution"
	SignalIntelligence Signal = "intelligence"
	SignalWisdom       Signal = "wisdom"
	SignalCharisma     Signal = "charisma"
	SignalHitPoints    Signal = "hit_points"
	SignalArmorClass   Signal = "armor_class"
	SignalChallenge    Signal = "challenge_rating"
	SignalLevel        Signal = "level"
)

type signalPattern struct {
	signal Signal
	re     *regexp.Regexp
}

// Each pattern needs a number right after its label; a heading like
// "Strength" alone is not a stat.
var signalPatterns = []signalPattern{
	{SignalStrength, regexp.MustCompile(`(?i)\b(?:str|strength)\s*:?\s*\d+`)},
	{SignalDexterity, regexp.MustCompile(`(?i)\b(?:dex|dexterity)\s*:?\s*\d+`)},
	{SignalConstitution, regexp.MustCompile(`(?i)\b(?:con|constitution)\s*:?\s*\d+`)},
	{SignalIntelligence, regexp.MustCompile(`(?i)\b(?:int|intelligence)\s*:?\s*\d+`)},
	{SignalWisdom, regexp.MustCompile(`(?i)\b(?:wis|wisdom)\s*:?\s*\d+`)},
	{SignalCharisma, regexp.MustCompile(`(?i)\b(?:cha|charisma)\s*:?\s*\d+`)},
	{SignalHitPoints, regexp.MustCompile(`(?i)\b(?:hit\s*points?|hp)\s*:?\s*\d+`)},
	{SignalArmorClass, regexp.MustCompile(`(?i)\b(?:armor\s*class|ac)\s*:?\s*\d+`)},
	{SignalChallenge, regexp.MustCompile(`(?i)\b(?:challenge(?:\s*rating)?|cr)\s*:?\s*\(?\d+(?:/\d+)?`)},
	{SignalLevel, regexp.MustCompile(`(?i)\b(?:level|hd|hit\s*dice)\s*:?\s*\d+`)},
}

// Signals returns the distinct signal categories found in text, in a fixed order.
func Signals(text string) []Signal {
	var found []Signal
	for _, p := range signalPatterns {
		if p.re.MatchString(text) {
			found = append(found, p.signal)
		}
	}
	return found
}

// Qualifies reports whether text carries enough stat block signals to be
// worth an extraction call.
func Qualifies(text string) bool {
	count := 0
	for _, p := range signalPatterns {
		if p.re.MatchString(text) {
			count++
			if count >= MinSignals {
				return true
			}
		}
	}
	return false
}
