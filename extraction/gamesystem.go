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

package extraction

import "regexp"

type gameSystem struct {
	name    string
	markers []*regexp.Regexp
}

// Checked in order; the first system with two markers wins.
var gameSystems = []gameSystem{
	{"D&D 5e", compileAll(
		`(?i)\bproficiency\s+bonus\b`,
		`(?i)\badvantage\b`,
		`(?i)\bdisadvantage\b`,
		`(?i)\binspiration\b`,
		`(?i)\bdeath\s+saves?\b`,
	)},
	{"Pathfinder", compileAll(
		`(?i)\bbase\s+attack\s+bonus\b`,
		`(?i)\bcmb\b`,
		`(?i)\bcmd\b`,
		`(?i)\bfort(?:itude)?\b`,
		`(?i)\breflex\b`,
		`(?i)\bwill\b`,
	)},
	{"Star Wars D6", compileAll(
		`(?i)\bforce\s+points?\b`,
		`(?i)\bdark\s+side\s+points?\b`,
		`(?i)\bcharacter\s+points?\b`,
		`\b\d+D(?:\+\d+)?\b`,
	)},
	{"Starfinder", compileAll(
		`(?i)\bstamina\s+points?\b`,
		`(?i)\bresolve\s+points?\b`,
		`(?i)\beac\b`,
		`(?i)\bkac\b`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// DetectGameSystem guesses the rules system text was written for.
// It returns "" when no system shows at least two of its markers.
func DetectGameSystem(text string) string {
	for _, sys := range gameSystems {
		matches := 0
		for _, re := range sys.markers {
			if re.MatchString(text) {
				matches++
			}
		}
		if matches >= 2 {
			return sys.name
		}
	}
	return ""
}
