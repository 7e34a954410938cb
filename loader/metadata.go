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


package loader

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/lorevault/core"
	"gopkg.in/yaml.v3"
)

// Content hint names recorded in DocumentMetadata.ContentHints.
const (
	HintNPC       = "npc_content"
	HintRulebook  = "rulebook_content"
	HintAdventure = "adventure_content"
)

var (
	titlePattern  = regexp.MustCompile(`(?m)^#{1,2}\s+(.+)$`)
	headerPattern = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

	hintPatterns = []struct {
		hint     string
		patterns []*regexp.Regexp
	}{
		{HintNPC, compileAll(
			`(?i)\bstats?\b`, `(?i)\bhit points?\b`, `(?i)\barmor class\b`,
			`(?i)\bstr\s*\d+\b`, `(?i)\bdex\s*\d+\b`, `(?i)\bcon\s*\d+\b`,
			`(?i)\bchallenge rating\b`, `(?i)\bcr\s*\d+`, `(?i)\bnpc\b`,
			`(?i)\bcreature\b`, `(?i)\bmonster\b`,
		)},
		{HintRulebook, compileAll(
			`(?i)\brules?\b`, `(?i)\bmechanics?\b`, `(?i)\bgame(?:play)?\b`,
			`(?i)\bchapter\s+\d+`, `(?i)\bsection\s+\d+`, `(?i)\bappendix\b`,
		)},
		{HintAdventure, compileAll(
			`(?i)\badventure\b`, `(?i)\bcampaign\b`, `(?i)\bquest\b`,
			`(?i)\bencounter\s+\d+`, `(?i)\bscene\s+\d+`, `(?i)\bact\s+\d+`,
		)},
	}
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// ExtractMetadata gathers structural facts from raw (uncleaned) content.
// Malformed frontmatter is skipped rather than reported.
func ExtractMetadata(content string) core.DocumentMetadata {
	meta := core.DocumentMetadata{
		FileHash:     fileHash(content),
		CharCount:    utf8.RuneCountInString(content),
		WordCount:    len(strings.Fields(content)),
		LineCount:    strings.Count(content, "\n") + 1,
		ContentHints: make(map[string]bool),
	}

	if m := titlePattern.FindStringSubmatch(content); m != nil {
		meta.Title = strings.TrimSpace(m[1])
	}
	for _, m := range headerPattern.FindAllStringSubmatch(content, -1) {
		meta.Headers = append(meta.Headers, strings.TrimSpace(m[1]))
	}

	if m := frontmatterPattern.FindStringSubmatch(content); m != nil {
		var fm map[string]any
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err == nil && len(fm) > 0 {
			meta.Frontmatter = fm
		}
	}

	for _, group := range hintPatterns {
		for _, re := range group.patterns {
			if re.MatchString(content) {
				meta.ContentHints[group.hint] = true
				break
			}
		}
	}
	return meta
}
