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
	"strings"
	"unicode"
)

// stripCodeFence removes a markdown code fence wrapped around a response.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON fixes formatting slips seen in model output: keys that lost
// their opening quote (`, name": 1`) and trailing commas before a closing
// bracket. Text inside string literals is never touched.
func repairJSON(s string) string {
	src := []rune(s)
	out := make([]rune, 0, len(src)+16)

	inString, escaped := false, false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out = append(out, ch)
		case ',', '{':
			j := skipSpace(src, i+1)
			if ch == ',' && j < len(src) && (src[j] == '}' || src[j] == ']') {
				// Trailing comma: drop it, keep the whitespace.
				continue
			}
			out = append(out, ch)
			out = append(out, src[i+1:j]...)
			i = j - 1
			if k, ok := unquotedKey(src, j); ok {
				out = append(out, '"')
				out = append(out, src[j:k+1]...)
				i = k
			}
		default:
			out = append(out, ch)
		}
	}

	return string(out)
}

func skipSpace(src []rune, i int) int {
	for i < len(src) && unicode.IsSpace(src[i]) {
		i++
	}
	return i
}

// unquotedKey reports whether src[j:] starts with a bare word followed by `":`.
// It returns the index of the closing quote.
func unquotedKey(src []rune, j int) (int, bool) {
	if j >= len(src) || !isLetter(src[j]) {
		return 0, false
	}
	k := j
	for k < len(src) && (isLetter(src[k]) || unicode.IsDigit(src[k]) || src[k] == '_') {
		k++
	}
	if k+1 < len(src) && src[k] == '"' && src[k+1] == ':' {
		return k, true
	}
	return 0, false
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// truncateRunes shortens s to at most n runes. n <= 0 leaves s unchanged.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
