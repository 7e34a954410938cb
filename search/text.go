package search

import (
	"strings"
	"unicode"
)

// Stop words ignored when matching query words against stored text
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "who": true, "how": true, "does": true,
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit, apostrophe or ampersand, dropping stop words. "D&D" stays one word.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '&'
	})
	filtered := words[:0]
	for _, word := range words {
		word = strings.Trim(word, "'")
		if word != "" && !stopWords[word] {
			filtered = append(filtered, word)
		}
	}
	return filtered
}

// queryCoverage returns the fraction of distinct query words present in
// document, or 0 when the query has no meaningful words.
func queryCoverage(document, query string) float64 {
	queryWords := make(map[string]bool)
	for _, w := range tokenize(query) {
		queryWords[w] = true
	}
	if len(queryWords) == 0 {
		return 0
	}

	docWords := make(map[string]bool)
	for _, w := range tokenize(document) {
		docWords[w] = true
	}

	found := 0
	for w := range queryWords {
		if docWords[w] {
			found++
		}
	}
	return float64(found) / float64(len(queryWords))
}
