// Package textnorm folds polytonic Greek (and incidental Latin) text into
// a canonical comparison form. The same folding is applied to stopwords,
// proper-noun forms and passage tokens so that surface-form variants of a
// word compare equal.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folding: decompose, strip combining marks (accents, breathings, iota
// subscript), recompose
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalizes a word for comparison: diacritics stripped, lowercased,
// final sigma folded to medial
func Fold(s string) string {
	folded, _, err := transform.String(folder, s)
	if err != nil {
		// transform only fails on malformed UTF-8; fall back to the input
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.Map(func(r rune) rune {
		if r == 'ς' {
			return 'σ'
		}
		return r
	}, folded)
}

// Tokenize splits text into folded word tokens. Anything that is not a
// letter separates tokens; empty tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := Fold(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
