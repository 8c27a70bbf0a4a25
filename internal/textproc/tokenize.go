// Package textproc holds the text analysis shared by the lexical index and
// the in-process embedder.
package textproc

import (
	"regexp"
	"strings"
)

// tokenPattern keeps dotted clause numbers such as 9.5.1 and hyphenated
// words as single tokens, since exact clause references matter in code text.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[.\-'’][\p{L}\p{N}]+)*`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on",
		"at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this",
		"that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than",
		"so", "such", "into", "about", "between", "through", "during", "before", "after", "above",
		"below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now",
		"what", "which", "who", "how", "does", "do", "there",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokenize lower-cases text and splits it into terms, dropping stopwords.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// IsStopword reports whether a lower-cased term carries no retrieval signal.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

// TermFrequencies counts the occurrences of each term.
func TermFrequencies(terms []string) map[string]int {
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return tf
}
