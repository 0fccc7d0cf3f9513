package utils

import (
	"regexp"
	"strings"
)

var (
	termPattern     = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)
)

var stopwords = toSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
	"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that",
	"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
	"into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off",
	"own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how", "do", "does", "did",
	"i", "me", "my", "we", "our", "you", "your", "they", "their", "he", "she", "his", "her",
	"has", "have", "had", "not", "no", "there", "here", "any", "all", "some", "each", "also",
	"may", "might", "would", "could", "must", "shall", "please", "tell",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Tokens returns the lower-cased word tokens of text, stopwords included.
func Tokens(text string) []string {
	return termPattern.FindAllString(strings.ToLower(text), -1)
}

// Terms returns the lower-cased content terms of text in order of appearance,
// with stopwords removed. Duplicates are kept.
func Terms(text string) []string {
	tokens := Tokens(text)
	out := tokens[:0]
	for _, tok := range tokens {
		if !IsStopword(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// TermSet returns the distinct content terms of text.
func TermSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Terms(text) {
		set[t] = struct{}{}
	}
	return set
}

// IsStopword reports whether a lower-cased token carries no topical meaning.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Sentences splits text into trimmed sentences. Line breaks also end a sentence
// so headings and list items stay separate.
func Sentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
