package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted text before chunking. Runs of horizontal
// whitespace become one space, control characters are dropped and blank lines
// are removed, but single line breaks survive so headings and list items stay
// separate sentences in the stored document text.
func Preprocess(text string) string {
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' || r == '\f' || r == '\v' })
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsControl(r)
		}), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
