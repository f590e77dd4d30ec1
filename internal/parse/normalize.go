package parse

import (
	"regexp"
	"strings"
)

// maxQueryTokens caps normalised queries; food search engines degrade with
// long noisy queries.
const maxQueryTokens = 6

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// NormalizeQuery cleans arbitrary text into a compact food-search query:
// newlines and carriage returns are stripped, non-word characters become
// spaces, whitespace is collapsed, and the result is trimmed and truncated
// to the first six tokens.
//
// An all-punctuation or empty input yields "". Callers must treat an empty
// result as "no searchable query" and fall back to an unmatched item.
// NormalizeQuery is pure and total; it never fails.
func NormalizeQuery(text string) string {
	s := strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
	s = nonWordRe.ReplaceAllString(s, " ")
	tokens := strings.Fields(s)
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return strings.Join(tokens, " ")
}
