package index

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases s and splits it on anything that is not a letter or
// a number, matching the FTS5 unicode61 tokenizer the index is built with.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isTokenRune(r)
	})
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// NormalizeGuest lower-cases a guest name and strips everything except
// letters, digits and spaces, so "Brian Chesky" and "brian chesky!" compare
// equal.
func NormalizeGuest(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if isTokenRune(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
