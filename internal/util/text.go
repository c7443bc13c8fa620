package util

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// BodyPrefix returns the normalized first n runes of a body text. Used as a
// near-duplicate key: the upstream occasionally returns the same comment with
// trailing differences across pages.
func BodyPrefix(body string, n int) string {
	s := NormalizeWhitespace(body)
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
