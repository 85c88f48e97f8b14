package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents removes combining marks after NFD decomposition, so that
// "João" and "Joao" normalize to the same string.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases, strips accents and collapses whitespace.
// All name comparisons in the classifier go through this.
func NormalizeName(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// SurnameToken returns the last token of the normalized name, or "" for
// names with fewer than two tokens. The surname rule compares tokens for
// exact equality only, never similarity.
func SurnameToken(s string) string {
	fields := strings.Fields(NormalizeName(s))
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-1]
}
