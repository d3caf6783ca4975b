// Package partnum provides part-number canonicalization and the weighted
// similarity score used for fuzzy catalog matching.
package partnum

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes an identifier into a comparable key: NFKC fold
// (so full-width digits and compatibility forms collapse to their plain
// equivalents), then uppercase letters and digits only. Total and
// idempotent; empty input yields the empty string.
func Normalize(text string) string {
	folded := norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
