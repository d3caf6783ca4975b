package partnum

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// DefaultThreshold is the acceptance threshold for fuzzy category matching
// on the 0-100 score scale.
const DefaultThreshold = 70.0

const suffixLength = 3

// Score computes a weighted similarity between a query and a catalog
// candidate on a 0-100 scale (bonuses can push it slightly above 100).
//
// The base is a token-order-insensitive edit-distance ratio over the
// normalized keys. Three structural weights are multiplied in:
//
//   - length penalty: 1 - (Δlen/maxlen)², floored at 0
//   - separator bonus: 1.0 when both raw inputs carry the same number of
//     hyphens, else 0.9 (hyphens are gone after normalization, so the
//     count comes from the raw strings)
//   - suffix bonus: 1.0 when the last three normalized characters match
//     exactly, else 0.95
//
// Plain edit distance over-accepts candidates that merely share
// characters; the weights bias toward candidates matching the shape of
// real part numbers (fixed-width segments, version suffixes).
func Score(query, candidate string) float64 {
	q := Normalize(query)
	c := Normalize(candidate)
	if q == "" || c == "" {
		return 0
	}

	ratio := tokenSortRatio(q, c)

	lenDiff := len(q) - len(c)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	maxLen := len(q)
	if len(c) > maxLen {
		maxLen = len(c)
	}
	frac := float64(lenDiff) / float64(maxLen)
	lengthPenalty := 1 - frac*frac
	if lengthPenalty < 0 {
		lengthPenalty = 0
	}

	structureBonus := 0.9
	if strings.Count(query, "-") == strings.Count(candidate, "-") {
		structureBonus = 1.0
	}

	suffixBonus := 0.95
	if suffix(q) == suffix(c) {
		suffixBonus = 1.0
	}

	return ratio * lengthPenalty * structureBonus * suffixBonus
}

// tokenSortRatio splits both inputs into alphanumeric tokens, sorts them,
// and computes the Levenshtein similarity of the joined forms, scaled to
// 0-100. Token order therefore does not matter. Normalized keys carry a
// single token, so for them this reduces to a plain edit-distance ratio.
func tokenSortRatio(a, b string) float64 {
	return levenshtein.Similarity(tokenSort(a), tokenSort(b), nil) * 100
}

func tokenSort(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, Normalize(f))
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func suffix(s string) string {
	if len(s) <= suffixLength {
		return s
	}
	return s[len(s)-suffixLength:]
}
