package match

import (
	"slices"

	"github.com/agnivade/levenshtein"
)

// Levenshtein computes the rune edit distance between two strings.
func Levenshtein(a, b string) int { return levenshtein.ComputeDistance(a, b) }

// Closest returns the candidates within maxDist edits of s, nearest first.
// It backs "did you mean" suggestions for misspelled names.
func Closest(s string, candidates []string, maxDist int) []string {
	type scored struct {
		name string
		dist int
	}

	var hits []scored

	for _, c := range candidates {
		if d := Levenshtein(s, c); d <= maxDist {
			hits = append(hits, scored{c, d})
		}
	}

	slices.SortStableFunc(hits, func(x, y scored) int { return x.dist - y.dist })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}

	return out
}
