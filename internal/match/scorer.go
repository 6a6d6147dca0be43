package match

import (
	"fmt"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Scorer names accepted by Options.Scorer.
const (
	ScorerRatio          = "ratio"
	ScorerPartialRatio   = "partial_ratio"
	ScorerTokenSortRatio = "token_sort_ratio"
	ScorerTokenSetRatio  = "token_set_ratio"
)

// ScoreFunc scores the similarity of two strings on a 0-100 scale.
type ScoreFunc func(a, b string) float64

var scorers = map[string]ScoreFunc{
	ScorerRatio:          Ratio,
	ScorerPartialRatio:   PartialRatio,
	ScorerTokenSortRatio: TokenSortRatio,
	ScorerTokenSetRatio:  TokenSetRatio,
}

// LookupScorer returns the scorer registered under name.
func LookupScorer(name string) (ScoreFunc, error) {
	fn, ok := scorers[name]
	if !ok {
		return nil, fmt.Errorf("unknown scorer %q", name)
	}

	return fn, nil
}

var jaroWinkler = metrics.NewJaroWinkler()

// Ratio is the Jaro-Winkler similarity of a and b scaled to 0-100.
func Ratio(a, b string) float64 {
	switch {
	case a == b:
		return 100
	case a == "" || b == "":
		return 0
	}

	return 100 * strutil.Similarity(a, b, jaroWinkler)
}

// PartialRatio is the best Ratio of the shorter string against every
// equally long window of the longer one.
func PartialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	if len(ra) == 0 {
		return Ratio(a, b)
	}

	best := 0.0

	for i := 0; i+len(ra) <= len(rb); i++ {
		best = max(best, Ratio(string(ra), string(rb[i:i+len(ra)])))
		if best == 100 {
			break
		}
	}

	return best
}

// TokenSortRatio is the Ratio of both strings after sorting their
// whitespace-separated tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens of a and b with each side's
// shared-plus-remaining tokens and keeps the best Ratio.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)

	var common, onlyA, onlyB []string

	for _, t := range ta {
		if slices.Contains(tb, t) {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}

	for _, t := range tb {
		if !slices.Contains(ta, t) {
			onlyB = append(onlyB, t)
		}
	}

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Ratio(withA, withB)
	if base != "" {
		best = max(best, Ratio(base, withA), Ratio(base, withB))
	}

	return best
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)

	return strings.Join(tokens, " ")
}

// tokenSet returns the sorted distinct tokens of s.
func tokenSet(s string) []string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)

	return slices.Compact(tokens)
}
