package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	assert.InDelta(t, 100, Ratio("acme", "acme"), 1e-9)
	assert.InDelta(t, 100, Ratio("", ""), 1e-9)
	assert.InDelta(t, 0, Ratio("abc", ""), 1e-9)
	assert.InDelta(t, 0, Ratio("abc", "xyz"), 1e-9)
	// jaro 0.9444, shared prefix "ma"
	assert.InDelta(t, 96.11, Ratio("martha", "marhta"), 0.01)
	assert.InDelta(t, 91.25, Ratio("acme corp", "acme corporation"), 0.01)
}

func TestTokenSortRatio_IgnoresOrder(t *testing.T) {
	assert.InDelta(t, 100, TokenSortRatio("corp acme", "acme corp"), 1e-9)
	assert.Greater(t, TokenSortRatio("corp acme", "acme corp"), Ratio("corp acme", "acme corp"))
}

func TestTokenSetRatio_Subset(t *testing.T) {
	assert.InDelta(t, 100, TokenSetRatio("acme", "acme acme corporation"), 1e-9)
	assert.Less(t, TokenSetRatio("alpha", "omega"), 100.0)
}

func TestPartialRatio(t *testing.T) {
	assert.InDelta(t, 100, PartialRatio("acme", "the acme group"), 1e-9)
	assert.InDelta(t, 100, PartialRatio("the acme group", "acme"), 1e-9)
	assert.Less(t, PartialRatio("zeta", "the acme group"), 100.0)
}

func TestLookupScorer(t *testing.T) {
	for _, name := range []string{ScorerRatio, ScorerPartialRatio, ScorerTokenSortRatio, ScorerTokenSetRatio} {
		fn, err := LookupScorer(name)
		require.NoError(t, err, name)
		assert.InDelta(t, 100, fn("same", "same"), 1e-9)
	}

	_, err := LookupScorer("wratio")
	require.ErrorContains(t, err, `unknown scorer "wratio"`)
}

func TestScorers_Bounded(t *testing.T) {
	pairs := [][2]string{
		{"acme", "acne"},
		{"north wind", "northwind traders"},
		{"a", "bbbbbbbb"},
		{"über", "uber"},
	}

	for _, fn := range scorers {
		for _, p := range pairs {
			s := fn(p[0], p[1])
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 100.0+1e-9)
		}
	}
}
