package compile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/table"
)

func enrichTarget(step config.EnrichStep) config.CompileTarget {
	return config.CompileTarget{Name: "t", Key: []string{"id"}, Inputs: []string{"rows"}, Enrich: []config.EnrichStep{step}}
}

func TestEnrich_Exact(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"rows": mustTable(t, "rows", []string{"id", "code"}, []any{1, "A"}),
		"dim":  mustTable(t, "dim", []string{"code", "name"}, []any{"A", "Alpha"}),
	})

	out, err := eng.CompileTarget(enrichTarget(config.EnrichStep{
		From: "dim", LeftOn: "code", RightOn: "code",
		Add: map[string]string{"label": "name"},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "code", "label"}, out.ColumnNames())
	assert.Equal(t, []any{"A"}, values(t, out, "code"))
	assert.Equal(t, []any{"Alpha"}, values(t, out, "label"))
}

func TestEnrich_Fuzzy(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"rows": mustTable(t, "rows", []string{"id", "org"}, []any{1, "Acme Corp."}, []any{2, "Initech"}),
		"dim":  mustTable(t, "dim", []string{"org", "region"}, []any{"ACME CORPORATION", "west"}, []any{"Globex", "east"}),
	})

	out, err := eng.CompileTarget(enrichTarget(config.EnrichStep{
		From: "dim", LeftOn: "org", RightOn: "org",
		Add: map[string]string{"org_region": "region"},
		Match: config.MatchSpec{
			Strategy:  []string{"exact", "normalized", "fuzzy"},
			Normalize: []string{"strip", "lower", "collapse_ws", "strip_punct"},
			Fuzzy:     config.FuzzySpec{Scorer: "token_sort_ratio", Threshold: 80},
			Audit:     true,
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, []any{"west", nil}, values(t, out, "org_region"))
	assert.Equal(t, []any{"ACME CORPORATION", nil}, values(t, out, "org_match_to"))
	assert.Equal(t, []any{"fuzzy", "miss"}, values(t, out, "org_match_method"))

	scores := values(t, out, "org_match_score")
	assert.GreaterOrEqual(t, scores[0], 80.0)
	assert.Nil(t, scores[1])
}

func TestEnrich_DedupesDimension(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"rows": mustTable(t, "rows", []string{"id", "code"}, []any{1, "A"}, []any{2, "B"}),
		"dim": mustTable(t, "dim", []string{"code", "name"},
			[]any{"A", "first"},
			[]any{"A", "second"},
			[]any{nil, "orphan"},
			[]any{"B", "bee"},
		),
	})

	out, err := eng.CompileTarget(enrichTarget(config.EnrichStep{
		From: "dim", LeftOn: "code", RightOn: "code",
		Add:   map[string]string{"name": "name"},
		Match: config.MatchSpec{Audit: true},
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, out.Len(), "a duplicated dimension key never fans out")
	assert.Equal(t, []any{"first", "bee"}, values(t, out, "name"))
	assert.Equal(t, []any{100.0, 100.0}, values(t, out, "code_match_score"))
	assert.Equal(t, []any{"exact", "exact"}, values(t, out, "code_match_method"))
}

func TestEnrich_OnMiss(t *testing.T) {
	sources := map[string]*table.Table{
		"rows": mustTable(t, "rows", []string{"id", "code"}, []any{1, "A"}, []any{2, "B"}, []any{3, nil}),
		"dim":  mustTable(t, "dim", []string{"code", "name"}, []any{"A", "Alpha"}),
	}

	step := config.EnrichStep{From: "dim", LeftOn: "code", RightOn: "code", Add: map[string]string{"label": "name"}}

	out, err := NewEngine(sources).CompileTarget(enrichTarget(step))
	require.NoError(t, err)
	assert.Equal(t, []any{"Alpha", nil, nil}, values(t, out, "label"))

	step.Match.OnMiss = config.Fail

	_, err = NewEngine(sources).CompileTarget(enrichTarget(step))
	require.Error(t, err)

	var miss *MissError
	require.True(t, errors.As(err, &miss))
	assert.Equal(t, 1, miss.Misses, "a null left_on is not a miss")
	assert.Equal(t, []MissSample{{Row: 1, Value: table.String("B")}}, miss.Samples)
	assert.Contains(t, err.Error(), `row 1 "B"`)
}

func TestEnrich_OnMissSamplesAreBounded(t *testing.T) {
	rows := make([][]any, 8)
	for i := range rows {
		rows[i] = []any{i, "zz"}
	}

	sources := map[string]*table.Table{
		"rows": mustTable(t, "rows", []string{"id", "code"}, rows...),
		"dim":  mustTable(t, "dim", []string{"code", "name"}, []any{"A", "Alpha"}),
	}

	_, err := NewEngine(sources).CompileTarget(enrichTarget(config.EnrichStep{
		From: "dim", LeftOn: "code", RightOn: "code",
		Add:   map[string]string{"label": "name"},
		Match: config.MatchSpec{OnMiss: config.Fail},
	}))

	var miss *MissError
	require.True(t, errors.As(err, &miss))
	assert.Equal(t, 8, miss.Misses)
	assert.Len(t, miss.Samples, maxMissSamples)
}

func TestEnrich_Inner(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"rows": mustTable(t, "rows", []string{"id", "code"}, []any{1, "A"}, []any{2, "B"}, []any{3, nil}),
		"dim":  mustTable(t, "dim", []string{"code", "name"}, []any{"A", "Alpha"}),
	})

	out, err := eng.CompileTarget(enrichTarget(config.EnrichStep{
		From: "dim", LeftOn: "code", RightOn: "code",
		Add: map[string]string{"label": "name"},
		How: config.HowInner,
	}))
	require.NoError(t, err)

	assert.Equal(t, []any{int64(1)}, values(t, out, "id"))
	assert.Equal(t, []any{"Alpha"}, values(t, out, "label"))
}

func TestEnrich_Errors(t *testing.T) {
	sources := map[string]*table.Table{
		"rows": mustTable(t, "rows", []string{"id", "code"}, []any{1, "A"}),
		"dim":  mustTable(t, "dim", []string{"code", "name"}, []any{"A", "Alpha"}),
	}

	tests := map[string]config.EnrichStep{
		"left_on":  {From: "dim", LeftOn: "nope", RightOn: "code", Add: map[string]string{"x": "name"}},
		"right_on": {From: "dim", LeftOn: "code", RightOn: "nope", Add: map[string]string{"x": "name"}},
		"add":      {From: "dim", LeftOn: "code", RightOn: "code", Add: map[string]string{"x": "nope"}},
		"scorer":   {From: "dim", LeftOn: "code", RightOn: "code", Add: map[string]string{"x": "name"}, Match: config.MatchSpec{Strategy: []string{"fuzzy"}, Fuzzy: config.FuzzySpec{Scorer: "cosine"}}},
		"unknown":  {From: "nowhere", LeftOn: "code", RightOn: "code", Add: map[string]string{"x": "name"}},
	}

	for name, step := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(sources).CompileTarget(enrichTarget(step))
			require.Error(t, err)
		})
	}
}
