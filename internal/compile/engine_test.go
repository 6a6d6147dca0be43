package compile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/table"
)

func mustTable(t *testing.T, name string, header []string, rows ...[]any) *table.Table {
	t.Helper()

	tbl, err := table.FromRecords(name, header, rows)
	require.NoError(t, err)

	return tbl
}

func values(t *testing.T, tbl *table.Table, col string) []any {
	t.Helper()

	c, ok := tbl.Column(col)
	require.True(t, ok, "missing column %q in %v", col, tbl.ColumnNames())

	out := make([]any, c.Len())
	for i, v := range c.Values {
		out[i] = v.Any()
	}

	return out
}

func TestCompile_FirstNonNull(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"A": mustTable(t, "A", []string{"k", "f"}, []any{1, nil}),
		"B": mustTable(t, "B", []string{"k", "f"}, []any{1, "x"}),
	})

	out, err := eng.CompileTarget(config.CompileTarget{
		Name:       "t",
		Key:        []string{"k"},
		Inputs:     []string{"A", "B"},
		MergeRules: map[string]config.MergeRule{"f": {Strategy: config.FirstNonNull}},
	})
	require.NoError(t, err)

	assert.Equal(t, "t", out.Name)
	assert.Equal(t, []string{"k", "f"}, out.ColumnNames())
	assert.Equal(t, []any{int64(1)}, values(t, out, "k"))
	assert.Equal(t, []any{"x"}, values(t, out, "f"))
}

func TestCompile_OuterMerge(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"A": mustTable(t, "A", []string{"k", "v", "a_only"}, []any{1, "a1", "x"}, []any{2, "a2", "y"}, []any{nil, "an", "z"}),
		"B": mustTable(t, "B", []string{"k", "v", "b_only"}, []any{3, "b3", true}, []any{2, "b2", false}, []any{nil, "bn", true}),
	})

	out, err := eng.CompileTarget(config.CompileTarget{Name: "t", Key: []string{"k"}, Inputs: []string{"A", "B"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "v", "a_only", "b_only"}, out.ColumnNames(), "suffixed intermediates are dropped")
	assert.Equal(t, []any{int64(1), int64(2), nil, int64(3), nil}, values(t, out, "k"))
	assert.Equal(t, []any{"a1", "a2", "an", nil, nil}, values(t, out, "v"))
	assert.Equal(t, []any{nil, false, nil, true, true}, values(t, out, "b_only"))
}

func TestCompile_DuplicateKeysFanOut(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"A": mustTable(t, "A", []string{"k", "a"}, []any{"x", 1}),
		"B": mustTable(t, "B", []string{"k", "b"}, []any{"x", 10}, []any{"x", 20}),
	})

	out, err := eng.CompileTarget(config.CompileTarget{Name: "t", Key: []string{"k"}, Inputs: []string{"A", "B"}})
	require.NoError(t, err)

	assert.Equal(t, []any{int64(1), int64(1)}, values(t, out, "a"))
	assert.Equal(t, []any{int64(10), int64(20)}, values(t, out, "b"))
}

func TestCompile_MergeRules(t *testing.T) {
	sources := map[string]*table.Table{
		"A": mustTable(t, "A", []string{"k", "status", "level"},
			[]any{1, "open", "low"},
			[]any{2, "open", "weird"},
			[]any{3, "draft", "weird"},
		),
		"B": mustTable(t, "B", []string{"k", "status", "level"},
			[]any{1, "closed", "high"},
			[]any{2, nil, "low"},
			[]any{3, "final", nil},
		),
	}

	tests := []struct {
		name  string
		field string
		rule  config.MergeRule
		want  []any
	}{
		{"first_non_null", "status", config.MergeRule{Strategy: config.FirstNonNull}, []any{"open", "open", "draft"}},
		{
			"first_non_null with priority", "status",
			config.MergeRule{Strategy: config.FirstNonNull, Priority: []string{"B"}},
			[]any{"closed", "open", "final"},
		},
		{
			"prefer_source", "status",
			config.MergeRule{Strategy: config.PreferSource, PreferSource: "B"},
			[]any{"closed", "open", "final"},
		},
		{
			"prefer_source on the first input", "status",
			config.MergeRule{Strategy: config.PreferSource, PreferSource: "A"},
			[]any{"open", "open", "draft"},
		},
		{
			"prefer_enum_order", "level",
			config.MergeRule{Strategy: config.PreferEnumOrder, Order: []any{"high", "medium", "low"}},
			[]any{"high", "low", "weird"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewEngine(sources).CompileTarget(config.CompileTarget{
				Name:       "t",
				Key:        []string{"k"},
				Inputs:     []string{"A", "B"},
				MergeRules: map[string]config.MergeRule{tt.field: tt.rule},
			})
			require.NoError(t, err)

			assert.Equal(t, tt.want, values(t, out, tt.field))
			assert.Equal(t, []string{"k", "status", "level"}, out.ColumnNames())
		})
	}
}

func TestCompile_MergeRuleErrors(t *testing.T) {
	sources := map[string]*table.Table{
		"A": mustTable(t, "A", []string{"k", "f"}, []any{1, "x"}, []any{2, "y"}),
		"B": mustTable(t, "B", []string{"k", "f"}, []any{1, 2}, []any{2, nil}),
	}

	rules := map[string]config.MergeRule{
		"missing field":  {Strategy: config.FirstNonNull},
		"unknown source": {Strategy: config.PreferSource, PreferSource: "C"},
		"mixed kinds":    {Strategy: config.FirstNonNull, Priority: []string{"B", "A"}},
		"no order":       {Strategy: config.PreferEnumOrder},
		"bad strategy":   {Strategy: "newest"},
	}

	for name, rule := range rules {
		t.Run(name, func(t *testing.T) {
			field := "f"
			if name == "missing field" {
				field = "nope"
			}

			_, err := NewEngine(sources).CompileTarget(config.CompileTarget{
				Name:       "t",
				Key:        []string{"k"},
				Inputs:     []string{"A", "B"},
				MergeRules: map[string]config.MergeRule{field: rule},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMergeRule)
		})
	}
}

func TestCompile_MissingKeyAndInput(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"A": mustTable(t, "A", []string{"k"}, []any{1}),
		"B": mustTable(t, "B", []string{"id"}, []any{1}),
	})

	_, err := eng.CompileTarget(config.CompileTarget{Name: "t", Key: []string{"k"}, Inputs: []string{"A", "B"}})
	require.ErrorContains(t, err, `no key column "k"`)

	_, err = eng.CompileTarget(config.CompileTarget{Name: "t", Key: []string{"k"}, Inputs: []string{"A", "later"}})
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestCompile_PreFilterDeriveAndPostFilter(t *testing.T) {
	source := mustTable(t, "grants", []string{"id", "amount", "status"},
		[]any{1, 4, "open"},
		[]any{2, 8, "open"},
		[]any{3, 100, "closed"},
	)
	eng := NewEngine(map[string]*table.Table{"grants": source})

	out, err := eng.CompileTarget(config.CompileTarget{
		Name:   "big_open",
		Key:    []string{"id"},
		Inputs: []string{"grants"},
		PreFilter: map[string]any{
			"grants": map[string]any{"status": map[string]any{"op": "==", "value": "open"}},
		},
		Derive: []config.Derived{
			{Name: "double", Expr: []any{"mul", map[string]any{"col": "amount"}, 2}},
		},
		PostFilter: map[string]any{"double": map[string]any{"op": ">", "value": 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{int64(2)}, values(t, out, "id"))
	assert.Equal(t, []any{int64(16)}, values(t, out, "double"))
	assert.Equal(t, 3, source.Len(), "sources are never modified")
}

func TestCompile_RegistryOrder(t *testing.T) {
	eng := NewEngine(map[string]*table.Table{
		"grants": mustTable(t, "grants", []string{"id", "org"}, []any{1, "A"}),
		"orgs":   mustTable(t, "orgs", []string{"code", "name"}, []any{"A", "Alpha"}),
	})

	targets := []config.CompileTarget{
		{Name: "org_dim", Key: []string{"code"}, Inputs: []string{"orgs"}},
		{
			Name: "final", Key: []string{"id"}, Inputs: []string{"grants"},
			Enrich: []config.EnrichStep{{From: "org_dim", LeftOn: "org", RightOn: "code", Add: map[string]string{"org_name": "name"}}},
		},
	}

	require.NoError(t, eng.Compile(targets))
	assert.Equal(t, []string{"org_dim", "final"}, eng.Compiled())

	final, ok := eng.Lookup("final")
	require.True(t, ok)
	assert.Equal(t, []any{"Alpha"}, values(t, final, "org_name"))

	_, err := NewEngine(map[string]*table.Table{
		"grants": mustTable(t, "grants", []string{"id", "org"}, []any{1, "A"}),
	}).CompileTarget(targets[1])
	require.True(t, errors.Is(err, ErrUnknownTable), "an enrich source compiled later is not visible")
}
