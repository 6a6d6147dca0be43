package config

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `"schema": {"aliases": {}}, "compile": {"targets": []}`

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.FromSlash(name), []byte(body), 0o644))
	}

	return fs
}

func noEnv(string) (string, bool) { return "", false }

func sourceIDs(t *testing.T, tree map[string]any) []string {
	t.Helper()

	var ids []string

	for _, s := range tree["sources"].([]any) {
		ids = append(ids, s.(map[string]any)["id"].(string))
	}

	return ids
}

func TestLoadTree_IncludesMergeBeforeOwnKeys(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/cfg/main.json":      `{"include": ["inc/*.json"], ` + minimal + `, "sources": [{"id": "s1", "type": "inline"}]}`,
		"/cfg/inc/extra.json": `{"sources": [{"id": "s2", "type": "inline"}]}`,
	})

	tree, err := NewLoader(WithFs(fs), WithEnv(noEnv)).LoadTree("/cfg/main.json", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"s2", "s1"}, sourceIDs(t, tree))
	assert.NotContains(t, tree, "include")
}

func TestLoadTree_IncludesSortedRecursiveAndCycleSafe(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/cfg/main.yaml": `
include: ["parts/**/*.yaml"]
schema: {aliases: {}}
compile: {targets: []}
sources: [{id: main, type: inline}]
`,
		"/cfg/parts/b.yaml":        `sources: [{id: b, type: inline}]`,
		"/cfg/parts/a.yaml":        "include: [nested/c.yaml, ../main.yaml]\nsources: [{id: a, type: inline}]",
		"/cfg/parts/nested/c.yaml": `sources: [{id: c, type: inline}]`,
	})

	tree, err := NewLoader(WithFs(fs), WithEnv(noEnv)).LoadTree("/cfg/main.yaml", "")
	require.NoError(t, err)

	// a pulls in c first; c is then already seen when the glob reaches it.
	assert.Equal(t, []string{"c", "a", "b", "main"}, sourceIDs(t, tree))
}

func TestLoadTree_Profile(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/cfg/main.json":         `{` + minimal + `, "sources": [], "output": {"dir": "out", "compare_reports": true}}`,
		"/cfg/profiles/dev.json": `{"output": {"dir": "out-dev"}}`,
	})

	l := NewLoader(WithFs(fs), WithEnv(noEnv))

	tree, err := l.LoadTree("/cfg/main.json", "dev")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"dir": "out-dev", "compare_reports": true}, tree["output"])

	_, err = l.LoadTree("/cfg/main.json", "prod")
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "profile", cerr.Path)
}

func TestLoadTree_RefsAndInterpolation(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/cfg/main.json": `{
			"defaults": {
				"id_alias": {"type": "string", "identifier": true},
				"fuzzy": {"scorer": "token_set_ratio", "threshold": 85},
				"root": "/data"
			},
			"schema": {"aliases": {"grant_id": {"$ref": "defaults.id_alias"}}},
			"sources": [{"id": "grants", "type": "csv", "path": "${defaults.root}/${GRANTS_FILE}"}],
			"compile": {"targets": []},
			"output": {"dir": "${OUT_DIR}", "note": "${MISSING} and ${defaults.nothing}"},
			"limits": {"threshold": "${defaults.fuzzy.threshold}"}
		}`,
	})

	env := map[string]string{"GRANTS_FILE": "grants.csv"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	tree, err := NewLoader(WithFs(fs), WithEnv(lookup)).LoadTree("/cfg/main.json", "")
	require.NoError(t, err)

	aliases := tree["schema"].(map[string]any)["aliases"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "identifier": true}, aliases["grant_id"])

	src := tree["sources"].([]any)[0].(map[string]any)
	assert.Equal(t, "/data/grants.csv", src["path"])

	output := tree["output"].(map[string]any)
	assert.Equal(t, "${OUT_DIR}", output["dir"], "unresolved tokens stay verbatim")
	assert.Equal(t, "${MISSING} and ${defaults.nothing}", output["note"])

	assert.Equal(t, json.Number("85"), tree["limits"].(map[string]any)["threshold"], "a lone path token keeps its type")
}

func TestResolveRefs_Errors(t *testing.T) {
	_, err := ResolveRefs(map[string]any{"a": map[string]any{"$ref": "nowhere.at.all"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefNotFound)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "a", cerr.Path)

	_, err = ResolveRefs(map[string]any{
		"x": map[string]any{"$ref": "y"},
		"y": map[string]any{"$ref": "x"},
	})
	require.ErrorContains(t, err, "$ref cycle")
}

func TestResolveRefs_Nested(t *testing.T) {
	out, err := ResolveRefs(map[string]any{
		"base":  map[string]any{"steps": []any{"strip", "lower"}},
		"mid":   map[string]any{"norm": map[string]any{"$ref": "base.steps"}},
		"items": []any{map[string]any{"$ref": "mid"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{map[string]any{"norm": []any{"strip", "lower"}}}, out["items"])
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
		msg  string
	}{
		{"missing compile", `{"schema": {}, "sources": []}`, "compile", "compile"},
		{
			"closed alias properties",
			`{"schema": {"aliases": {"grant_id": {"type": "string", "typo": 1}}}, "sources": [], "compile": {}}`,
			"schema.aliases.grant_id.typo", "typo",
		},
		{
			"alias type",
			`{"schema": {"aliases": {"amount": {"type": "money"}}}, "sources": [], "compile": {}}`,
			"schema.aliases.amount.type", "",
		},
		{
			"source type",
			`{"schema": {}, "sources": [{"id": "s", "type": "parquet"}], "compile": {}}`,
			"sources.0.type", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := decodeJSON([]byte(tt.doc))
			require.NoError(t, err)

			err = ValidateSchema(tree.(map[string]any))
			require.Error(t, err)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.path, cerr.Path)
			assert.Contains(t, cerr.Msg, tt.msg)
		})
	}

	ok, err := decodeJSON([]byte(`{` + minimal + `, "sources": []}`))
	require.NoError(t, err)
	require.NoError(t, ValidateSchema(ok.(map[string]any)))
}

func TestLoad_YAMLEndToEnd(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/cfg/pipeline.yaml": `
version: 1
timezone: UTC
output: {dir: out}
schema:
  aliases:
    grant_id: {type: string, identifier: true, not_null: true}
    amount: {type: number}
sources:
  - {id: grants, type: csv, path: grants.csv}
  - {id: orgs, type: inline, columns: [code, name], rows: [[A, Alpha]]}
compile:
  targets:
    - name: merged
      key: [grant_id]
      inputs: [grants]
      merge_rules:
        amount: first_non_null
        status: {strategy: prefer_source, prefer_source: grants}
      enrich:
        - from: orgs
          left_on: org
          right_on: code
          add: {org_name: name}
          match: {strategy: [exact, fuzzy], fuzzy: {threshold: 85, top_k: 3}}
      derive:
        - {name: big, expr: [gt, {col: amount}, 1000]}
compare:
  pairs:
    - {left: grants, right: merged, key: [grant_id]}
export:
  workbooks:
    - save_name: report.xlsx
      sheets:
        - name: Grants
          from: merged
          columns:
            Zeta: {alias: amount}
            Alpha: {alias: grant_id, transforms: [titlecase]}
`,
	})

	cfg, err := NewLoader(WithFs(fs), WithEnv(noEnv)).Load("/cfg/pipeline.yaml", "")
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, filepath.FromSlash("/cfg"), cfg.BaseDir)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, [][]any{{"A", "Alpha"}}, cfg.Sources[1].Rows)

	target := cfg.Compile.Targets[0]
	assert.Equal(t, MergeRule{Strategy: FirstNonNull}, target.MergeRules["amount"])
	assert.Equal(t, MergeRule{Strategy: PreferSource, PreferSource: "grants"}, target.MergeRules["status"])

	step := target.Enrich[0]
	assert.Equal(t, HowLeft, step.HowOrDefault())
	assert.Equal(t, LeaveNull, step.Match.OnMissOrDefault())

	opts := step.Match.Options()
	assert.InDelta(t, 85.0, opts.Threshold, 1e-9)
	assert.Equal(t, 3, opts.TopK)
	assert.Equal(t, "token_sort_ratio", opts.Scorer)

	cols := cfg.Export.Workbooks[0].Sheets[0].Columns
	require.Len(t, cols, 2)
	assert.Equal(t, "Alpha", cols[0].Header, "object form is sorted by header")
	assert.Equal(t, "grant_id", cols[0].Alias)
	assert.Equal(t, []any{"titlecase"}, cols[0].Transforms)
	assert.Equal(t, "merged", cfg.Compare.Pairs[0].Right)
	assert.Equal(t, "grants_vs_merged", cfg.Compare.Pairs[0].DisplayName())
}
