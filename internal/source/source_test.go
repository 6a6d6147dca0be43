package source

import (
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/diagnostic"
	"sheet-compiler/internal/table"
)

func cells(t *testing.T, tbl *table.Table, name string) []any {
	t.Helper()

	c, ok := tbl.Column(name)
	require.True(t, ok, "no column %q in %v", name, tbl.ColumnNames())

	out := make([]any, c.Len())
	for i, v := range c.Values {
		out[i] = v.Any()
	}

	return out
}

var aliases = map[string]table.Alias{
	"id":     {Type: "integer", Identifier: true, NotNull: true},
	"amount": {Type: "number"},
}

func TestLoad_CSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/grants.csv",
		[]byte("\ufeffid;amount;Org Name\n1;10.5;acme corp\n2;;globex\n"), 0o644))

	cfg := &config.Config{
		BaseDir: "/data",
		Schema:  config.Schema{Aliases: aliases},
		Sources: []config.Source{{
			ID: "grants", Type: "csv", Path: "grants.csv", Delimiter: ";",
			Rename:     map[string]string{"Org Name": "org"},
			Transforms: map[string][]any{"org": {"titlecase"}},
		}},
	}

	tables, err := NewLoader(cfg, WithFs(fs)).LoadTables()
	require.NoError(t, err)

	grants := tables["grants"]
	require.NotNil(t, grants)
	assert.Equal(t, "grants", grants.Name)
	assert.Equal(t, []string{"id", "amount", "org"}, grants.ColumnNames())
	assert.Equal(t, []any{int64(1), int64(2)}, cells(t, grants, "id"))
	assert.Equal(t, []any{10.5, nil}, cells(t, grants, "amount"))
	assert.Equal(t, []any{"Acme Corp", "Globex"}, cells(t, grants, "org"))
}

func TestLoad_EnforcementProblems(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/bad.csv", []byte("id,amount\n1,abc\n1,2\n,3\n"), 0o644))

	cfg := &config.Config{
		BaseDir: "/data",
		Schema:  config.Schema{Aliases: aliases},
		Sources: []config.Source{{ID: "bad", Type: "csv", Path: "bad.csv"}},
	}

	_, err := NewLoader(cfg, WithFs(fs)).LoadTables()
	require.Error(t, err)

	var derr *diagnostic.Error
	require.True(t, errors.As(err, &derr))

	codes := map[string]bool{}
	for _, p := range derr.Problems {
		codes[p.Code] = true
	}

	assert.Equal(t, map[string]bool{
		diagnostic.CodeCast:       true,
		diagnostic.CodeNotNull:    true,
		diagnostic.CodeIdentifier: true,
	}, codes)
}

func TestLoad_XLSX(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()

	_, err := wb.NewSheet("Orgs")
	require.NoError(t, err)
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"ignored"}))
	require.NoError(t, wb.SetSheetRow("Orgs", "A1", &[]any{"code", "name", "size"}))
	require.NoError(t, wb.SetSheetRow("Orgs", "A2", &[]any{"A", "Alpha", 10}))
	require.NoError(t, wb.SetSheetRow("Orgs", "A3", &[]any{"B"}))

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/orgs.xlsx", buf.Bytes(), 0o644))

	cfg := &config.Config{
		BaseDir: "/data",
		Schema:  config.Schema{Aliases: map[string]table.Alias{"size": {Type: "integer"}}},
		Sources: []config.Source{
			{ID: "orgs", Type: "xlsx", Path: "orgs.xlsx", Sheet: "Orgs"},
			{ID: "first", Type: "xlsx", Path: "/data/orgs.xlsx"},
		},
	}

	tables, err := NewLoader(cfg, WithFs(fs)).LoadTables()
	require.NoError(t, err)

	orgs := tables["orgs"]
	assert.Equal(t, []any{"A", "B"}, cells(t, orgs, "code"))
	assert.Equal(t, []any{"Alpha", nil}, cells(t, orgs, "name"))
	assert.Equal(t, []any{int64(10), nil}, cells(t, orgs, "size"))

	assert.Equal(t, []string{"ignored"}, tables["first"].ColumnNames())
	assert.Equal(t, 0, tables["first"].Len())
}

func TestLoad_SQLite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orgs.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE orgs (code TEXT, name TEXT, size INTEGER, share REAL)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO orgs VALUES ('A', 'Alpha', 10, 0.5), ('B', NULL, 20, NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := &config.Config{
		BaseDir: dir,
		Sources: []config.Source{
			{ID: "orgs", Type: "sqlite", Path: "orgs.db", Table: "orgs"},
			{ID: "big", Type: "sqlite", Path: path, Query: "SELECT code, size FROM orgs WHERE size > 15"},
		},
	}

	tables, err := NewLoader(cfg).LoadTables()
	require.NoError(t, err)

	orgs := tables["orgs"]
	assert.Equal(t, []string{"code", "name", "size", "share"}, orgs.ColumnNames())
	assert.Equal(t, []any{"Alpha", nil}, cells(t, orgs, "name"))
	assert.Equal(t, []any{int64(10), int64(20)}, cells(t, orgs, "size"))
	assert.Equal(t, []any{0.5, nil}, cells(t, orgs, "share"))

	assert.Equal(t, []any{"B"}, cells(t, tables["big"], "code"))
}

func TestLoad_SQLiteErrors(t *testing.T) {
	dir := t.TempDir()

	loader := NewLoader(&config.Config{BaseDir: dir})

	_, err := loader.Load(config.Source{ID: "x", Type: "sqlite", Path: "missing.db", Table: "t"})
	require.ErrorContains(t, err, "failed to open database")

	path := filepath.Join(dir, "empty.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (a TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = loader.Load(config.Source{ID: "x", Type: "sqlite", Path: path})
	require.ErrorContains(t, err, "needs a table or a query")
}

func TestLoad_Inline(t *testing.T) {
	cfg := &config.Config{
		Schema: config.Schema{Aliases: map[string]table.Alias{
			"status": {Type: "string", Enum: []any{"open", "closed"}},
		}},
		Sources: []config.Source{{
			ID: "fixture", Type: "inline",
			Columns: []string{"id", "amount", "status"},
			Rows: [][]any{
				{json.Number("1"), json.Number("2.5"), "open"},
				{json.Number("2"), nil, "closed"},
			},
		}},
	}

	tables, err := NewLoader(cfg).LoadTables()
	require.NoError(t, err)

	fixture := tables["fixture"]
	assert.Equal(t, []any{int64(1), int64(2)}, cells(t, fixture, "id"))
	assert.Equal(t, []any{2.5, nil}, cells(t, fixture, "amount"))

	cfg.Sources[0].Rows[1][2] = "pending"

	_, err = NewLoader(cfg).LoadTables()
	require.ErrorContains(t, err, "outside enum")
}

func TestLoader_Readers(t *testing.T) {
	stub := ReaderFunc(func(src config.Source, path string) (*table.Table, error) {
		return table.New("raw", table.StringColumn("path", path))
	})

	cfg := &config.Config{BaseDir: "/cfg", Sources: []config.Source{{ID: "s", Type: "csv", Path: "in.csv"}}}

	tables, err := NewLoader(cfg, WithReader("csv", stub)).LoadTables()
	require.NoError(t, err)
	assert.Equal(t, []any{filepath.Join("/cfg", "in.csv")}, cells(t, tables["s"], "path"))

	_, err = NewLoader(cfg).Load(config.Source{ID: "p", Type: "parquet"})
	require.ErrorContains(t, err, `unsupported type "parquet"`)

	_, err = NewLoader(cfg).Load(config.Source{
		ID: "r", Type: "inline", Columns: []string{"a", "b"}, Rows: [][]any{{1, 2}},
		Rename: map[string]string{"a": "b"},
	})
	require.ErrorContains(t, err, "rename")
}

func TestLoad_DefaultTimezone(t *testing.T) {
	cfg := &config.Config{
		Timezone: "America/New_York",
		Schema: config.Schema{Aliases: map[string]table.Alias{
			"due":    {Type: "date"},
			"closed": {Type: "date", Date: &table.DateSpec{Format: "%d/%m/%Y", Timezone: "UTC"}},
		}},
		Sources: []config.Source{{
			ID: "s", Type: "inline",
			Columns: []string{"due", "closed"},
			Rows:    [][]any{{"2024-03-01", "02/03/2024"}},
		}},
	}

	tables, err := NewLoader(cfg).LoadTables()
	require.NoError(t, err)

	due, _ := tables["s"].Column("due")
	assert.Equal(t, "America/New_York", due.Values[0].Time().Location().String())

	closed, _ := tables["s"].Column("closed")
	assert.Equal(t, "UTC", closed.Values[0].Time().Location().String())
	assert.Equal(t, 2, closed.Values[0].Time().Day())

	assert.Nil(t, cfg.Schema.Aliases["due"].Date, "config aliases are not modified")
}
