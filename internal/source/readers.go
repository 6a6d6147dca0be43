package source

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"sheet-compiler/internal/common"
	"sheet-compiler/internal/config"
	"sheet-compiler/internal/table"
)

const utf8BOM = "\ufeff"

// fromCells builds a string table from a header and text rows. Empty cells
// are null; short rows are padded with nulls.
func fromCells(name string, header []string, rows [][]string) (*table.Table, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	cols := make([]*table.Column, len(header))

	for c, h := range header {
		values := make([]table.Value, len(rows))

		for r, row := range rows {
			if c < len(row) && row[c] != "" {
				values[r] = table.String(row[c])
			}
		}

		cols[c] = &table.Column{Name: strings.TrimSpace(h), Kind: table.KindString, Values: values}
	}

	return table.New(name, cols...)
}

func (l *Loader) readCSV(src config.Source, path string) (*table.Table, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if src.Delimiter != "" {
		r.Comma = []rune(src.Delimiter)[0]
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv %s has no header row", path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}

	return fromCells(src.ID, header, rows)
}

func (l *Loader) readXLSX(src config.Source, path string) (*table.Table, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb, err := excelize.OpenReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}
	defer wb.Close()

	sheet := src.Sheet
	if sheet == "" {
		first, ok := common.First(wb.GetSheetList())
		if !ok {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}

		sheet = first
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q of %s has no header row", sheet, path)
	}

	return fromCells(src.ID, rows[0], rows[1:])
}

func readSQLite(src config.Source, path string) (*table.Table, error) {
	// the driver would create a missing file
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	query := src.Query
	if query == "" {
		if src.Table == "" {
			return nil, errors.New("sqlite source needs a table or a query")
		}

		query = "SELECT * FROM " + quoteIdent(src.Table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", path, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records [][]any

	for rows.Next() {
		rec := make([]any, len(header))
		ptrs := make([]any, len(header))

		for i := range rec {
			ptrs[i] = &rec[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return table.FromRecords(src.ID, header, records)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func readInline(src config.Source, _ string) (*table.Table, error) {
	return table.FromRecords(src.ID, src.Columns, src.Rows)
}
