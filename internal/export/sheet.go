package export

import (
	"fmt"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/expr"
	"sheet-compiler/internal/filter"
	"sheet-compiler/internal/table"
	"sheet-compiler/internal/transform"
)

// BuildSheet produces the table written for one sheet entry: t filtered by
// the sheet filter, projected to the configured columns. Without columns
// every column of t is kept.
func BuildSheet(t *table.Table, sheet config.Sheet, eval *expr.Evaluator) (*table.Table, error) {
	t, err := filter.Apply(t, sheet.Filter)
	if err != nil {
		return nil, fmt.Errorf("sheet %q filter: %w", sheet.Name, err)
	}

	if len(sheet.Columns) == 0 {
		return t.WithName(sheet.Name), nil
	}

	cols := make([]*table.Column, 0, len(sheet.Columns))

	for _, spec := range sheet.Columns {
		col, err := buildColumn(t, spec, eval)
		if err != nil {
			return nil, fmt.Errorf("sheet %q column %q: %w", sheet.Name, spec.Header, err)
		}

		cols = append(cols, col)
	}

	return table.New(sheet.Name, cols...)
}

func buildColumn(t *table.Table, spec config.ExportColumn, eval *expr.Evaluator) (*table.Column, error) {
	var (
		col *table.Column
		err error
	)

	if spec.Expr != nil {
		if col, err = eval.EvalColumn(t, spec.Header, spec.Expr); err != nil {
			return nil, err
		}
	} else {
		src, ok := t.Column(spec.Alias)
		if !ok {
			return nil, fmt.Errorf("table %q has no column %q", t.Name, spec.Alias)
		}

		col = src
	}

	p, err := transform.ParsePipeline(spec.Transforms)
	if err != nil {
		return nil, err
	}

	if col, err = p.Column(col); err != nil {
		return nil, err
	}

	return col.Renamed(spec.Header), nil
}
