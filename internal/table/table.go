package table

import (
	"errors"
	"fmt"
	"slices"
)

// Table is a named, in-memory columnar dataset with ordered rows.
type Table struct {
	Name    string
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table from columns. All columns must have the same length and
// distinct names.
func New(name string, columns ...*Column) (*Table, error) {
	t := &Table{Name: name, index: make(map[string]int, len(columns))}

	for _, c := range columns {
		if err := t.appendColumn(c); err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
	}

	return t, nil
}

// FromRecords builds a table from a header and row-major records of plain
// Go values. Column kinds are inferred.
func FromRecords(name string, header []string, records [][]any) (*Table, error) {
	values := make([][]Value, len(header))
	for i := range values {
		values[i] = make([]Value, len(records))
	}

	for r, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("table %q row %d: got %d values for %d columns", name, r, len(rec), len(header))
		}

		for c, x := range rec {
			v, err := Of(x)
			if err != nil {
				return nil, fmt.Errorf("table %q row %d column %q: %w", name, r, header[c], err)
			}

			values[c][r] = v
		}
	}

	columns := make([]*Column, len(header))

	for i, h := range header {
		col, err := NewColumn(h, values[i])
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}

		columns[i] = col
	}

	t, err := New(name, columns...)
	if err != nil {
		return nil, err
	}

	t.rows = len(records)

	return t, nil
}

func (t *Table) appendColumn(c *Column) error {
	if c == nil {
		return errors.New("nil column")
	}

	if _, dup := t.index[c.Name]; dup {
		return fmt.Errorf("duplicate column %q", c.Name)
	}

	if len(t.columns) > 0 && c.Len() != t.rows {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.rows)
	}

	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	t.rows = c.Len()

	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the columns in order.
func (t *Table) Columns() []*Column { return slices.Clone(t.columns) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}

	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}

	return t.columns[i], true
}

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns row i keyed by column name.
func (t *Table) Row(i int) map[string]Value {
	row := make(map[string]Value, len(t.columns))
	for _, c := range t.columns {
		row[c.Name] = c.Values[i]
	}

	return row
}

// Record returns row i in column order.
func (t *Table) Record(i int) []Value {
	rec := make([]Value, len(t.columns))
	for j, c := range t.columns {
		rec[j] = c.Values[i]
	}

	return rec
}

// WithName returns a copy of the table under another name.
func (t *Table) WithName(name string) *Table {
	out := t.derive(t.columns)
	out.Name = name
	out.rows = t.rows

	return out
}

// Filter keeps the rows where mask is true.
func (t *Table) Filter(mask []bool) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Filter(mask)
	}

	out := t.derive(cols)
	out.rows = countTrue(mask)

	return out
}

// Take gathers the rows at idx; a negative index produces an all-null row.
func (t *Table) Take(idx []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Take(idx)
	}

	out := t.derive(cols)
	out.rows = len(idx)

	return out
}

// Select projects the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))

	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("table %q has no column %q", t.Name, n)
		}

		cols = append(cols, c)
	}

	out := t.derive(cols)
	out.rows = t.rows

	return out, nil
}

// Drop removes the named columns; unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	cols := make([]*Column, 0, len(t.columns))

	for _, c := range t.columns {
		if !slices.Contains(names, c.Name) {
			cols = append(cols, c)
		}
	}

	out := t.derive(cols)
	out.rows = t.rows

	return out
}

// Rename renames columns per mapping (old -> new). A rename that collides
// with another column is an error.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]*Column, len(t.columns))

	for i, c := range t.columns {
		if to, ok := mapping[c.Name]; ok && to != c.Name {
			cols[i] = c.Renamed(to)
			continue
		}

		cols[i] = c
	}

	out, err := New(t.Name, cols...)
	if err != nil {
		return nil, err
	}

	out.rows = t.rows

	return out, nil
}

// WithColumn returns a table with c replacing the column of the same name,
// or appended when no such column exists.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if len(t.columns) > 0 && c.Len() != t.rows {
		return nil, fmt.Errorf("table %q: column %q has %d rows, table has %d", t.Name, c.Name, c.Len(), t.rows)
	}

	cols := slices.Clone(t.columns)

	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}

	out := t.derive(cols)
	out.rows = c.Len()

	return out, nil
}

// derive builds a sibling table; callers set rows.
func (t *Table) derive(cols []*Column) *Table {
	out := &Table{Name: t.Name, columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		out.index[c.Name] = i
	}

	return out
}

func countTrue(mask []bool) int {
	n := 0

	for _, b := range mask {
		if b {
			n++
		}
	}

	return n
}
