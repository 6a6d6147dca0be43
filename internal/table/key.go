package table

import (
	"fmt"
	"strings"
)

const keySep = "\x1f"

// KeyColumns returns the named columns of t, failing on the first missing one.
func (t *Table) KeyColumns(names []string) ([]*Column, error) {
	cols := make([]*Column, len(names))

	for i, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("table %q has no key column %q", t.Name, n)
		}

		cols[i] = c
	}

	return cols, nil
}

// RowKey returns the composite key of row i over cols. The second result is
// false when any key part is null; such rows never match another row.
func RowKey(cols []*Column, i int) (string, bool) {
	if len(cols) == 1 {
		v := cols[0].Values[i]
		return v.Key(), !v.IsNull()
	}

	parts := make([]string, len(cols))

	for j, c := range cols {
		v := c.Values[i]
		if v.IsNull() {
			return "", false
		}

		parts[j] = v.Key()
	}

	return strings.Join(parts, keySep), true
}
