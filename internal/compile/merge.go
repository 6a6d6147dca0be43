package compile

import (
	"fmt"
	"slices"
	"strconv"

	"sheet-compiler/internal/table"
)

const suffixSep = "__"

// variant is one input's copy of a non-key field after merging.
type variant struct {
	column string
	input  int
}

// merged is an outer merge of several inputs. variants lists, per field,
// the columns holding each input's copy in input order; suffixed names the
// renamed intermediates.
type merged struct {
	table    *table.Table
	variants map[string][]variant
	suffixed []string
}

func suffixed(field string, input int) string {
	return field + suffixSep + strconv.Itoa(input)
}

// outerMerge joins inputs in order on key, keeping every row of every side.
// A non-key column of input i >= 1 whose name is already taken is renamed
// name__i.
func outerMerge(name string, key []string, inputs []*table.Table) (*merged, error) {
	m := &merged{variants: map[string][]variant{}}

	if _, err := inputs[0].KeyColumns(key); err != nil {
		return nil, err
	}

	out := inputs[0].WithName(name)

	for _, c := range out.ColumnNames() {
		if !slices.Contains(key, c) {
			m.variants[c] = append(m.variants[c], variant{column: c, input: 0})
		}
	}

	for i := 1; i < len(inputs); i++ {
		right, err := m.prepareRight(out, inputs[i], key, i)
		if err != nil {
			return nil, err
		}

		out, err = joinOuter(out, right, key)
		if err != nil {
			return nil, fmt.Errorf("merging input %d: %w", i, err)
		}
	}

	m.table = out

	return m, nil
}

// prepareRight renames the colliding non-key columns of input i and records
// every non-key column as a variant.
func (m *merged) prepareRight(left, right *table.Table, key []string, i int) (*table.Table, error) {
	if _, err := right.KeyColumns(key); err != nil {
		return nil, err
	}

	renames := map[string]string{}

	for _, c := range right.ColumnNames() {
		if slices.Contains(key, c) {
			continue
		}

		col := c
		if left.Has(c) {
			col = suffixed(c, i)
			renames[c] = col
			m.suffixed = append(m.suffixed, col)
		}

		m.variants[c] = append(m.variants[c], variant{column: col, input: i})
	}

	return right.Rename(renames)
}

// joinOuter emits the left rows in order, each followed by its matches,
// then the unmatched right rows. Rows with a null key part never match.
func joinOuter(left, right *table.Table, key []string) (*table.Table, error) {
	lkeys, err := left.KeyColumns(key)
	if err != nil {
		return nil, err
	}

	rkeys, err := right.KeyColumns(key)
	if err != nil {
		return nil, err
	}

	index := map[string][]int{}

	for r := range right.Len() {
		if k, ok := table.RowKey(rkeys, r); ok {
			index[k] = append(index[k], r)
		}
	}

	var lidx, ridx []int

	used := make([]bool, right.Len())

	for l := range left.Len() {
		k, ok := table.RowKey(lkeys, l)

		hits := index[k]
		if !ok || len(hits) == 0 {
			lidx = append(lidx, l)
			ridx = append(ridx, -1)

			continue
		}

		for _, r := range hits {
			lidx = append(lidx, l)
			ridx = append(ridx, r)
			used[r] = true
		}
	}

	for r, u := range used {
		if !u {
			lidx = append(lidx, -1)
			ridx = append(ridx, r)
		}
	}

	cols := make([]*table.Column, 0, left.Width()+right.Width()-len(key))

	for _, c := range left.Columns() {
		if !slices.Contains(key, c.Name) {
			cols = append(cols, c.Take(lidx))
			continue
		}

		rc, _ := right.Column(c.Name)

		kc, err := coalesceKey(c, rc, lidx, ridx)
		if err != nil {
			return nil, err
		}

		cols = append(cols, kc)
	}

	for _, c := range right.Columns() {
		if !slices.Contains(key, c.Name) {
			cols = append(cols, c.Take(ridx))
		}
	}

	return table.New(left.Name, cols...)
}

// coalesceKey takes each key value from the left row when there is one,
// else from the right row.
func coalesceKey(lc, rc *table.Column, lidx, ridx []int) (*table.Column, error) {
	values := make([]table.Value, len(lidx))

	for i, l := range lidx {
		if l >= 0 {
			values[i] = lc.Values[l]
		} else {
			values[i] = rc.Values[ridx[i]]
		}
	}

	col, err := table.NewColumn(lc.Name, values)
	if err != nil {
		return nil, fmt.Errorf("key %w", err)
	}

	return col, nil
}
