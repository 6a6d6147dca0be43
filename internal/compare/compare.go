// Package compare diffs two tables on a key.
package compare

import (
	"fmt"
	"slices"

	"sheet-compiler/internal/table"
)

// Columns of every Changes table, after the key columns.
const (
	LeftValue  = "left_value"
	RightValue = "right_value"
)

// Result is a key-based diff of two tables.
type Result struct {
	Key []string
	// Columns are the shared non-key columns, in left column order.
	Columns []string
	// Added holds the right rows whose key has no left counterpart.
	Added *table.Table
	// Removed holds the left rows whose key has no right counterpart.
	Removed *table.Table
	// Changes holds, per column with at least one difference, the key of
	// each differing row followed by the left and right values.
	Changes map[string]*table.Table
	// Matched counts the paired rows.
	Matched int

	left, right *table.Table
	pairs       [][2]int
}

// Compare diffs left against right on key. Rows sharing a key are paired
// by occurrence order; surplus occurrences count as removed or added. Rows
// with a null key part never pair.
func Compare(left, right *table.Table, key []string) (*Result, error) {
	lkeys, err := left.KeyColumns(key)
	if err != nil {
		return nil, err
	}

	rkeys, err := right.KeyColumns(key)
	if err != nil {
		return nil, err
	}

	queue := map[string][]int{}

	for r := range right.Len() {
		if k, ok := table.RowKey(rkeys, r); ok {
			queue[k] = append(queue[k], r)
		}
	}

	res := &Result{Key: slices.Clone(key), Changes: map[string]*table.Table{}, left: left, right: right}

	var removed []int

	paired := make([]bool, right.Len())

	for l := range left.Len() {
		k, ok := table.RowKey(lkeys, l)
		if !ok || len(queue[k]) == 0 {
			removed = append(removed, l)
			continue
		}

		r := queue[k][0]
		queue[k] = queue[k][1:]
		paired[r] = true
		res.pairs = append(res.pairs, [2]int{l, r})
	}

	var added []int

	for r, p := range paired {
		if !p {
			added = append(added, r)
		}
	}

	res.Matched = len(res.pairs)
	res.Added = right.Take(added)
	res.Removed = left.Take(removed)

	for _, c := range left.ColumnNames() {
		if !slices.Contains(key, c) && right.Has(c) {
			res.Columns = append(res.Columns, c)
		}
	}

	for _, c := range res.Columns {
		changes, ok, err := res.columnChanges(lkeys, c)
		if err != nil {
			return nil, err
		}

		if ok {
			res.Changes[c] = changes
		}
	}

	return res, nil
}

func (r *Result) columnChanges(lkeys []*table.Column, name string) (*table.Table, bool, error) {
	lc, _ := r.left.Column(name)
	rc, _ := r.right.Column(name)

	var li, ri []int

	for _, p := range r.pairs {
		if !lc.Values[p[0]].Equal(rc.Values[p[1]]) {
			li = append(li, p[0])
			ri = append(ri, p[1])
		}
	}

	if len(li) == 0 {
		return nil, false, nil
	}

	cols := make([]*table.Column, 0, len(lkeys)+2)
	for _, k := range lkeys {
		cols = append(cols, k.Take(li))
	}

	cols = append(cols, lc.Take(li).Renamed(LeftValue), rc.Take(ri).Renamed(RightValue))

	out, err := table.New(name, cols...)
	if err != nil {
		return nil, false, fmt.Errorf("changes of %q: %w", name, err)
	}

	return out, true, nil
}

// Changed returns the columns with differences, in column order.
func (r *Result) Changed() []string {
	var out []string

	for _, c := range r.Columns {
		if _, ok := r.Changes[c]; ok {
			out = append(out, c)
		}
	}

	return out
}

// Equal reports whether the tables hold the same keyed rows.
func (r *Result) Equal() bool {
	return r.Added.Len() == 0 && r.Removed.Len() == 0 && len(r.Changes) == 0
}

// Flatten returns one row per paired rows that differ in any shared column:
// the key, then <col>_left and <col>_right for every shared column.
func (r *Result) Flatten() (*table.Table, error) {
	var li, ri []int

	for _, p := range r.pairs {
		differs := slices.ContainsFunc(r.Columns, func(c string) bool {
			lc, _ := r.left.Column(c)
			rc, _ := r.right.Column(c)

			return !lc.Values[p[0]].Equal(rc.Values[p[1]])
		})

		if differs {
			li = append(li, p[0])
			ri = append(ri, p[1])
		}
	}

	lkeys, err := r.left.KeyColumns(r.Key)
	if err != nil {
		return nil, err
	}

	cols := make([]*table.Column, 0, len(lkeys)+2*len(r.Columns))
	for _, k := range lkeys {
		cols = append(cols, k.Take(li))
	}

	for _, c := range r.Columns {
		lc, _ := r.left.Column(c)
		rc, _ := r.right.Column(c)
		cols = append(cols, lc.Take(li).Renamed(c+"_left"), rc.Take(ri).Renamed(c+"_right"))
	}

	return table.New("flattened", cols...)
}
