package compile

import (
	"fmt"
	"maps"
	"slices"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/table"
)

// resolveMergeRules folds the variants of every ruled field into its
// unsuffixed column and drops all suffixed intermediates.
func resolveMergeRules(m *merged, target config.CompileTarget) (*table.Table, error) {
	out := m.table

	for _, field := range slices.Sorted(maps.Keys(target.MergeRules)) {
		rule := target.MergeRules[field]

		vs := m.variants[field]
		if len(vs) == 0 {
			return nil, fmt.Errorf("%w: field %q is not present in any input", ErrMergeRule, field)
		}

		cols := make([]*table.Column, len(vs))
		for i, v := range vs {
			cols[i], _ = out.Column(v.column)
		}

		var (
			values []table.Value
			err    error
		)

		switch rule.Strategy {
		case config.FirstNonNull:
			var order []int
			if order, err = priorityOrder(vs, rule.Priority, target.Inputs); err == nil {
				values = firstNonNull(cols, order, out.Len())
			}
		case config.PreferSource:
			values, err = preferSource(vs, cols, rule.PreferSource, target.Inputs)
		case config.PreferEnumOrder:
			values, err = preferEnumOrder(cols, rule.Order)
		default:
			err = fmt.Errorf("%w: unknown strategy %q", ErrMergeRule, rule.Strategy)
		}

		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}

		col, err := table.NewColumn(field, values)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMergeRule, err)
		}

		if out, err = out.WithColumn(col); err != nil {
			return nil, err
		}
	}

	return out.Drop(m.suffixed...), nil
}

// priorityOrder returns variant positions in scan order: the listed sources
// first, then the remaining variants left to right.
func priorityOrder(vs []variant, priority, inputs []string) ([]int, error) {
	order := make([]int, 0, len(vs))

	for _, src := range priority {
		input := slices.Index(inputs, src)
		if input < 0 {
			return nil, fmt.Errorf("%w: priority source %q is not an input", ErrMergeRule, src)
		}

		if i := slices.IndexFunc(vs, func(v variant) bool { return v.input == input }); i >= 0 && !slices.Contains(order, i) {
			order = append(order, i)
		}
	}

	for i := range vs {
		if !slices.Contains(order, i) {
			order = append(order, i)
		}
	}

	return order, nil
}

func firstNonNull(cols []*table.Column, order []int, rows int) []table.Value {
	values := make([]table.Value, rows)

	for r := range rows {
		for _, i := range order {
			if v := cols[i].Values[r]; !v.IsNull() {
				values[r] = v
				break
			}
		}
	}

	return values
}

// preferSource takes the value of src's variant, falling back to the
// unsuffixed column where that value is null or src has no variant.
func preferSource(vs []variant, cols []*table.Column, src string, inputs []string) ([]table.Value, error) {
	input := slices.Index(inputs, src)
	if input < 0 {
		return nil, fmt.Errorf("%w: prefer_source %q is not an input", ErrMergeRule, src)
	}

	base := cols[0]

	i := slices.IndexFunc(vs, func(v variant) bool { return v.input == input })
	if i < 0 {
		return base.Values, nil
	}

	preferred := cols[i]
	values := make([]table.Value, base.Len())

	for r := range values {
		if v := preferred.Values[r]; !v.IsNull() {
			values[r] = v
		} else {
			values[r] = base.Values[r]
		}
	}

	return values, nil
}

// preferEnumOrder keeps, per row, the non-null value ranked earliest in
// order. Unranked values rank after every listed one; ties go to the
// leftmost variant.
func preferEnumOrder(cols []*table.Column, order []any) ([]table.Value, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: prefer_enum_order needs an order list", ErrMergeRule)
	}

	rank := make(map[string]int, len(order))

	for i, o := range order {
		v, err := table.CoerceLiteral(o, cols[0].Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: order entry %v: %w", ErrMergeRule, o, err)
		}

		if _, dup := rank[v.Key()]; !dup {
			rank[v.Key()] = i
		}
	}

	rankOf := func(v table.Value) int {
		if r, ok := rank[v.Key()]; ok {
			return r
		}

		return len(order)
	}

	values := make([]table.Value, cols[0].Len())

	for r := range values {
		best, bestRank := table.Null(), len(order)+1

		for _, c := range cols {
			v := c.Values[r]
			if v.IsNull() {
				continue
			}

			if rk := rankOf(v); rk < bestRank {
				best, bestRank = v, rk
			}
		}

		values[r] = best
	}

	return values, nil
}
