package filter

import (
	"fmt"

	"sheet-compiler/internal/table"
)

// Leaf operators.
const (
	OpEq      = "=="
	OpNeq     = "!="
	OpGt      = ">"
	OpGte     = ">="
	OpLt      = "<"
	OpLte     = "<="
	OpIn      = "in"
	OpNotIn   = "not_in"
	OpIsNull  = "is_null"
	OpNotNull = "not_null"
	OpBetween = "between"
)

// ordered maps ordering operators to their verdict on a comparison result.
var ordered = map[string]func(int) bool{
	OpGt:  func(c int) bool { return c > 0 },
	OpGte: func(c int) bool { return c >= 0 },
	OpLt:  func(c int) bool { return c < 0 },
	OpLte: func(c int) bool { return c <= 0 },
}

func leaf(t *table.Table, expr any, field string, raw any) (Mask, error) {
	spec, ok := raw.(map[string]any)
	if !ok {
		return nil, &Error{Expr: expr, Msg: fmt.Sprintf("predicate for %q must be an object", field)}
	}

	op, ok := spec["op"].(string)
	if !ok {
		return nil, &Error{Expr: expr, Msg: "missing op"}
	}

	col, ok := t.Column(field)
	if !ok {
		return nil, &Error{Expr: expr, Msg: fmt.Sprintf("unknown field %q", field)}
	}

	literal := func(key string) (table.Value, error) {
		v, err := table.CoerceLiteral(spec[key], col.Kind)
		if err != nil {
			return table.Null(), &Error{Expr: expr, Msg: err.Error()}
		}

		return v, nil
	}

	switch op {
	case OpIsNull, OpNotNull:
		want := op == OpIsNull

		return rows(col, func(v table.Value) (bool, error) { return v.IsNull() == want, nil })
	case OpEq, OpNeq:
		lit, err := literal("value")
		if err != nil {
			return nil, err
		}

		neq := op == OpNeq

		return rows(col, func(v table.Value) (bool, error) {
			if v.IsNull() {
				return neq, nil
			}

			return v.Equal(lit) != neq, nil
		})
	case OpGt, OpGte, OpLt, OpLte:
		lit, err := literal("value")
		if err != nil {
			return nil, err
		}

		return rows(col, compareWith(expr, lit, ordered[op]))
	case OpBetween:
		start, err := literal("start")
		if err != nil {
			return nil, err
		}

		end, err := literal("end")
		if err != nil {
			return nil, err
		}

		gte, err := rows(col, compareWith(expr, start, ordered[OpGte]))
		if err != nil {
			return nil, err
		}

		lte, err := rows(col, compareWith(expr, end, ordered[OpLte]))
		if err != nil {
			return nil, err
		}

		return gte.And(lte), nil
	case OpIn, OpNotIn:
		set, err := memberSet(expr, spec["value"], col.Kind)
		if err != nil {
			return nil, err
		}

		notIn := op == OpNotIn

		return rows(col, func(v table.Value) (bool, error) {
			if v.IsNull() {
				return notIn, nil
			}

			_, hit := set[v.Key()]

			return hit != notIn, nil
		})
	default:
		return nil, &Error{Expr: expr, Msg: fmt.Sprintf("unknown op %q", op)}
	}
}

func rows(col *table.Column, pred func(table.Value) (bool, error)) (Mask, error) {
	m := make(Mask, col.Len())

	for i, v := range col.Values {
		keep, err := pred(v)
		if err != nil {
			return nil, err
		}

		m[i] = keep
	}

	return m, nil
}

// compareWith is false for null cells and null bounds.
func compareWith(expr any, lit table.Value, verdict func(int) bool) func(table.Value) (bool, error) {
	return func(v table.Value) (bool, error) {
		if v.IsNull() || lit.IsNull() {
			return false, nil
		}

		c, ok := v.Compare(lit)
		if !ok {
			return false, &Error{Expr: expr, Msg: fmt.Sprintf("cannot compare %s with %s", v.Kind(), lit.Kind())}
		}

		return verdict(c), nil
	}
}

func memberSet(expr, raw any, kind table.Kind) (map[string]struct{}, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, &Error{Expr: expr, Msg: "in/not_in value must be a list"}
	}

	set := make(map[string]struct{}, len(list))

	for _, x := range list {
		v, err := table.CoerceLiteral(x, kind)
		if err != nil {
			return nil, &Error{Expr: expr, Msg: err.Error()}
		}

		if !v.IsNull() {
			set[v.Key()] = struct{}{}
		}
	}

	return set, nil
}
