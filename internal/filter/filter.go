// Package filter turns boolean predicate trees into row masks.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"

	"sheet-compiler/internal/table"
)

// ErrInvalid is wrapped by every filter contract violation.
var ErrInvalid = errors.New("invalid filter")

// Error names the offending expression.
type Error struct {
	Expr any
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrInvalid, render(e.Expr), e.Msg)
}

func (e *Error) Unwrap() error { return ErrInvalid }

func render(x any) string {
	b, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprint(x)
	}

	return string(b)
}

// Mask selects rows; mask[i] keeps row i.
type Mask []bool

// All returns a mask keeping n rows.
func All(n int) Mask {
	m := make(Mask, n)
	for i := range m {
		m[i] = true
	}

	return m
}

// And returns the row-wise conjunction of m and o.
func (m Mask) And(o Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && o[i]
	}

	return out
}

// Or returns the row-wise disjunction of m and o.
func (m Mask) Or(o Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] || o[i]
	}

	return out
}

// Apply filters t by the predicate expr. A nil or empty expr keeps every row.
func Apply(t *table.Table, expr any) (*table.Table, error) {
	if IsEmpty(expr) {
		return t, nil
	}

	mask, err := BuildMask(t, expr)
	if err != nil {
		return nil, err
	}

	return t.Filter(mask), nil
}

// IsEmpty reports whether expr is absent.
func IsEmpty(expr any) bool {
	switch e := expr.(type) {
	case nil:
		return true
	case map[string]any:
		return len(e) == 0
	default:
		return false
	}
}

// BuildMask evaluates expr against every row of t.
func BuildMask(t *table.Table, expr any) (Mask, error) {
	if IsEmpty(expr) {
		return All(t.Len()), nil
	}

	node, ok := expr.(map[string]any)
	if !ok || len(node) != 1 {
		return nil, &Error{Expr: expr, Msg: "expected an object with exactly one key"}
	}

	if children, ok := node["AND"]; ok {
		return combine(t, expr, children, Mask.And)
	}

	if children, ok := node["OR"]; ok {
		return combine(t, expr, children, Mask.Or)
	}

	var (
		field string
		spec  any
	)

	for field, spec = range node {
	}

	return leaf(t, expr, field, spec)
}

func combine(t *table.Table, expr, children any, op func(Mask, Mask) Mask) (Mask, error) {
	list, ok := children.([]any)
	if !ok {
		return nil, &Error{Expr: expr, Msg: "AND/OR takes a list"}
	}

	if len(list) == 0 {
		return nil, &Error{Expr: expr, Msg: "AND/OR needs at least one child"}
	}

	var acc Mask

	for i, child := range list {
		m, err := BuildMask(t, child)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			acc = m
			continue
		}

		acc = op(acc, m)
	}

	return acc, nil
}
