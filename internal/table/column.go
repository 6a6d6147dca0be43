package table

import "fmt"

// Column is a named, single-kind sequence of nullable values.
// Values is never written after the column is built.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NewColumn builds a column from values, inferring its kind. Integers are
// promoted to numbers when both appear; any other mix of kinds is an error.
// A column without non-null values has KindNull.
func NewColumn(name string, values []Value) (*Column, error) {
	kind, err := unifyKind(values)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}

	if kind == KindNumber {
		values = promoteNumbers(values)
	}

	return &Column{Name: name, Kind: kind, Values: values}, nil
}

// NullColumn returns a column of n nulls.
func NullColumn(name string, n int) *Column {
	return &Column{Name: name, Kind: KindNull, Values: make([]Value, n)}
}

// StringColumn is a convenience constructor for string columns; empty
// strings are kept as empty strings, not nulls.
func StringColumn(name string, values ...string) *Column {
	out := make([]Value, len(values))
	for i, s := range values {
		out[i] = String(s)
	}

	return &Column{Name: name, Kind: KindString, Values: out}
}

func unifyKind(values []Value) (Kind, error) {
	kind := KindNull

	for _, v := range values {
		vk := v.Kind()

		switch {
		case vk == KindNull || vk == kind:
			continue
		case kind == KindNull:
			kind = vk
		case kind.IsNumeric() && vk.IsNumeric():
			kind = KindNumber
		default:
			return KindNull, fmt.Errorf("mixes %s and %s values", kind, vk)
		}
	}

	return kind, nil
}

func promoteNumbers(values []Value) []Value {
	out := make([]Value, len(values))

	for i, v := range values {
		if v.Kind() == KindInteger {
			out[i] = Float(float64(v.Int()))
			continue
		}

		out[i] = v
	}

	return out
}

// Len returns the number of values.
func (c *Column) Len() int { return len(c.Values) }

// At returns the value at row i.
func (c *Column) At(i int) Value { return c.Values[i] }

// Renamed returns a column sharing values under a new name.
func (c *Column) Renamed(name string) *Column {
	return &Column{Name: name, Kind: c.Kind, Values: c.Values}
}

// Take returns a column holding the values at idx; a negative index yields null.
func (c *Column) Take(idx []int) *Column {
	out := make([]Value, len(idx))

	for i, j := range idx {
		if j >= 0 {
			out[i] = c.Values[j]
		}
	}

	return &Column{Name: c.Name, Kind: c.Kind, Values: out}
}

// Filter returns a column holding the values where mask is true.
func (c *Column) Filter(mask []bool) *Column {
	out := make([]Value, 0, len(c.Values))

	for i, keep := range mask {
		if keep {
			out = append(out, c.Values[i])
		}
	}

	return &Column{Name: c.Name, Kind: c.Kind, Values: out}
}
