package expr

import (
	"fmt"

	"sheet-compiler/internal/table"
)

// compareOp builds a null-propagating comparison. Equality operators treat
// incomparable kinds as unequal; ordering operators reject them.
func compareOp(pred func(int) bool, equality bool) Func {
	return rowwise(2, 2, func(row []table.Value) (table.Value, error) {
		a, b := row[0], row[1]
		if a.IsNull() || b.IsNull() {
			return table.Null(), nil
		}

		a, b = alignDates(a, b)

		c, ok := a.Compare(b)
		if !ok {
			if equality {
				return table.Bool(pred(1)), nil
			}

			return table.Null(), fmt.Errorf("cannot compare %s with %s", a.Kind(), b.Kind())
		}

		return table.Bool(pred(c)), nil
	})
}

// alignDates parses a string compared with a date.
func alignDates(a, b table.Value) (table.Value, table.Value) {
	switch {
	case a.Kind() == table.KindDate && b.Kind() == table.KindString:
		if d, err := b.Cast(table.KindDate, "", nil); err == nil {
			return a, d
		}
	case b.Kind() == table.KindDate && a.Kind() == table.KindString:
		if d, err := a.Cast(table.KindDate, "", nil); err == nil {
			return d, b
		}
	}

	return a, b
}

func booleans(row []table.Value) error {
	for _, v := range row {
		if !v.IsNull() && v.Kind() != table.KindBoolean {
			return fmt.Errorf("expects booleans, got %s", v.Kind())
		}
	}

	return nil
}

// andValues is Kleene conjunction: false wins over null, null over true.
func andValues(row []table.Value) (table.Value, error) {
	if err := booleans(row); err != nil {
		return table.Null(), err
	}

	sawNull := false

	for _, v := range row {
		if v.IsNull() {
			sawNull = true
			continue
		}

		if !v.Bool() {
			return table.Bool(false), nil
		}
	}

	if sawNull {
		return table.Null(), nil
	}

	return table.Bool(true), nil
}

// orValues is Kleene disjunction: true wins over null, null over false.
func orValues(row []table.Value) (table.Value, error) {
	if err := booleans(row); err != nil {
		return table.Null(), err
	}

	sawNull := false

	for _, v := range row {
		if v.IsNull() {
			sawNull = true
			continue
		}

		if v.Bool() {
			return table.Bool(true), nil
		}
	}

	if sawNull {
		return table.Null(), nil
	}

	return table.Bool(false), nil
}

func notValue(row []table.Value) (table.Value, error) {
	if err := booleans(row); err != nil {
		return table.Null(), err
	}

	if row[0].IsNull() {
		return row[0], nil
	}

	return table.Bool(!row[0].Bool()), nil
}

func coalesceValues(row []table.Value) (table.Value, error) {
	for _, v := range row {
		if !v.IsNull() {
			return v, nil
		}
	}

	return table.Null(), nil
}

// ifValues selects the then or else branch per row; a null condition is false.
func ifValues(row []table.Value) (table.Value, error) {
	cond := row[0]

	switch {
	case cond.Kind() == table.KindBoolean && cond.Bool():
		return row[1], nil
	case cond.IsNull() || cond.Kind() == table.KindBoolean:
		if len(row) > 2 {
			return row[2], nil
		}

		return table.Null(), nil
	default:
		return table.Null(), fmt.Errorf("condition must be boolean, got %s", cond.Kind())
	}
}
