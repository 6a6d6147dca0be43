package expr

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"sheet-compiler/internal/table"
)

// numbers extracts numeric payloads; allInt reports that every value is an integer.
func numbers(row []table.Value) (fs []float64, allInt bool, err error) {
	fs = make([]float64, len(row))
	allInt = true

	for i, v := range row {
		f, ok := v.Number()
		if !ok {
			return nil, false, fmt.Errorf("expects numbers, got %s", v.Kind())
		}

		fs[i] = f
		allInt = allInt && v.Kind() == table.KindInteger
	}

	return fs, allInt, nil
}

func addValues(row []table.Value) (table.Value, error) {
	if anyNull(row) {
		return table.Null(), nil
	}

	fs, allInt, err := numbers(row)
	if err != nil {
		return table.Null(), err
	}

	if allInt {
		var sum int64

		ok := true
		for _, v := range row {
			if sum, ok = addInt(sum, v.Int()); !ok {
				break
			}
		}

		if ok {
			return table.Int(sum), nil
		}
	}

	sum := 0.0
	for _, f := range fs {
		sum += f
	}

	return table.Float(sum), nil
}

func subValues(row []table.Value) (table.Value, error) {
	if anyNull(row) {
		return table.Null(), nil
	}

	fs, allInt, err := numbers(row)
	if err != nil {
		return table.Null(), err
	}

	if allInt && row[1].Int() != math.MinInt64 {
		if diff, ok := addInt(row[0].Int(), -row[1].Int()); ok {
			return table.Int(diff), nil
		}
	}

	return table.Float(fs[0] - fs[1]), nil
}

func mulValues(row []table.Value) (table.Value, error) {
	if anyNull(row) {
		return table.Null(), nil
	}

	fs, allInt, err := numbers(row)
	if err != nil {
		return table.Null(), err
	}

	if allInt {
		product := int64(1)

		ok := true
		for _, v := range row {
			if product, ok = mulInt(product, v.Int()); !ok {
				break
			}
		}

		if ok {
			return table.Int(product), nil
		}
	}

	product := 1.0
	for _, f := range fs {
		product *= f
	}

	return table.Float(product), nil
}

// addInt adds a and b; ok is false when the sum overflows int64.
func addInt(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}

	return sum, true
}

// mulInt multiplies a and b; ok is false when the product overflows int64.
func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	product := a * b
	if product/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}

	return product, true
}

// divValues always yields a number; division by zero yields null.
func divValues(row []table.Value) (table.Value, error) {
	if anyNull(row) {
		return table.Null(), nil
	}

	fs, _, err := numbers(row)
	if err != nil {
		return table.Null(), err
	}

	if fs[1] == 0 {
		return table.Null(), nil
	}

	return table.Float(fs[0] / fs[1]), nil
}

func powValues(row []table.Value) (table.Value, error) {
	if anyNull(row) {
		return table.Null(), nil
	}

	fs, _, err := numbers(row)
	if err != nil {
		return table.Null(), err
	}

	return table.Float(math.Pow(fs[0], fs[1])), nil
}

func negValue(row []table.Value) (table.Value, error) {
	v := row[0]

	switch v.Kind() {
	case table.KindNull:
		return v, nil
	case table.KindInteger:
		return table.Int(-v.Int()), nil
	case table.KindNumber:
		return table.Float(-v.Float()), nil
	default:
		return table.Null(), fmt.Errorf("expects a number, got %s", v.Kind())
	}
}

func absValue(row []table.Value) (table.Value, error) {
	v := row[0]

	switch v.Kind() {
	case table.KindNull:
		return v, nil
	case table.KindInteger:
		if v.Int() < 0 {
			return table.Int(-v.Int()), nil
		}

		return v, nil
	case table.KindNumber:
		return table.Float(math.Abs(v.Float())), nil
	default:
		return table.Null(), fmt.Errorf("expects a number, got %s", v.Kind())
	}
}

// roundValue rounds half to even at ndigits decimal places (default 0).
func roundValue(row []table.Value) (table.Value, error) {
	v := row[0]
	if v.IsNull() {
		return v, nil
	}

	digits := int64(0)

	if len(row) > 1 {
		if row[1].Kind() != table.KindInteger {
			return table.Null(), fmt.Errorf("ndigits must be an integer, got %s", row[1].Kind())
		}

		digits = row[1].Int()
	}

	switch v.Kind() {
	case table.KindInteger:
		if digits >= 0 {
			return v, nil
		}

		d := decimal.NewFromInt(v.Int()).RoundBank(int32(digits))

		return table.Int(d.IntPart()), nil
	case table.KindNumber:
		if math.IsInf(v.Float(), 0) {
			return v, nil
		}

		f, _ := decimal.NewFromFloat(v.Float()).RoundBank(int32(digits)).Float64()
		return table.Float(f), nil
	default:
		return table.Null(), fmt.Errorf("expects a number, got %s", v.Kind())
	}
}

// clipValues bounds a number by optional, possibly null, min and max.
func clipValues(row []table.Value) (table.Value, error) {
	v := row[0]
	if v.IsNull() {
		return v, nil
	}

	out := v

	for i, bound := range row[1:] {
		if bound.IsNull() {
			continue
		}

		c, ok := out.Compare(bound)
		if !ok {
			return table.Null(), fmt.Errorf("cannot clip %s by %s", v.Kind(), bound.Kind())
		}

		if (i == 0 && c < 0) || (i == 1 && c > 0) {
			out = bound
		}
	}

	if v.Kind() == table.KindNumber && out.Kind() == table.KindInteger {
		out = table.Float(float64(out.Int()))
	}

	return out, nil
}
