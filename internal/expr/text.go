package expr

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ncruces/go-strftime"

	"sheet-compiler/internal/table"
)

// concatValues joins the string forms of all values; null counts as "".
func concatValues(row []table.Value) (table.Value, error) {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(v.String())
	}

	return table.String(b.String()), nil
}

func lenValue(row []table.Value) (table.Value, error) {
	v := row[0]
	if v.IsNull() {
		return v, nil
	}

	if v.Kind() != table.KindString {
		return table.Null(), fmt.Errorf("expects a string, got %s", v.Kind())
	}

	return table.Int(int64(utf8.RuneCountInString(v.Str()))), nil
}

func asDate(v table.Value) (time.Time, error) {
	switch v.Kind() {
	case table.KindDate:
		return v.Time(), nil
	case table.KindString:
		d, err := v.Cast(table.KindDate, "", nil)
		if err != nil {
			return time.Time{}, err
		}

		return d.Time(), nil
	default:
		return time.Time{}, fmt.Errorf("expects a date, got %s", v.Kind())
	}
}

// strftimeValue formats a date with a strftime pattern.
func strftimeValue(row []table.Value) (table.Value, error) {
	format, v := row[0], row[1]
	if format.Kind() != table.KindString {
		return table.Null(), fmt.Errorf("format must be a string, got %s", format.Kind())
	}

	if v.IsNull() {
		return v, nil
	}

	t, err := asDate(v)
	if err != nil {
		return table.Null(), err
	}

	return table.String(strftime.Format(format.Str(), t)), nil
}

var dateUnits = map[string]time.Duration{
	"day":    24 * time.Hour,
	"hour":   time.Hour,
	"minute": time.Minute,
}

// datediff returns (end - start) in the requested unit as a number.
func datediff(args []Arg, rows int) ([]table.Value, error) {
	if err := checkArity(len(args), 3, 3); err != nil {
		return nil, err
	}

	if lit, ok := args[0].Literal(); ok {
		if _, err := unitOf(lit); err != nil {
			return nil, err
		}
	}

	return rowwise(3, 3, func(row []table.Value) (table.Value, error) {
		unit, err := unitOf(row[0])
		if err != nil {
			return table.Null(), err
		}

		if row[1].IsNull() || row[2].IsNull() {
			return table.Null(), nil
		}

		end, err := asDate(row[1])
		if err != nil {
			return table.Null(), err
		}

		start, err := asDate(row[2])
		if err != nil {
			return table.Null(), err
		}

		return table.Float(float64(end.Sub(start)) / float64(unit)), nil
	})(args, rows)
}

func unitOf(v table.Value) (time.Duration, error) {
	unit, ok := dateUnits[v.Str()]
	if v.Kind() != table.KindString || !ok {
		return 0, &Error{Msg: fmt.Sprintf("unsupported datediff unit %q", v.String())}
	}

	return unit, nil
}
