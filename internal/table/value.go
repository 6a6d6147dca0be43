package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a single nullable cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Float returns a number value. NaN becomes null.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}

	return Value{kind: KindNumber, f: f}
}

// Date returns a date value.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Of converts a Go scalar to a Value. Accepted inputs are nil, Value, string,
// []byte, bool, every integer and float type, json.Number and time.Time.
func Of(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case []byte:
		return String(string(v)), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Int(int64(v)), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Float(float64(v)), nil
		}

		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i), nil
		}

		f, err := v.Float64()
		if err != nil {
			return Null(), fmt.Errorf("invalid number %q: %w", v, err)
		}

		return Float(f), nil
	case time.Time:
		return Date(v), nil
	default:
		return Null(), fmt.Errorf("unsupported cell value of type %T", x)
	}
}

// Kind returns the kind of the value; KindNull for null.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Int returns the integer payload.
func (v Value) Int() int64 { return v.i }

// Float returns the number payload.
func (v Value) Float() float64 { return v.f }

// Time returns the date payload.
func (v Value) Time() time.Time { return v.t }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Number returns the value as float64 when it is an integer or a number.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindNumber:
		return v.f, true
	default:
		return 0, false
	}
}

// Any returns the payload as a plain Go value (nil, string, int64, float64,
// time.Time or bool).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return v.i
	case KindNumber:
		return v.f
	case KindDate:
		return v.t
	case KindBoolean:
		return v.b
	default:
		return nil
	}
}

// String renders the value for display and for string matching.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDate:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format(time.DateOnly)
		}

		return v.t.Format(time.DateTime)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// GoString implements fmt.GoStringer so dumps stay readable.
func (v Value) GoString() string {
	if v.IsNull() {
		return "null"
	}

	return fmt.Sprintf("%s(%s)", v.kind, v.String())
}

// Key returns a canonical hash key. Integer 1 and number 1.0 share a key.
// Null values get a key that no non-null value can produce.
func (v Value) Key() string {
	switch v.kind {
	case KindString:
		return "s:" + v.s
	case KindInteger:
		return "n:" + strconv.FormatInt(v.i, 10)
	case KindNumber:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
			return "n:" + strconv.FormatInt(int64(v.f), 10)
		}

		return "n:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return "d:" + v.t.UTC().Format(time.RFC3339Nano)
	case KindBoolean:
		return "b:" + strconv.FormatBool(v.b)
	default:
		return "\x00null"
	}
}

// Equal reports value equality with null == null. Numbers compare across
// integer and number kinds.
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}

	if c, ok := v.Compare(o); ok {
		return c == 0
	}

	return false
}

// Compare orders two non-null values of comparable kinds. The second result
// is false when either value is null or the kinds cannot be ordered.
func (v Value) Compare(o Value) (int, bool) {
	if v.IsNull() || o.IsNull() {
		return 0, false
	}

	if a, ok := v.Number(); ok {
		b, ok := o.Number()
		if !ok {
			return 0, false
		}

		return cmpOrdered(a, b), true
	}

	if v.kind != o.kind {
		return 0, false
	}

	switch v.kind {
	case KindString:
		return strings.Compare(v.s, o.s), true
	case KindDate:
		return v.t.Compare(o.t), true
	case KindBoolean:
		switch {
		case v.b == o.b:
			return 0, true
		case !v.b:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CoerceLiteral converts a literal (typically a config value) so that it
// can be compared with cells of kind k. Strings are parsed as dates for date
// columns; everything else is converted with Of.
func CoerceLiteral(x any, k Kind) (Value, error) {
	v, err := Of(x)
	if err != nil {
		return Null(), err
	}

	if k == KindDate && v.Kind() == KindString {
		return v.Cast(KindDate, "", nil)
	}

	return v, nil
}
