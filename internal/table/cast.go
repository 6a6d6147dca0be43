package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// dateLayouts are tried in order when a date alias declares no format.
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// Cast converts the value to kind k. Blank strings cast to null for every
// non-string kind. format is a strftime pattern used for string to date
// casts; loc, when set, is the location dates are interpreted in.
func (v Value) Cast(k Kind, format string, loc *time.Location) (Value, error) {
	if v.IsNull() || v.kind == k {
		return v, nil
	}

	if v.kind == KindString && k != KindString && strings.TrimSpace(v.s) == "" {
		return Null(), nil
	}

	switch k {
	case KindString:
		return String(v.String()), nil
	case KindInteger:
		return v.castInteger()
	case KindNumber:
		return v.castNumber()
	case KindDate:
		return v.castDate(format, loc)
	case KindBoolean:
		return v.castBoolean()
	case KindNull:
		return Null(), nil
	default:
		return Null(), fmt.Errorf("cannot cast to %s", k)
	}
}

func (v Value) castInteger() (Value, error) {
	switch v.kind {
	case KindNumber:
		if v.f != math.Trunc(v.f) {
			return Null(), fmt.Errorf("number %v is not integral", v.f)
		}

		return Int(int64(v.f)), nil
	case KindBoolean:
		if v.b {
			return Int(1), nil
		}

		return Int(0), nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return Null(), fmt.Errorf("cannot parse %q as integer", v.s)
		}

		return Int(int64(f)), nil
	default:
		return Null(), fmt.Errorf("cannot cast %s to integer", v.kind)
	}
}

func (v Value) castNumber() (Value, error) {
	switch v.kind {
	case KindInteger:
		return Float(float64(v.i)), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return Null(), fmt.Errorf("cannot parse %q as number", v.s)
		}

		return Float(f), nil
	default:
		return Null(), fmt.Errorf("cannot cast %s to number", v.kind)
	}
}

func (v Value) castDate(format string, loc *time.Location) (Value, error) {
	if v.kind != KindString {
		return Null(), fmt.Errorf("cannot cast %s to date", v.kind)
	}

	s := strings.TrimSpace(v.s)

	if format != "" {
		t, err := strftime.Parse(format, s)
		if err != nil {
			return Null(), fmt.Errorf("cannot parse %q as date with format %q", v.s, format)
		}

		return Date(inLocation(t, loc)), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(inLocation(t, loc)), nil
		}
	}

	return Null(), fmt.Errorf("cannot parse %q as date", v.s)
}

func (v Value) castBoolean() (Value, error) {
	switch v.kind {
	case KindInteger:
		switch v.i {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		}
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "t", "yes", "y", "1":
			return Bool(true), nil
		case "false", "f", "no", "n", "0":
			return Bool(false), nil
		}
	}

	return Null(), fmt.Errorf("cannot cast %q to boolean", v.String())
}

// inLocation reinterprets the wall clock of t in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
