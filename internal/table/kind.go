package table

import "fmt"

//go:generate go tool stringer -type=Kind -linecomment -output=kind_string.go

// Kind is the logical type of a value or column.
type Kind int

const (
	// KindNull is the kind of a null value, and of a column holding only nulls.
	KindNull    Kind = iota // null
	KindString              // string
	KindInteger             // integer
	KindNumber              // number
	KindDate                // date
	KindBoolean             // boolean
)

// ParseKind converts a schema type name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "string":
		return KindString, nil
	case "integer":
		return KindInteger, nil
	case "number":
		return KindNumber, nil
	case "date":
		return KindDate, nil
	case "boolean":
		return KindBoolean, nil
	default:
		return KindNull, fmt.Errorf("unknown column type %q", name)
	}
}

// IsNumeric reports whether the kind is integer or number.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindNumber
}
