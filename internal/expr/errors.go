package expr

import "fmt"

// Error reports an unknown operator, an unknown column or an operator
// that cannot be applied to its arguments.
type Error struct {
	Op     string
	Column string
	Msg    string
}

func (e *Error) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("expr: column %q: %s", e.Column, e.Msg)
	case e.Op != "":
		return fmt.Sprintf("expr: op %q: %s", e.Op, e.Msg)
	default:
		return "expr: " + e.Msg
	}
}

func opError(op, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...)}
}
