package expr

import (
	"fmt"

	"sheet-compiler/internal/table"
)

// variadic marks an operator without an upper arity bound.
const variadic = -1

var builtins = map[string]Func{
	// arithmetic
	"add":   rowwise(1, variadic, addValues),
	"sub":   rowwise(2, 2, subValues),
	"mul":   rowwise(1, variadic, mulValues),
	"div":   rowwise(2, 2, divValues),
	"pow":   rowwise(2, 2, powValues),
	"neg":   rowwise(1, 1, negValue),
	"abs":   rowwise(1, 1, absValue),
	"round": rowwise(1, 2, roundValue),

	// comparison
	"eq":  compareOp(func(c int) bool { return c == 0 }, true),
	"neq": compareOp(func(c int) bool { return c != 0 }, true),
	"gt":  compareOp(func(c int) bool { return c > 0 }, false),
	"gte": compareOp(func(c int) bool { return c >= 0 }, false),
	"lt":  compareOp(func(c int) bool { return c < 0 }, false),
	"lte": compareOp(func(c int) bool { return c <= 0 }, false),

	// boolean
	"and": rowwise(1, variadic, andValues),
	"or":  rowwise(1, variadic, orValues),
	"not": rowwise(1, 1, notValue),

	// nulls
	"coalesce": rowwise(1, variadic, coalesceValues),
	"fillna":   rowwise(2, 2, coalesceValues),
	"is_null":  rowwise(1, 1, func(row []table.Value) (table.Value, error) { return table.Bool(row[0].IsNull()), nil }),
	"not_null": rowwise(1, 1, func(row []table.Value) (table.Value, error) { return table.Bool(!row[0].IsNull()), nil }),

	// strings
	"concat": rowwise(1, variadic, concatValues),
	"len":    rowwise(1, 1, lenValue),

	// dates
	"strftime": rowwise(2, 2, strftimeValue),
	"datediff": datediff,

	// misc
	"clip":    rowwise(1, 3, clipValues),
	"percent": rowwise(2, 2, mulValues),
	"if":      rowwise(2, 3, ifValues),
}

// rowwise lifts a per-row function into a Func with an arity check.
// maxArgs may be variadic.
func rowwise(minArgs, maxArgs int, fn func(row []table.Value) (table.Value, error)) Func {
	return func(args []Arg, rows int) ([]table.Value, error) {
		if err := checkArity(len(args), minArgs, maxArgs); err != nil {
			return nil, err
		}

		out := make([]table.Value, rows)
		row := make([]table.Value, len(args))

		for i := range rows {
			for j, a := range args {
				row[j] = a.Values[i]
			}

			v, err := fn(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}

			out[i] = v
		}

		return out, nil
	}
}

func checkArity(n, minArgs, maxArgs int) error {
	switch {
	case maxArgs == variadic && n < minArgs:
		return &Error{Msg: fmt.Sprintf("needs at least %d arguments, got %d", minArgs, n)}
	case maxArgs != variadic && (n < minArgs || n > maxArgs):
		if minArgs == maxArgs {
			return &Error{Msg: fmt.Sprintf("needs %d arguments, got %d", minArgs, n)}
		}

		return &Error{Msg: fmt.Sprintf("needs %d to %d arguments, got %d", minArgs, maxArgs, n)}
	default:
		return nil
	}
}

func anyNull(row []table.Value) bool {
	for _, v := range row {
		if v.IsNull() {
			return true
		}
	}

	return false
}
