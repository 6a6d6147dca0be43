package expr

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"sheet-compiler/internal/table"
)

// Arg is an evaluated operator argument: one value per row.
type Arg struct {
	Values []table.Value
	lit    *table.Value
}

// Literal returns the value of an argument written as a literal.
func (a Arg) Literal() (table.Value, bool) {
	if a.lit == nil {
		return table.Null(), false
	}

	return *a.lit, true
}

// Func implements an operator over rows evaluated arguments.
type Func func(args []Arg, rows int) ([]table.Value, error)

// Evaluator evaluates expression trees against tables.
type Evaluator struct {
	ops map[string]Func
}

// New returns an evaluator holding a copy of the builtin operators.
func New() *Evaluator {
	return &Evaluator{ops: maps.Clone(builtins)}
}

// Register adds or replaces an operator.
func (e *Evaluator) Register(name string, fn Func) error {
	if name == "" {
		return errors.New("expr: empty operator name")
	}

	if fn == nil {
		return fmt.Errorf("expr: nil function for operator %q", name)
	}

	e.ops[name] = fn

	return nil
}

// Ops returns the registered operator names, sorted.
func (e *Evaluator) Ops() []string {
	names := make([]string, 0, len(e.ops))
	for name := range e.ops {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Eval evaluates node against t and returns one value per row.
func (e *Evaluator) Eval(t *table.Table, node any) ([]table.Value, error) {
	arg, err := e.eval(t, node)
	if err != nil {
		return nil, err
	}

	return arg.Values, nil
}

// EvalColumn evaluates node into a column named name.
func (e *Evaluator) EvalColumn(t *table.Table, name string, node any) (*table.Column, error) {
	values, err := e.Eval(t, node)
	if err != nil {
		return nil, err
	}

	col, err := table.NewColumn(name, values)
	if err != nil {
		return nil, &Error{Column: name, Msg: err.Error()}
	}

	return col, nil
}

func (e *Evaluator) eval(t *table.Table, node any) (Arg, error) {
	switch n := node.(type) {
	case map[string]any:
		if name, ok := n["col"]; ok {
			return e.column(t, n, name)
		}

		if op, ok := n["op"]; ok {
			name, ok := op.(string)
			if !ok {
				return Arg{}, &Error{Msg: fmt.Sprintf("op must be a string, got %T", op)}
			}

			var args []any

			if raw, ok := n["args"]; ok && raw != nil {
				args, ok = raw.([]any)
				if !ok {
					return Arg{}, opError(name, "args must be a list, got %T", raw)
				}
			}

			return e.apply(t, name, args)
		}

		return Arg{}, &Error{Msg: fmt.Sprintf("malformed node %v", n)}
	case []any:
		if len(n) == 0 {
			return Arg{}, &Error{Msg: "empty expression list"}
		}

		name, ok := n[0].(string)
		if !ok {
			return Arg{}, &Error{Msg: fmt.Sprintf("expression list must start with an operator name, got %v", n[0])}
		}

		return e.apply(t, name, n[1:])
	default:
		v, err := table.Of(node)
		if err != nil {
			return Arg{}, &Error{Msg: err.Error()}
		}

		values := make([]table.Value, t.Len())
		for i := range values {
			values[i] = v
		}

		return Arg{Values: values, lit: &v}, nil
	}
}

func (e *Evaluator) column(t *table.Table, n map[string]any, name any) (Arg, error) {
	if len(n) != 1 {
		return Arg{}, &Error{Msg: fmt.Sprintf("column reference takes only \"col\", got %v", n)}
	}

	s, ok := name.(string)
	if !ok {
		return Arg{}, &Error{Msg: fmt.Sprintf("column name must be a string, got %T", name)}
	}

	col, ok := t.Column(s)
	if !ok {
		return Arg{}, &Error{Column: s, Msg: "unknown column"}
	}

	return Arg{Values: col.Values}, nil
}

func (e *Evaluator) apply(t *table.Table, name string, raw []any) (Arg, error) {
	fn, ok := e.ops[name]
	if !ok {
		return Arg{}, &Error{Op: name, Msg: "unknown operator"}
	}

	args := make([]Arg, len(raw))

	for i, r := range raw {
		a, err := e.eval(t, r)
		if err != nil {
			return Arg{}, err
		}

		args[i] = a
	}

	values, err := fn(args, t.Len())
	if err != nil {
		var exprErr *Error
		if errors.As(err, &exprErr) {
			if exprErr.Op == "" && exprErr.Column == "" {
				exprErr.Op = name
			}

			return Arg{}, exprErr
		}

		return Arg{}, &Error{Op: name, Msg: err.Error()}
	}

	return Arg{Values: values}, nil
}
