// Package transform applies ordered per-column value pipelines, as used by
// source renames and export columns.
package transform

import (
	"fmt"
	"maps"
	"sort"

	"sheet-compiler/internal/table"
)

// Error reports an unknown or malformed step, or a step that failed on a value.
type Error struct {
	Step string
	Msg  string
}

func (e *Error) Error() string {
	if e.Step == "" {
		return "transform: " + e.Msg
	}

	return fmt.Sprintf("transform %q: %s", e.Step, e.Msg)
}

// Step converts one value.
type Step func(table.Value) (table.Value, error)

// Factory builds a step from its arguments; args is empty for bare steps.
type Factory func(args map[string]any) (Step, error)

// Registry maps step names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding the builtin steps.
func NewRegistry() *Registry {
	return &Registry{factories: maps.Clone(builtins)}
}

// Register adds or replaces a step.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns the registered step names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

var defaultRegistry = NewRegistry()

// Register adds a step to the default registry.
func Register(name string, f Factory) { defaultRegistry.Register(name, f) }

// ParsePipeline builds a pipeline with the default registry.
func ParsePipeline(steps []any) (Pipeline, error) {
	return defaultRegistry.Parse(steps)
}

type namedStep struct {
	name string
	fn   Step
}

// Pipeline is an ordered list of steps.
type Pipeline []namedStep

// Parse builds a pipeline. Each entry is a bare step name or an object with
// a single key naming the step and holding its arguments.
func (r *Registry) Parse(steps []any) (Pipeline, error) {
	out := make(Pipeline, 0, len(steps))

	for _, raw := range steps {
		name, args, err := splitStep(raw)
		if err != nil {
			return nil, err
		}

		factory, ok := r.factories[name]
		if !ok {
			return nil, &Error{Step: name, Msg: "unknown step"}
		}

		fn, err := factory(args)
		if err != nil {
			return nil, &Error{Step: name, Msg: err.Error()}
		}

		out = append(out, namedStep{name: name, fn: fn})
	}

	return out, nil
}

func splitStep(raw any) (string, map[string]any, error) {
	switch s := raw.(type) {
	case string:
		return s, map[string]any{}, nil
	case map[string]any:
		if len(s) != 1 {
			return "", nil, &Error{Msg: fmt.Sprintf("step object must have exactly one key, got %d", len(s))}
		}

		for name, a := range s {
			switch args := a.(type) {
			case map[string]any:
				return name, args, nil
			case nil:
				return name, map[string]any{}, nil
			default:
				return "", nil, &Error{Step: name, Msg: fmt.Sprintf("arguments must be an object, got %T", a)}
			}
		}
	}

	return "", nil, &Error{Msg: fmt.Sprintf("step must be a name or an object, got %T", raw)}
}

// Value runs v through every step.
func (p Pipeline) Value(v table.Value) (table.Value, error) {
	for _, s := range p {
		out, err := s.fn(v)
		if err != nil {
			return table.Null(), &Error{Step: s.name, Msg: err.Error()}
		}

		v = out
	}

	return v, nil
}

// Column runs every value of col through the pipeline and re-infers the
// column kind.
func (p Pipeline) Column(col *table.Column) (*table.Column, error) {
	if len(p) == 0 {
		return col, nil
	}

	values := make([]table.Value, col.Len())

	for i, v := range col.Values {
		out, err := p.Value(v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", col.Name, i, err)
		}

		values[i] = out
	}

	out, err := table.NewColumn(col.Name, values)
	if err != nil {
		return nil, &Error{Msg: err.Error()}
	}

	return out, nil
}
