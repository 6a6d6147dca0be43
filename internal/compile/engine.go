package compile

import (
	"fmt"
	"maps"
	"slices"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/expr"
	"sheet-compiler/internal/filter"
	"sheet-compiler/internal/logger"
	"sheet-compiler/internal/table"
)

// Engine compiles targets against a fixed set of source tables.
type Engine struct {
	sources  map[string]*table.Table
	compiled map[string]*table.Table
	order    []string
	eval     *expr.Evaluator
	log      logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvaluator sets the expression evaluator used for derived columns.
func WithEvaluator(e *expr.Evaluator) Option {
	return func(eng *Engine) { eng.eval = e }
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(eng *Engine) { eng.log = l }
}

// NewEngine returns an engine over sources, keyed by table id.
func NewEngine(sources map[string]*table.Table, opts ...Option) *Engine {
	e := &Engine{
		sources:  maps.Clone(sources),
		compiled: map[string]*table.Table{},
		eval:     expr.New(),
		log:      logger.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Lookup returns a source table or an already compiled target.
func (e *Engine) Lookup(id string) (*table.Table, bool) {
	if t, ok := e.compiled[id]; ok {
		return t, true
	}

	t, ok := e.sources[id]

	return t, ok
}

// Compiled returns the compiled target names in compilation order.
func (e *Engine) Compiled() []string { return slices.Clone(e.order) }

// Compile compiles targets in declaration order.
func (e *Engine) Compile(targets []config.CompileTarget) error {
	for _, t := range targets {
		if _, err := e.CompileTarget(t); err != nil {
			return err
		}
	}

	return nil
}

// CompileTarget builds one target and registers it under its name.
func (e *Engine) CompileTarget(target config.CompileTarget) (*table.Table, error) {
	log := e.log.With("target", target.Name)

	inputs, err := e.prepareInputs(target)
	if err != nil {
		return nil, err
	}

	merged, err := outerMerge(target.Name, target.Key, inputs)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", target.Name, err)
	}

	log.Debug("merged inputs", "inputs", len(inputs), "rows", merged.table.Len(), "columns", merged.table.Width())

	out, err := resolveMergeRules(merged, target)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", target.Name, err)
	}

	for i, step := range target.Enrich {
		out, err = e.enrich(target.Name, out, step)
		if err != nil {
			return nil, err
		}

		log.Debug("enriched", "step", i, "from", step.From, "rows", out.Len())
	}

	for _, d := range target.Derive {
		col, err := e.eval.EvalColumn(out, d.Name, d.Expr)
		if err != nil {
			return nil, fmt.Errorf("target %q derive %q: %w", target.Name, d.Name, err)
		}

		if out, err = out.WithColumn(col); err != nil {
			return nil, err
		}
	}

	if !filter.IsEmpty(target.PostFilter) {
		before := out.Len()

		if out, err = filter.Apply(out, target.PostFilter); err != nil {
			return nil, fmt.Errorf("target %q post_filter: %w", target.Name, err)
		}

		log.Debug("post-filtered", "before", before, "after", out.Len())
	}

	out = out.WithName(target.Name)
	e.register(out)

	log.Info("compiled target", "rows", out.Len(), "columns", out.Width())

	return out, nil
}

func (e *Engine) register(t *table.Table) {
	if _, ok := e.compiled[t.Name]; !ok {
		e.order = append(e.order, t.Name)
	}

	e.compiled[t.Name] = t
}

// prepareInputs looks up and pre-filters every input of target.
func (e *Engine) prepareInputs(target config.CompileTarget) ([]*table.Table, error) {
	inputs := make([]*table.Table, len(target.Inputs))

	for i, id := range target.Inputs {
		t, ok := e.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("target %q input %q: %w", target.Name, id, ErrUnknownTable)
		}

		if pred, ok := target.PreFilter[id]; ok && !filter.IsEmpty(pred) {
			filtered, err := filter.Apply(t, pred)
			if err != nil {
				return nil, fmt.Errorf("target %q pre_filter %q: %w", target.Name, id, err)
			}

			e.log.Debug("pre-filtered input", "target", target.Name, "input", id, "before", t.Len(), "after", filtered.Len())
			t = filtered
		}

		inputs[i] = t
	}

	return inputs, nil
}
