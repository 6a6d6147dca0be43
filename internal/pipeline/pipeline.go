// Package pipeline drives a full run: load the configuration and its
// sources, compile every target, run the comparisons and write the
// workbooks.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"sheet-compiler/internal/common"
	"sheet-compiler/internal/compare"
	"sheet-compiler/internal/compile"
	"sheet-compiler/internal/config"
	"sheet-compiler/internal/export"
	"sheet-compiler/internal/expr"
	"sheet-compiler/internal/logger"
	"sheet-compiler/internal/source"
	"sheet-compiler/internal/table"
)

// DefaultOutputDir is used, relative to the config directory, when neither
// the config nor the caller names one.
const DefaultOutputDir = "output"

const sampleRows = 3

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

// Runner executes pipeline runs.
type Runner struct {
	fs        afero.Fs
	lookupEnv func(string) (string, bool)
	log       logger.Logger
	eval      *expr.Evaluator
}

// Option configures a Runner.
type Option func(*Runner)

// WithFs reads configs and file sources from fs and writes workbooks to it.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithEnv resolves ${VAR} tokens with lookup.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(r *Runner) { r.lookupEnv = lookup }
}

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithEvaluator evaluates derive and export expressions with e, so that
// operators registered on it are available to both.
func WithEvaluator(e *expr.Evaluator) Option {
	return func(r *Runner) { r.eval = e }
}

// New returns a runner over the OS filesystem and environment.
func New(opts ...Option) *Runner {
	r := &Runner{fs: afero.NewOsFs(), lookupEnv: os.LookupEnv, log: logger.Default(), eval: expr.New()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Request describes one run.
type Request struct {
	ConfigPath string
	Profile    string
	// EnvFile adds variables for interpolation; the process environment
	// wins on conflicts.
	EnvFile string
	// Output overrides the non-zero settings of the config's output block.
	Output config.Output
}

// Result summarizes a finished run.
type Result struct {
	RunID       string
	Config      *config.Config
	Compiled    map[string]*table.Table
	Comparisons map[string]*compare.Result
	Written     []string
}

// Run executes load, compile, compare and export in order.
func (r *Runner) Run(req Request) (*Result, error) {
	res := &Result{
		RunID:       uuid.NewString(),
		Compiled:    map[string]*table.Table{},
		Comparisons: map[string]*compare.Result{},
	}

	log := r.log.With("run_id", res.RunID)

	lookupEnv, err := r.envLookup(req.EnvFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewLoader(config.WithFs(r.fs), config.WithEnv(lookupEnv)).Load(req.ConfigPath, req.Profile)
	if err != nil {
		return nil, err
	}

	if err := mergo.Merge(&cfg.Output, req.Output, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to apply output settings: %w", err)
	}

	res.Config = cfg
	log.Info("loaded config", "path", req.ConfigPath, "profile", req.Profile, "sources", len(cfg.Sources), "targets", len(cfg.Compile.Targets))

	tables, err := source.NewLoader(cfg, source.WithFs(r.fs), source.WithLogger(log)).LoadTables()
	if err != nil {
		return nil, err
	}

	engine := compile.NewEngine(tables, compile.WithEvaluator(r.eval), compile.WithLogger(log))
	if err := engine.Compile(cfg.Compile.Targets); err != nil {
		return nil, err
	}

	for _, name := range engine.Compiled() {
		t, _ := engine.Lookup(name)
		res.Compiled[name] = t

		log.Debug("compiled sample", "target", name, "rows", dumper.Sdump(sample(t)))
	}

	writer := export.NewWriter(outputDir(cfg), export.WithFs(r.fs), export.WithEvaluator(r.eval), export.WithLogger(log))

	for _, pair := range cfg.Compare.Pairs {
		cmp, err := runCompare(engine, pair)
		if err != nil {
			return nil, err
		}

		name := pair.DisplayName()
		res.Comparisons[name] = cmp

		log.Info("compared", "pair", name, "added", cmp.Added.Len(), "removed", cmp.Removed.Len(), "changed", cmp.Changed())

		if !cfg.Output.CompareReportsEnabled() {
			continue
		}

		path, err := writer.WriteCompare(name, cmp)
		if err != nil {
			return nil, err
		}

		res.Written = append(res.Written, path)
	}

	for _, wb := range cfg.Export.Workbooks {
		path, err := writer.WriteWorkbook(wb, engine)
		if err != nil {
			return nil, err
		}

		res.Written = append(res.Written, path)
	}

	log.Info("run finished", "targets", len(res.Compiled), "comparisons", len(res.Comparisons), "files", len(res.Written))

	return res, nil
}

func runCompare(tables export.Tables, pair config.ComparePair) (*compare.Result, error) {
	left, ok := tables.Lookup(pair.Left)
	if !ok {
		return nil, fmt.Errorf("compare %q: unknown table %q", pair.DisplayName(), pair.Left)
	}

	right, ok := tables.Lookup(pair.Right)
	if !ok {
		return nil, fmt.Errorf("compare %q: unknown table %q", pair.DisplayName(), pair.Right)
	}

	res, err := compare.Compare(left, right, pair.Key)
	if err != nil {
		return nil, fmt.Errorf("compare %q: %w", pair.DisplayName(), err)
	}

	return res, nil
}

// envLookup layers the variables of path under the environment lookup.
func (r *Runner) envLookup(path string) (func(string) (string, bool), error) {
	if path == "" {
		return r.lookupEnv, nil
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}

	return func(name string) (string, bool) {
		if v, ok := r.lookupEnv(name); ok {
			return v, true
		}

		v, ok := vars[name]

		return v, ok
	}, nil
}

func outputDir(cfg *config.Config) string {
	dir := cfg.Output.Dir
	if dir == "" {
		dir = DefaultOutputDir
	}

	if filepath.IsAbs(dir) {
		return dir
	}

	return filepath.Join(cfg.BaseDir, dir)
}

func sample(t *table.Table) []map[string]table.Value {
	rows := make([]map[string]table.Value, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}

	return common.Head(rows, sampleRows)
}
