package config

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"sheet-compiler/internal/diagnostic"
	"sheet-compiler/internal/match"
	"sheet-compiler/internal/transform"
)

const suggestionDistance = 2

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// Validate checks struct constraints and the references between sources,
// targets, comparisons and exports. Every problem is reported in one
// *Error wrapping a *diagnostic.Error.
func (c *Config) Validate() error {
	var diags diagnostic.Diagnostics

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &Error{Msg: "cannot validate configuration", Err: err}
		}

		for _, fe := range verrs {
			diags.AddError(diagnostic.CodeInvalid, describeTag(fe), "", fieldPath(fe.Namespace()))
		}
	}

	c.checkReferences(&diags)

	if err := diags.Err(); err != nil {
		return &Error{Path: diags.Errors[0].Field, Msg: "invalid configuration", Err: err}
	}

	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_unless", "required_if", "required_without":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "min":
		return "needs at least " + fe.Param() + " entries"
	default:
		return fmt.Sprintf("fails %s=%s", fe.Tag(), fe.Param())
	}
}

// fieldPath converts Config.compile.targets[0].name to compile.targets.0.name.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}

	r := strings.NewReplacer("[", ".", "]", "")

	return r.Replace(ns)
}

func (c *Config) checkReferences(diags *diagnostic.Diagnostics) {
	sources := make([]string, 0, len(c.Sources))
	targets := make([]string, 0, len(c.Compile.Targets))

	for i, src := range c.Sources {
		path := fmt.Sprintf("sources.%d", i)
		if slices.Contains(sources, src.ID) {
			diags.AddErrorf(diagnostic.CodeInvalid, "", path+".id", "duplicate table id %q", src.ID)
		}

		sources = append(sources, src.ID)

		for _, col := range slices.Sorted(maps.Keys(src.Transforms)) {
			if _, err := transform.ParsePipeline(src.Transforms[col]); err != nil {
				diags.AddError(diagnostic.CodeInvalid, err.Error(), "", path+".transforms."+col)
			}
		}
	}

	for _, t := range c.Compile.Targets {
		targets = append(targets, t.Name)
	}

	known := append(slices.Clone(sources), targets...)

	for i, t := range c.Compile.Targets {
		path := fmt.Sprintf("compile.targets.%d", i)
		visible := append(slices.Clone(sources), targets[:i]...)

		if slices.Contains(sources, t.Name) || slices.Contains(targets[:i], t.Name) {
			diags.AddErrorf(diagnostic.CodeInvalid, "", path+".name", "duplicate table id %q", t.Name)
		}

		for j, in := range t.Inputs {
			checkVisible(diags, in, visible, known, fmt.Sprintf("%s.inputs.%d", path, j))
		}

		for _, id := range slices.Sorted(maps.Keys(t.PreFilter)) {
			if !slices.Contains(t.Inputs, id) {
				diags.AddErrorf(diagnostic.CodeUnknownTable, "", path+".pre_filter."+id, "%q is not an input of %q", id, t.Name)
			}
		}

		for _, field := range slices.Sorted(maps.Keys(t.MergeRules)) {
			checkMergeRule(diags, t, t.MergeRules[field], path+".merge_rules."+field)
		}

		for j, step := range t.Enrich {
			stepPath := fmt.Sprintf("%s.enrich.%d", path, j)
			checkVisible(diags, step.From, visible, known, stepPath+".from")

			opts := step.Match.Options()
			if err := opts.Validate(); err != nil {
				diags.AddError(diagnostic.CodeInvalid, err.Error(), "", stepPath+".match")
			}
		}
	}

	for i, p := range c.Compare.Pairs {
		path := fmt.Sprintf("compare.pairs.%d", i)
		checkVisible(diags, p.Left, known, known, path+".left")
		checkVisible(diags, p.Right, known, known, path+".right")
	}

	for i, wb := range c.Export.Workbooks {
		names := make(map[string]bool, len(wb.Sheets))

		for j, sh := range wb.Sheets {
			path := fmt.Sprintf("export.workbooks.%d.sheets.%d", i, j)
			checkVisible(diags, sh.From, known, known, path+".from")

			// xlsx sheet names are case-insensitive
			if key := strings.ToLower(sh.Name); names[key] {
				diags.AddErrorf(diagnostic.CodeInvalid, "", path+".name", "duplicate sheet name %q in %q", sh.Name, wb.SaveName)
			} else {
				names[key] = true
			}

			for k, col := range sh.Columns {
				if _, err := transform.ParsePipeline(col.Transforms); err != nil {
					diags.AddError(diagnostic.CodeInvalid, err.Error(), "", fmt.Sprintf("%s.columns.%d.transforms", path, k))
				}
			}
		}
	}
}

// checkVisible reports id as unknown or, when it names a later target, as a
// forward reference.
func checkVisible(diags *diagnostic.Diagnostics, id string, visible, known []string, path string) {
	if slices.Contains(visible, id) {
		return
	}

	if slices.Contains(known, id) {
		diags.AddErrorf(diagnostic.CodeForwardRef, "", path, "%q is compiled later; only sources and earlier targets are visible", id)
		return
	}

	diags.Errors = append(diags.Errors, diagnostic.Diagnostic{
		Severity:    diagnostic.SeverityError,
		Code:        diagnostic.CodeUnknownTable,
		Message:     fmt.Sprintf("unknown table %q", id),
		Field:       path,
		Suggestions: match.Closest(id, known, suggestionDistance),
	})
}

func checkMergeRule(diags *diagnostic.Diagnostics, t CompileTarget, rule MergeRule, path string) {
	switch rule.Strategy {
	case FirstNonNull:
		for _, src := range rule.Priority {
			if !slices.Contains(t.Inputs, src) {
				diags.AddErrorf(diagnostic.CodeInvalid, "", path+".priority", "%q is not an input of %q", src, t.Name)
			}
		}
	case PreferSource:
		if rule.PreferSource != "" && !slices.Contains(t.Inputs, rule.PreferSource) {
			diags.AddErrorf(diagnostic.CodeInvalid, "", path+".prefer_source", "%q is not an input of %q", rule.PreferSource, t.Name)
		}
	}
}
