package transform

import (
	"fmt"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sheet-compiler/internal/table"
)

var builtins = map[string]Factory{
	"regex_replace": regexReplace,
	"cast":          cast,
	"titlecase":     titlecase,
	"map":           mapValues,
	"affix":         affix,
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("missing %q", key)
		}

		return "", nil
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%q must be a string, got %T", key, raw)
	}

	return s, nil
}

func regexReplace(args map[string]any) (Step, error) {
	pattern, err := stringArg(args, "pattern", true)
	if err != nil {
		return nil, err
	}

	repl, err := stringArg(args, "repl", false)
	if err != nil {
		return nil, err
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern: %w", err)
	}

	return func(v table.Value) (table.Value, error) {
		if v.IsNull() {
			return v, nil
		}

		return table.String(re.ReplaceAllString(v.String(), repl)), nil
	}, nil
}

func cast(args map[string]any) (Step, error) {
	to, err := stringArg(args, "to", true)
	if err != nil {
		return nil, err
	}

	kind, err := table.ParseKind(to)
	if err != nil {
		return nil, err
	}

	format, err := stringArg(args, "format", false)
	if err != nil {
		return nil, err
	}

	return func(v table.Value) (table.Value, error) {
		return v.Cast(kind, format, nil)
	}, nil
}

func titlecase(map[string]any) (Step, error) {
	caser := cases.Title(language.Und)

	return func(v table.Value) (table.Value, error) {
		if v.IsNull() {
			return v, nil
		}

		return table.String(caser.String(v.String())), nil
	}, nil
}

// mapValues replaces values by their string form. Unmapped values pass
// through unless a default is given.
func mapValues(args map[string]any) (Step, error) {
	raw, ok := args["values"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("\"values\" must be an object")
	}

	mapping := make(map[string]table.Value, len(raw))

	for k, x := range raw {
		v, err := table.Of(x)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", k, err)
		}

		mapping[k] = v
	}

	var fallback *table.Value

	if x, ok := args["default"]; ok {
		v, err := table.Of(x)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}

		fallback = &v
	}

	return func(v table.Value) (table.Value, error) {
		if v.IsNull() {
			return v, nil
		}

		if out, ok := mapping[v.String()]; ok {
			return out, nil
		}

		if fallback != nil {
			return *fallback, nil
		}

		return v, nil
	}, nil
}

func affix(args map[string]any) (Step, error) {
	prefix, err := stringArg(args, "prefix", false)
	if err != nil {
		return nil, err
	}

	suffix, err := stringArg(args, "suffix", false)
	if err != nil {
		return nil, err
	}

	return func(v table.Value) (table.Value, error) {
		if v.IsNull() {
			return v, nil
		}

		return table.String(prefix + v.String() + suffix), nil
	}, nil
}
