package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var tokenPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate substitutes ${...} tokens in every string of root. A token
// containing a dot is a path into root and resolves to the interpolated
// value found there; any other token is an environment variable.
// Unresolved tokens are kept verbatim. A string that is exactly one
// config-path token takes the typed value at that path.
func Interpolate(root map[string]any, lookupEnv func(string) (string, bool)) (map[string]any, error) {
	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config for interpolation: %w", err)
	}

	in := &interpolator{doc: data, lookupEnv: lookupEnv, active: map[string]bool{}}

	out, err := in.walk(root)
	if err != nil {
		return nil, err
	}

	return out.(map[string]any), nil
}

type interpolator struct {
	doc       []byte
	lookupEnv func(string) (string, bool)
	// active holds the paths being resolved, to reject cycles.
	active map[string]bool
}

func (in *interpolator) walk(node any) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))

		for k, v := range n {
			resolved, err := in.walk(v)
			if err != nil {
				return nil, err
			}

			out[k] = resolved
		}

		return out, nil
	case []any:
		out := make([]any, len(n))

		for i, v := range n {
			resolved, err := in.walk(v)
			if err != nil {
				return nil, err
			}

			out[i] = resolved
		}

		return out, nil
	case string:
		return in.substitute(n)
	default:
		return node, nil
	}
}

func (in *interpolator) substitute(s string) (any, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	if m := tokenPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		v, ok, err := in.pathValue(m[1])
		if err != nil {
			return nil, err
		}

		if ok {
			return v, nil
		}
	}

	var firstErr error

	out := tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := strings.TrimSpace(tok[2 : len(tok)-1])

		if isPath(name) {
			v, ok, err := in.pathValue(name)
			if err != nil {
				firstErr = cmp.Or(firstErr, err)
				return tok
			}

			if !ok {
				return tok
			}

			return stringify(v)
		}

		if v, ok := in.lookupEnv(name); ok {
			return v
		}

		return tok
	})

	return out, firstErr
}

// pathValue returns the value at the dotted path name with its own tokens
// interpolated.
func (in *interpolator) pathValue(name string) (any, bool, error) {
	name = strings.TrimSpace(name)
	if !isPath(name) {
		return nil, false, nil
	}

	res := gjson.GetBytes(in.doc, name)
	if !res.Exists() {
		return nil, false, nil
	}

	if in.active[name] {
		return nil, false, errorf(name, "interpolation cycle through ${%s}", name)
	}

	in.active[name] = true
	defer delete(in.active, name)

	raw, err := decodeJSON([]byte(res.Raw))
	if err != nil {
		return nil, false, &Error{Path: name, Msg: "unreadable value", Err: err}
	}

	v, err := in.walk(raw)
	if err != nil {
		return nil, false, err
	}

	return v, true, nil
}

func isPath(name string) bool { return strings.Contains(name, ".") }

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}

		return string(data)
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
