package config

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const refKey = "$ref"

// ResolveRefs replaces every {"$ref": "dotted.path"} object with the value
// at that path in root. Resolved values are resolved in turn; a reference
// cycle is an error.
func ResolveRefs(root map[string]any) (map[string]any, error) {
	data, err := json.Marshal(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config for $ref resolution")
	}

	r := &refResolver{doc: data, active: map[string]bool{}}

	out, err := r.resolve(root, "")
	if err != nil {
		return nil, err
	}

	return out.(map[string]any), nil
}

type refResolver struct {
	doc    []byte
	active map[string]bool
}

func (r *refResolver) resolve(node any, at string) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		if target, ok := refTarget(n); ok {
			return r.follow(target, at)
		}

		out := make(map[string]any, len(n))

		for k, v := range n {
			resolved, err := r.resolve(v, joinPath(at, k))
			if err != nil {
				return nil, err
			}

			out[k] = resolved
		}

		return out, nil
	case []any:
		out := make([]any, len(n))

		for i, v := range n {
			resolved, err := r.resolve(v, joinPath(at, itoa(i)))
			if err != nil {
				return nil, err
			}

			out[i] = resolved
		}

		return out, nil
	default:
		return node, nil
	}
}

func (r *refResolver) follow(target, at string) (any, error) {
	if r.active[target] {
		return nil, &Error{Path: at, Msg: "$ref cycle through " + target}
	}

	result := gjson.GetBytes(r.doc, target)
	if !result.Exists() {
		return nil, &Error{Path: at, Msg: "cannot resolve $ref", Err: errors.Wrapf(ErrRefNotFound, "%q", target)}
	}

	value, err := decodeJSON([]byte(result.Raw))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode $ref %q", target)
	}

	r.active[target] = true
	defer delete(r.active, target)

	return r.resolve(value, at)
}

// refTarget reports whether n has exactly the {"$ref": "path"} shape.
func refTarget(n map[string]any) (string, bool) {
	if len(n) != 1 {
		return "", false
	}

	target, ok := n[refKey].(string)

	return strings.TrimSpace(target), ok
}
