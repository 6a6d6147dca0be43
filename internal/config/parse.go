package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseDocument decodes a JSON or YAML document into a normalized tree.
// JSON files go through encoding/json so tab-indented JSON, which YAML
// rejects, still parses.
func parseDocument(path string, data []byte) (map[string]any, error) {
	var raw any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()

		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if raw == nil {
		return map[string]any{}, nil
	}

	tree, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	doc, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: top level must be an object, got %T", path, tree)
	}

	return doc, nil
}

// normalize round-trips a tree through JSON so that every consumer sees the
// same shapes: map[string]any, []any, string, bool, json.Number and nil.
func normalize(tree any) (any, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}

	return decodeJSON(data)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}

	return out, nil
}
