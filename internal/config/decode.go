package config

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// Decode converts a composed document into a Config.
func Decode(tree map[string]any) (*Config, error) {
	var cfg Config

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mergeRuleHook,
			columnListHook,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}

	if err := dec.Decode(tree); err != nil {
		return nil, &Error{Msg: "cannot decode configuration", Err: err}
	}

	return &cfg, nil
}

var (
	mergeRuleType  = reflect.TypeOf(MergeRule{})
	columnListType = reflect.TypeOf(ColumnList{})
)

// mergeRuleHook lets a bare strategy name stand for a rule.
func mergeRuleHook(from, to reflect.Type, data any) (any, error) {
	if to != mergeRuleType || from.Kind() != reflect.String {
		return data, nil
	}

	return map[string]any{"strategy": data}, nil
}

// columnListHook turns the {header: spec} form into a list sorted by header.
func columnListHook(from, to reflect.Type, data any) (any, error) {
	if to != columnListType || from.Kind() != reflect.Map {
		return data, nil
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}

	headers := make([]string, 0, len(obj))
	for h := range obj {
		headers = append(headers, h)
	}

	sort.Strings(headers)

	list := make([]any, 0, len(headers))

	for _, h := range headers {
		entry := map[string]any{"header": h}

		switch spec := obj[h].(type) {
		case map[string]any:
			for k, v := range spec {
				entry[k] = v
			}
		case string:
			entry["alias"] = spec
		case nil:
			entry["alias"] = h
		default:
			return nil, fmt.Errorf("column %q: expected an object or an alias name, got %T", h, spec)
		}

		list = append(list, entry)
	}

	return list, nil
}
