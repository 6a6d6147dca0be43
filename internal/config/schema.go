package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["schema", "sources", "compile"],
  "properties": {
    "version": {"type": ["string", "number"]},
    "timezone": {"type": "string"},
    "output": {"type": "object"},
    "schema": {
      "type": "object",
      "properties": {
        "aliases": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["type"],
            "additionalProperties": false,
            "properties": {
              "type": {"enum": ["string", "integer", "number", "date", "boolean"]},
              "identifier": {"type": "boolean"},
              "not_null": {"type": "boolean"},
              "enum": {"type": "array"},
              "date": {
                "type": "object",
                "properties": {
                  "format": {"type": "string"},
                  "timezone": {"type": "string"}
                }
              }
            }
          }
        }
      }
    },
    "sources": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["csv", "xlsx", "sqlite", "inline"]}
        }
      }
    },
    "compile": {
      "type": "object",
      "properties": {
        "targets": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name", "key", "inputs"],
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "key": {"type": "array", "items": {"type": "string"}, "minItems": 1},
              "inputs": {"type": "array", "items": {"type": "string"}, "minItems": 1},
              "pre_filter": {"type": "object"},
              "merge_rules": {"type": "object"},
              "enrich": {"type": "array"},
              "derive": {"type": "array"}
            }
          }
        }
      }
    },
    "compare": {
      "type": "object",
      "properties": {"pairs": {"type": "array"}}
    },
    "export": {
      "type": "object",
      "properties": {"workbooks": {"type": "array"}}
    }
  }
}`

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config.json", strings.NewReader(documentSchema)); err != nil {
			compileErr = err
			return
		}

		compiledSchema, compileErr = compiler.Compile("config.json")
	})

	return compiledSchema, compileErr
}

// ValidateSchema checks the shape of a composed document. The first
// failure, ordered by path, is returned as an *Error.
func ValidateSchema(root map[string]any) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	err = schema.Validate(map[string]any(root))
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &Error{Msg: "schema validation failed", Err: err}
	}

	leaves := leafErrors(verr)
	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].path < leaves[j].path
	})

	first := leaves[0]

	return &Error{Path: first.path, Msg: first.msg}
}

type schemaProblem struct {
	path string
	msg  string
}

var quotedName = regexp.MustCompile(`'([^']+)'`)

func leafErrors(verr *jsonschema.ValidationError) []schemaProblem {
	if len(verr.Causes) == 0 {
		path := pointerToPath(verr.InstanceLocation)

		// name the offending property rather than its parent object
		if strings.HasSuffix(verr.KeywordLocation, "/required") ||
			strings.HasSuffix(verr.KeywordLocation, "/additionalProperties") {
			if m := quotedName.FindStringSubmatch(verr.Message); m != nil {
				path = joinPath(path, m[1])
			}
		}

		return []schemaProblem{{path: path, msg: verr.Message}}
	}

	var out []schemaProblem
	for _, c := range verr.Causes {
		out = append(out, leafErrors(c)...)
	}

	return out
}

// pointerToPath turns a JSON pointer such as /schema/aliases/id into
// schema.aliases.id.
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		parts[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(p)
	}

	return strings.Join(parts, ".")
}
