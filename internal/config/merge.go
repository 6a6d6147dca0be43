package config

import "maps"

// appendPaths are the list-valued keys that accumulate across merges.
var appendPaths = map[string]bool{
	"sources":          true,
	"compile.targets":  true,
	"compare.pairs":    true,
	"export.workbooks": true,
}

// Merge deep-merges src over dst and returns the result. Neither input is
// modified.
func Merge(dst, src map[string]any) map[string]any {
	return mergeAt("", dst, src)
}

func mergeAt(prefix string, dst, src map[string]any) map[string]any {
	out := maps.Clone(dst)
	if out == nil {
		out = make(map[string]any, len(src))
	}

	for k, sv := range src {
		path := joinPath(prefix, k)
		dv, exists := out[k]

		if !exists {
			out[k] = sv
			continue
		}

		dm, dIsMap := dv.(map[string]any)
		sm, sIsMap := sv.(map[string]any)

		if dIsMap && sIsMap {
			out[k] = mergeAt(path, dm, sm)
			continue
		}

		dl, dIsList := dv.([]any)
		sl, sIsList := sv.([]any)

		if dIsList && sIsList && appendPaths[path] {
			merged := make([]any, 0, len(dl)+len(sl))
			merged = append(merged, dl...)
			out[k] = append(merged, sl...)

			continue
		}

		out[k] = sv
	}

	return out
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}
