// Package config loads the pipeline configuration.
//
// Loading runs in a fixed order:
//  1. include expansion: every file matched by the include globs is loaded
//     recursively and merged before the including document's own keys;
//  2. deep merge: objects merge key by key, lists under sources,
//     compile.targets, compare.pairs and export.workbooks are appended, and
//     everything else is replaced;
//  3. the optional profile overlay, profiles/<name>.json next to the entry file;
//  4. {"$ref": "dotted.path"} resolution against the merged document;
//  5. ${...} interpolation from config paths and environment variables;
//  6. JSON-Schema validation of the document shape.
//
// The validated tree is then decoded into Config and checked for dangling
// and forward references between sources, targets, comparisons and exports.
package config
