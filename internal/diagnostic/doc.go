// Package diagnostic collects problems found while loading and validating
// tables and configuration, so that one run reports all of them at once.
//
// Key capabilities:
//   - Error and warning collection scoped to a table or config section
//   - Per-field attribution with optional suggestions
//   - A consolidated multi-problem error
package diagnostic
