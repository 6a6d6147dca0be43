// Package source loads the configured source tables.
//
// Each source is read by the reader registered for its type, then its
// columns are renamed, transformed and checked against the schema
// aliases. Loaded tables are immutable for the rest of the run.
package source
