// Package compile builds named targets from loaded tables.
//
// A target merges its inputs on a key, resolves conflicting fields with
// merge rules, enriches rows from dimension tables, computes derived
// columns and filters the result. Compiled targets are kept in the
// engine's registry, where later targets can read them.
package compile
