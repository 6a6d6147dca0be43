// Package table provides the in-memory columnar model shared by every stage
// of the compiler: typed nullable values, single-kind columns and tables with
// positional row identity.
//
// # Nullability
//
// A missing cell is an explicit Null value. There is no float NaN sentinel:
// a NaN handed to Float becomes Null, and a column never mixes kinds. The only
// promotion performed when a column is assembled is integer to number.
//
// # Immutability
//
// Tables and columns are never written after construction. Every operation
// (Filter, Take, Select, Rename, WithColumn, Drop) returns a derived table, so
// derived tables may share column storage with their parent.
//
// # Schema aliases
//
// Enforce casts and validates a loaded table against the declared aliases
// (type, not_null, enum, identifier, date format) and reports every problem
// at once.
package table
