// Package expr evaluates the JSON expression language used for derived
// columns and computed export columns.
//
// A node is a literal (broadcast to every row), {"col": name},
// {"op": name, "args": [...]} or the equivalent array form [name, args...].
// Operators are looked up in an explicit table populated with the builtins
// and extended with Register.
package expr
