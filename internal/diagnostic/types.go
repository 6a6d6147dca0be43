package diagnostic

import (
	"fmt"
	"strings"
)

// Diagnostics holds every problem found during one validation pass.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity Severity
	// Code is a stable identifier for this kind of problem.
	Code string
	// Message is the human-readable description.
	Message string
	// Scope names the table or config section (if any).
	Scope string
	// Field names the column or config field (if any).
	Field string
	// Suggestions are potential fixes or alternatives.
	Suggestions []string
}

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Codes shared by the table and config validators.
const (
	CodeCast         = "cast"
	CodeNotNull      = "not_null"
	CodeEnum         = "enum"
	CodeIdentifier   = "identifier"
	CodeMixedKinds   = "mixed_kinds"
	CodeUnknownTable = "unknown_table"
	CodeForwardRef   = "forward_ref"
	CodeInvalid      = "invalid"
)

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, scope, field string) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		Scope:    scope,
		Field:    field,
	})
}

// AddErrorf adds an error diagnostic with a formatted message.
func (d *Diagnostics) AddErrorf(code, scope, field, format string, args ...any) {
	d.AddError(code, fmt.Sprintf(format, args...), scope, field)
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, scope, field string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  message,
		Scope:    scope,
		Field:    field,
	})
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
}

// Err returns the consolidated error, or nil when there are no errors.
func (d *Diagnostics) Err() error {
	if !d.HasErrors() {
		return nil
	}

	return &Error{Problems: append([]Diagnostic(nil), d.Errors...)}
}

// Error is a consolidated multi-problem failure.
type Error struct {
	Problems []Diagnostic
}

func (e *Error) Error() string {
	if len(e.Problems) == 1 {
		return e.Problems[0].String()
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%d problems:", len(e.Problems))

	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.String())
	}

	return b.String()
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Scope != "" {
		prefix = append(prefix, "["+d.Scope+"]")
	}

	if d.Field != "" {
		prefix = append(prefix, d.Field)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(d.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(d.Suggestions, ", ") + "?)"
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
