package compile

import (
	"errors"
	"fmt"
	"strings"

	"sheet-compiler/internal/table"
)

var (
	// ErrMergeRule is wrapped by merge rule failures.
	ErrMergeRule = errors.New("invalid merge rule")
	// ErrUnknownTable is wrapped when an input or enrich source is not
	// visible to the target being compiled.
	ErrUnknownTable = errors.New("unknown table")
)

// MissSample is one row whose enrich lookup found nothing.
type MissSample struct {
	Row   int
	Value table.Value
}

// MissError reports rows left unresolved by an enrich step with on_miss set
// to fail.
type MissError struct {
	Target  string
	From    string
	LeftOn  string
	Misses  int
	Samples []MissSample
}

func (e *MissError) Error() string {
	samples := make([]string, len(e.Samples))
	for i, s := range e.Samples {
		samples[i] = fmt.Sprintf("row %d %q", s.Row, s.Value.String())
	}

	return fmt.Sprintf("target %q: %d rows of %q found no match in %q (%s)",
		e.Target, e.Misses, e.LeftOn, e.From, strings.Join(samples, ", "))
}
