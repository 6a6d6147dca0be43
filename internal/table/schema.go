package table

import (
	"fmt"
	"strings"
	"time"

	"sheet-compiler/internal/common"
	"sheet-compiler/internal/diagnostic"
)

// maxSamples bounds the row numbers quoted per problem.
const maxSamples = 5

// Alias is a canonical column definition applied to every loaded table.
type Alias struct {
	Type       string    `mapstructure:"type"       validate:"required,oneof=string integer number date boolean"`
	Identifier bool      `mapstructure:"identifier"`
	NotNull    bool      `mapstructure:"not_null"`
	Enum       []any     `mapstructure:"enum"`
	Date       *DateSpec `mapstructure:"date"`
}

// DateSpec configures parsing of date columns.
type DateSpec struct {
	Format   string `mapstructure:"format"`
	Timezone string `mapstructure:"timezone"`
}

// Enforce casts every aliased column of t to its declared kind and checks
// not_null, enum and identifier uniqueness. Columns without an alias are
// kept as they are. All problems are reported together.
func Enforce(t *Table, aliases map[string]Alias) (*Table, error) {
	var diags diagnostic.Diagnostics

	out := t

	for _, col := range t.Columns() {
		alias, ok := aliases[col.Name]
		if !ok {
			continue
		}

		enforced, ok := enforceColumn(t.Name, col, alias, &diags)
		if !ok {
			continue
		}

		next, err := out.WithColumn(enforced)
		if err != nil {
			return nil, err
		}

		out = next
	}

	if err := diags.Err(); err != nil {
		return nil, fmt.Errorf("table %q failed validation: %w", t.Name, err)
	}

	return out, nil
}

func enforceColumn(scope string, col *Column, alias Alias, diags *diagnostic.Diagnostics) (*Column, bool) {
	kind, err := ParseKind(alias.Type)
	if err != nil {
		diags.AddError(diagnostic.CodeInvalid, err.Error(), scope, col.Name)
		return nil, false
	}

	format, loc := "", (*time.Location)(nil)

	if alias.Date != nil {
		format = alias.Date.Format

		if alias.Date.Timezone != "" {
			loc, err = time.LoadLocation(alias.Date.Timezone)
			if err != nil {
				diags.AddErrorf(diagnostic.CodeInvalid, scope, col.Name, "unknown timezone %q", alias.Date.Timezone)
				return nil, false
			}
		}
	}

	values := make([]Value, col.Len())

	var badCast []string

	for i, v := range col.Values {
		cv, err := v.Cast(kind, format, loc)
		if err != nil {
			badCast = append(badCast, fmt.Sprintf("row %d: %v", i, err))
			continue
		}

		values[i] = cv
	}

	if len(badCast) > 0 {
		diags.AddErrorf(diagnostic.CodeCast, scope, col.Name, "%d values cannot be cast to %s (%s)",
			len(badCast), kind, strings.Join(sample(badCast), "; "))

		return nil, false
	}

	out := &Column{Name: col.Name, Kind: kind, Values: values}

	if alias.NotNull {
		checkNotNull(scope, out, diags)
	}

	if len(alias.Enum) > 0 {
		checkEnum(scope, out, alias.Enum, diags)
	}

	if alias.Identifier {
		checkUnique(scope, out, diags)
	}

	return out, true
}

func checkNotNull(scope string, col *Column, diags *diagnostic.Diagnostics) {
	var rows []string

	for i, v := range col.Values {
		if v.IsNull() {
			rows = append(rows, fmt.Sprint(i))
		}
	}

	if len(rows) > 0 {
		diags.AddErrorf(diagnostic.CodeNotNull, scope, col.Name, "%d null values (rows %s)",
			len(rows), strings.Join(sample(rows), ", "))
	}
}

func checkEnum(scope string, col *Column, enum []any, diags *diagnostic.Diagnostics) {
	allowed := make(map[string]struct{}, len(enum))

	for _, e := range enum {
		v, err := CoerceLiteral(e, col.Kind)
		if err != nil {
			diags.AddErrorf(diagnostic.CodeInvalid, scope, col.Name, "bad enum member %v: %v", e, err)
			return
		}

		allowed[v.Key()] = struct{}{}
	}

	var bad []string

	for i, v := range col.Values {
		if v.IsNull() {
			continue
		}

		if _, ok := allowed[v.Key()]; !ok {
			bad = append(bad, fmt.Sprintf("row %d: %q", i, v.String()))
		}
	}

	if len(bad) > 0 {
		diags.AddErrorf(diagnostic.CodeEnum, scope, col.Name, "%d values outside enum (%s)",
			len(bad), strings.Join(sample(bad), "; "))
	}
}

func checkUnique(scope string, col *Column, diags *diagnostic.Diagnostics) {
	seen := make(map[string]int, col.Len())

	var dups []string

	for i, v := range col.Values {
		if v.IsNull() {
			continue
		}

		if first, ok := seen[v.Key()]; ok {
			dups = append(dups, fmt.Sprintf("%q at rows %d and %d", v.String(), first, i))
			continue
		}

		seen[v.Key()] = i
	}

	if len(dups) > 0 {
		diags.AddErrorf(diagnostic.CodeIdentifier, scope, col.Name, "%d duplicate identifiers (%s)",
			len(dups), strings.Join(sample(dups), "; "))
	}
}

func sample(items []string) []string { return common.Head(items, maxSamples) }
