package config

import (
	"sheet-compiler/internal/match"
	"sheet-compiler/internal/table"
)

// Config is the decoded pipeline configuration.
type Config struct {
	Version  string   `mapstructure:"version"`
	Timezone string   `mapstructure:"timezone"`
	Output   Output   `mapstructure:"output"`
	Schema   Schema   `mapstructure:"schema"`
	Sources  []Source `mapstructure:"sources"  validate:"dive"`
	Compile  Compile  `mapstructure:"compile"`
	Compare  Compare  `mapstructure:"compare"`
	Export   Export   `mapstructure:"export"`

	// BaseDir is the directory of the entry file; relative paths resolve
	// against it.
	BaseDir string `mapstructure:"-"`
}

// Output holds run-wide output settings.
type Output struct {
	Dir            string `mapstructure:"dir"`
	CompareReports *bool  `mapstructure:"compare_reports"`
}

// Schema holds the column aliases enforced on every loaded table.
type Schema struct {
	Aliases map[string]table.Alias `mapstructure:"aliases" validate:"dive"`
}

// Source declares one adapter producing a table.
type Source struct {
	ID         string            `mapstructure:"id"         validate:"required"`
	Type       string            `mapstructure:"type"       validate:"required,oneof=csv xlsx sqlite inline"`
	Path       string            `mapstructure:"path"       validate:"required_unless=Type inline"`
	Sheet      string            `mapstructure:"sheet"`
	Table      string            `mapstructure:"table"`
	Query      string            `mapstructure:"query"`
	Delimiter  string            `mapstructure:"delimiter"  validate:"omitempty,len=1"`
	Rename     map[string]string `mapstructure:"rename"`
	Transforms map[string][]any  `mapstructure:"transforms"`
	Columns    []string          `mapstructure:"columns"`
	Rows       [][]any           `mapstructure:"rows"`
}

// Compile lists the targets, compiled in declaration order.
type Compile struct {
	Targets []CompileTarget `mapstructure:"targets" validate:"dive"`
}

// CompileTarget declares one compiled table.
type CompileTarget struct {
	Name       string               `mapstructure:"name"        validate:"required"`
	Key        []string             `mapstructure:"key"         validate:"required,min=1,dive,required"`
	Inputs     []string             `mapstructure:"inputs"      validate:"required,min=1,dive,required"`
	PreFilter  map[string]any       `mapstructure:"pre_filter"`
	MergeRules map[string]MergeRule `mapstructure:"merge_rules" validate:"dive"`
	Enrich     []EnrichStep         `mapstructure:"enrich"      validate:"dive"`
	Derive     []Derived            `mapstructure:"derive"      validate:"dive"`
	PostFilter any                  `mapstructure:"post_filter"`
}

// Merge rule strategies.
const (
	FirstNonNull    = "first_non_null"
	PreferSource    = "prefer_source"
	PreferEnumOrder = "prefer_enum_order"
)

// MergeRule resolves one field across merged inputs. A bare string in the
// document decodes to a rule with only Strategy set.
type MergeRule struct {
	Strategy     string   `mapstructure:"strategy"      validate:"required,oneof=first_non_null prefer_source prefer_enum_order"`
	Priority     []string `mapstructure:"priority"`
	PreferSource string   `mapstructure:"prefer_source" validate:"required_if=Strategy prefer_source"`
	Order        []any    `mapstructure:"order"         validate:"required_if=Strategy prefer_enum_order"`
}

// Enrich join kinds and miss policies.
const (
	HowLeft   = "left"
	HowInner  = "inner"
	LeaveNull = "leave_null"
	Fail      = "fail"
)

// EnrichStep joins columns from a dimension table.
type EnrichStep struct {
	From    string            `mapstructure:"from"     validate:"required"`
	LeftOn  string            `mapstructure:"left_on"  validate:"required"`
	RightOn string            `mapstructure:"right_on" validate:"required"`
	Add     map[string]string `mapstructure:"add"      validate:"required,min=1"`
	How     string            `mapstructure:"how"      validate:"omitempty,oneof=left inner"`
	Match   MatchSpec         `mapstructure:"match"`
}

// MatchSpec configures key matching for an enrich step.
type MatchSpec struct {
	Strategy  []string  `mapstructure:"strategy"  validate:"dive,oneof=exact normalized fuzzy"`
	Normalize []string  `mapstructure:"normalize"`
	Fuzzy     FuzzySpec `mapstructure:"fuzzy"`
	Audit     bool      `mapstructure:"audit"`
	OnMiss    string    `mapstructure:"on_miss"   validate:"omitempty,oneof=leave_null fail"`
}

// FuzzySpec tunes the fuzzy tier.
type FuzzySpec struct {
	Scorer    string  `mapstructure:"scorer"`
	Threshold float64 `mapstructure:"threshold" validate:"gte=0,lte=100"`
	TopK      int     `mapstructure:"top_k"     validate:"gte=0"`
	Block     string  `mapstructure:"block"`
}

// Options converts the spec into matcher options with defaults applied.
func (m MatchSpec) Options() match.Options {
	return match.Options{
		Strategy:  m.Strategy,
		Normalize: m.Normalize,
		Scorer:    m.Fuzzy.Scorer,
		Threshold: m.Fuzzy.Threshold,
		TopK:      m.Fuzzy.TopK,
		Block:     m.Fuzzy.Block,
	}.WithDefaults()
}

// HowOrDefault returns the join kind, left when unset.
func (e EnrichStep) HowOrDefault() string {
	if e.How == "" {
		return HowLeft
	}

	return e.How
}

// OnMissOrDefault returns the miss policy, leave_null when unset.
func (m MatchSpec) OnMissOrDefault() string {
	if m.OnMiss == "" {
		return LeaveNull
	}

	return m.OnMiss
}

// Derived is a computed column.
type Derived struct {
	Name string `mapstructure:"name" validate:"required"`
	Expr any    `mapstructure:"expr" validate:"required"`
}

// Compare lists the diffs to run after compilation.
type Compare struct {
	Pairs []ComparePair `mapstructure:"pairs" validate:"dive"`
}

// ComparePair diffs two tables on a key.
type ComparePair struct {
	Name  string   `mapstructure:"name"`
	Left  string   `mapstructure:"left"  validate:"required"`
	Right string   `mapstructure:"right" validate:"required"`
	Key   []string `mapstructure:"key"   validate:"required,min=1"`
}

// DisplayName returns the pair name, or left_vs_right when unnamed.
func (p ComparePair) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}

	return p.Left + "_vs_" + p.Right
}

// Export lists the workbooks to write.
type Export struct {
	Workbooks []Workbook `mapstructure:"workbooks" validate:"dive"`
}

// Workbook is one output spreadsheet.
type Workbook struct {
	SaveName string  `mapstructure:"save_name" validate:"required"`
	Sheets   []Sheet `mapstructure:"sheets"    validate:"required,min=1,dive"`
}

// Sheet is one worksheet built from a table.
type Sheet struct {
	Name    string     `mapstructure:"name"    validate:"required,max=31"`
	From    string     `mapstructure:"from"    validate:"required"`
	Filter  any        `mapstructure:"filter"`
	Columns ColumnList `mapstructure:"columns" validate:"dive"`
}

// ColumnList is the ordered output column list of a sheet. The object form
// {header: {alias, transforms}} decodes with headers sorted.
type ColumnList []ExportColumn

// ExportColumn builds one output column from a source alias or an expression.
type ExportColumn struct {
	Header     string `mapstructure:"header"     validate:"required"`
	Alias      string `mapstructure:"alias"      validate:"required_without=Expr"`
	Transforms []any  `mapstructure:"transforms"`
	Expr       any    `mapstructure:"expr"`
}

// CompareReportsEnabled reports whether compare workbooks are written;
// they are unless output.compare_reports is false.
func (o Output) CompareReportsEnabled() bool {
	return o.CompareReports == nil || *o.CompareReports
}
