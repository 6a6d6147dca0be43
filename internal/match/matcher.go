package match

import (
	"fmt"
	"slices"

	"sheet-compiler/internal/table"
)

// Method labels how a left value was resolved.
type Method string

const (
	MethodExact      Method = "exact"
	MethodNormalized Method = "normalized"
	MethodFuzzy      Method = "fuzzy"
	MethodMiss       Method = "miss"
)

// Strategy tier names accepted by Options.Strategy.
const (
	StrategyExact      = "exact"
	StrategyNormalized = "normalized"
	StrategyFuzzy      = "fuzzy"
)

// Blocking function names accepted by Options.Block.
const (
	BlockNone      = "none"
	BlockFirstChar = "first_char"
	BlockFirst2    = "first2"
)

// Matcher defaults.
const (
	DefaultThreshold = 90
	DefaultTopK      = 5
)

// Options configures a Matcher. Zero fields take the defaults.
type Options struct {
	Strategy  []string
	Normalize []string
	Scorer    string
	Threshold float64
	TopK      int
	Block     string
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if len(o.Strategy) == 0 {
		o.Strategy = []string{StrategyExact}
	}

	if o.Scorer == "" {
		o.Scorer = ScorerTokenSortRatio
	}

	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}

	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}

	if o.Block == "" {
		o.Block = BlockNone
	}

	return o
}

// Validate reports unknown strategy, scorer or blocking names.
func (o Options) Validate() error {
	for _, s := range o.Strategy {
		switch s {
		case StrategyExact, StrategyNormalized, StrategyFuzzy:
		default:
			return fmt.Errorf("unknown match strategy %q", s)
		}
	}

	if o.Scorer != "" {
		if _, err := LookupScorer(o.Scorer); err != nil {
			return err
		}
	}

	switch o.Block {
	case "", BlockNone, BlockFirstChar, BlockFirst2:
	default:
		return fmt.Errorf("unknown blocking function %q", o.Block)
	}

	if o.Threshold < 0 || o.Threshold > 100 {
		return fmt.Errorf("threshold %v outside 0-100", o.Threshold)
	}

	if o.TopK < 0 {
		return fmt.Errorf("top_k %d is negative", o.TopK)
	}

	return nil
}

// IsExactOnly reports whether the strategy list is exactly ["exact"].
func (o Options) IsExactOnly() bool {
	return len(o.Strategy) == 0 || slices.Equal(o.Strategy, []string{StrategyExact})
}

// Result holds one outcome per left value.
type Result struct {
	Value  table.Value
	Score  table.Value
	Method Method
}

// Matcher resolves left values against a fixed set of right-side keys.
type Matcher struct {
	opts  Options
	score ScoreFunc

	exact      map[string]table.Value
	normalized map[string]table.Value
	keys       []Candidate
	buckets    map[string][]int

	useNormalized bool
	useFuzzy      bool
}

// NewMatcher indexes the right-side keys. Null keys are ignored.
func NewMatcher(right []table.Value, opts Options) (*Matcher, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	score, err := LookupScorer(opts.Scorer)
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		opts:          opts,
		score:         score,
		exact:         make(map[string]table.Value, len(right)),
		normalized:    make(map[string]table.Value, len(right)),
		buckets:       make(map[string][]int),
		useNormalized: slices.Contains(opts.Strategy, StrategyNormalized) || slices.Contains(opts.Strategy, StrategyFuzzy),
		useFuzzy:      slices.Contains(opts.Strategy, StrategyFuzzy),
	}

	for _, v := range right {
		if v.IsNull() {
			continue
		}

		if _, ok := m.exact[v.Key()]; !ok {
			m.exact[v.Key()] = v
		}

		n := Normalize(v.String(), opts.Normalize)
		if _, ok := m.normalized[n]; ok {
			continue
		}

		m.normalized[n] = v

		idx := len(m.keys)
		m.keys = append(m.keys, Candidate{Index: idx, Value: v, Normalized: n})

		bk := m.blockKey(n)
		m.buckets[bk] = append(m.buckets[bk], idx)
	}

	return m, nil
}

// Lookup resolves one left value using exact, then normalized, then
// blocked fuzzy matching.
func (m *Matcher) Lookup(v table.Value) Result {
	if v.IsNull() {
		return Result{Method: MethodMiss}
	}

	if hit, ok := m.exact[v.Key()]; ok {
		return Result{Value: hit, Score: table.Float(100), Method: MethodExact}
	}

	if !m.useNormalized {
		return Result{Method: MethodMiss}
	}

	n := Normalize(v.String(), m.opts.Normalize)

	if hit, ok := m.normalized[n]; ok {
		return Result{Value: hit, Score: table.Float(100), Method: MethodNormalized}
	}

	if !m.useFuzzy {
		return Result{Method: MethodMiss}
	}

	best := m.Candidates(n).AboveThreshold(m.opts.Threshold).Best()
	if best == nil {
		return Result{Method: MethodMiss}
	}

	return Result{Value: best.Value, Score: table.Float(best.Score), Method: MethodFuzzy}
}

// Candidates scores the keys in the bucket of the normalized string n and
// returns the best top_k of them.
func (m *Matcher) Candidates(n string) CandidateList {
	idx := m.buckets[m.blockKey(n)]
	list := make(CandidateList, 0, len(idx))

	for _, i := range idx {
		c := m.keys[i]
		c.Score = m.score(n, c.Normalized)
		list = append(list, c)
	}

	return list.Rank().Top(m.opts.TopK)
}

// MatchAll resolves every left value and returns three row-aligned columns:
// matched right value, score and method.
func (m *Matcher) MatchAll(left []table.Value) (matched, scores, methods []table.Value) {
	matched = make([]table.Value, len(left))
	scores = make([]table.Value, len(left))
	methods = make([]table.Value, len(left))

	for i, v := range left {
		r := m.Lookup(v)
		matched[i] = r.Value
		scores[i] = r.Score
		methods[i] = table.String(string(r.Method))
	}

	return matched, scores, methods
}

func (m *Matcher) blockKey(n string) string {
	var width int

	switch m.opts.Block {
	case BlockFirstChar:
		width = 1
	case BlockFirst2:
		width = 2
	default:
		return ""
	}

	r := []rune(n)
	if len(r) > width {
		r = r[:width]
	}

	return string(r)
}
