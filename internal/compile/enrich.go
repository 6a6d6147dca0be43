package compile

import (
	"fmt"
	"maps"
	"slices"

	"sheet-compiler/internal/common"
	"sheet-compiler/internal/config"
	"sheet-compiler/internal/match"
	"sheet-compiler/internal/table"
)

// Audit column suffixes, appended to the left_on column name.
const (
	auditMatchTo     = "_match_to"
	auditMatchScore  = "_match_score"
	auditMatchMethod = "_match_method"
)

const maxMissSamples = 5

// lookup is the per-row outcome of an enrich join: the matched dimension
// row (-1 for a miss) with its score and method.
type lookup struct {
	rows    []int
	matched []table.Value
	scores  []table.Value
	methods []table.Value
}

// enrich joins step.Add columns of the dimension table onto t.
func (e *Engine) enrich(name string, t *table.Table, step config.EnrichStep) (*table.Table, error) {
	dim, ok := e.Lookup(step.From)
	if !ok {
		return nil, fmt.Errorf("target %q enrich from %q: %w", name, step.From, ErrUnknownTable)
	}

	left, ok := t.Column(step.LeftOn)
	if !ok {
		return nil, fmt.Errorf("target %q enrich: no left_on column %q", name, step.LeftOn)
	}

	dim, err := dedupe(dim, step.RightOn)
	if err != nil {
		return nil, fmt.Errorf("target %q enrich from %q: %w", name, step.From, err)
	}

	right, _ := dim.Column(step.RightOn)

	var res *lookup

	opts := step.Match.Options()
	if opts.IsExactOnly() {
		res = hashJoin(left, right)
	} else {
		res, err = fuzzyJoin(left, right, opts)
		if err != nil {
			return nil, fmt.Errorf("target %q enrich from %q: %w", name, step.From, err)
		}
	}

	out := t

	for _, to := range slices.Sorted(maps.Keys(step.Add)) {
		src, ok := dim.Column(step.Add[to])
		if !ok {
			return nil, fmt.Errorf("target %q enrich: %q has no column %q", name, step.From, step.Add[to])
		}

		if out, err = out.WithColumn(src.Take(res.rows).Renamed(to)); err != nil {
			return nil, err
		}
	}

	if step.Match.Audit {
		if out, err = withAudit(out, step.LeftOn, res); err != nil {
			return nil, err
		}
	}

	if step.Match.OnMissOrDefault() == config.Fail {
		if err := checkMisses(name, out, left, step); err != nil {
			return nil, err
		}
	}

	if step.HowOrDefault() == config.HowInner {
		keep := make([]bool, len(res.rows))
		for i, r := range res.rows {
			keep[i] = r >= 0
		}

		out = out.Filter(keep)
	}

	return out, nil
}

// dedupe keeps the first row for every non-null value of column on.
func dedupe(t *table.Table, on string) (*table.Table, error) {
	col, ok := t.Column(on)
	if !ok {
		return nil, fmt.Errorf("no right_on column %q", on)
	}

	seen := make(map[string]bool, col.Len())
	keep := make([]bool, col.Len())

	for i, v := range col.Values {
		if v.IsNull() || seen[v.Key()] {
			continue
		}

		seen[v.Key()] = true
		keep[i] = true
	}

	return t.Filter(keep), nil
}

// hashJoin resolves left values by exact key equality.
func hashJoin(left, right *table.Column) *lookup {
	index := make(map[string]int, right.Len())
	for i, v := range right.Values {
		index[v.Key()] = i
	}

	res := newLookup(left.Len())

	for i, v := range left.Values {
		r, ok := index[v.Key()]
		if v.IsNull() || !ok {
			res.miss(i)
			continue
		}

		res.hit(i, r, right.Values[r], table.Float(100), match.MethodExact)
	}

	return res
}

// fuzzyJoin resolves left values through the matcher cascade.
func fuzzyJoin(left, right *table.Column, opts match.Options) (*lookup, error) {
	m, err := match.NewMatcher(right.Values, opts)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, right.Len())
	for i, v := range right.Values {
		index[v.Key()] = i
	}

	res := newLookup(left.Len())

	for i, v := range left.Values {
		r := m.Lookup(v)
		if r.Method == match.MethodMiss {
			res.miss(i)
			continue
		}

		res.hit(i, index[r.Value.Key()], r.Value, r.Score, r.Method)
	}

	return res, nil
}

func newLookup(n int) *lookup {
	return &lookup{
		rows:    make([]int, n),
		matched: make([]table.Value, n),
		scores:  make([]table.Value, n),
		methods: make([]table.Value, n),
	}
}

func (l *lookup) hit(i, row int, v, score table.Value, m match.Method) {
	l.rows[i] = row
	l.matched[i] = v
	l.scores[i] = score
	l.methods[i] = table.String(string(m))
}

func (l *lookup) miss(i int) {
	l.rows[i] = -1
	l.methods[i] = table.String(string(match.MethodMiss))
}

func withAudit(t *table.Table, leftOn string, res *lookup) (*table.Table, error) {
	cols := []struct {
		name   string
		values []table.Value
	}{
		{leftOn + auditMatchTo, res.matched},
		{leftOn + auditMatchScore, res.scores},
		{leftOn + auditMatchMethod, res.methods},
	}

	out := t

	for _, c := range cols {
		col, err := table.NewColumn(c.name, c.values)
		if err != nil {
			return nil, err
		}

		if out, err = out.WithColumn(col); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// checkMisses fails when a row with a non-null left_on value has a null in
// any added column.
func checkMisses(name string, t *table.Table, left *table.Column, step config.EnrichStep) error {
	added := make([]*table.Column, 0, len(step.Add))
	for _, to := range slices.Sorted(maps.Keys(step.Add)) {
		c, _ := t.Column(to)
		added = append(added, c)
	}

	merr := &MissError{Target: name, From: step.From, LeftOn: step.LeftOn}

	for i, v := range left.Values {
		if v.IsNull() {
			continue
		}

		if !slices.ContainsFunc(added, func(c *table.Column) bool { return c.Values[i].IsNull() }) {
			continue
		}

		merr.Misses++
		merr.Samples = append(merr.Samples, MissSample{Row: i, Value: v})
	}

	if merr.Misses == 0 {
		return nil
	}

	merr.Samples = common.Head(merr.Samples, maxMissSamples)

	return merr
}
