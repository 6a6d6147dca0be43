package match

import (
	"sort"

	"sheet-compiler/internal/table"
)

// Candidate is a dimension key considered for one left value.
type Candidate struct {
	// Index is the position of the key among the de-duplicated right keys.
	Index int
	// Value is the original right-side value.
	Value table.Value
	// Normalized is the normalized right-side string that was scored.
	Normalized string
	// Score is the similarity on a 0-100 scale.
	Score float64
}

// CandidateList is a list of candidates with ranking functionality.
type CandidateList []Candidate

// Len implements sort.Interface.
func (c CandidateList) Len() int { return len(c) }

// Less orders by score descending, then by right-side position for determinism.
func (c CandidateList) Less(i, j int) bool {
	if c[i].Score != c[j].Score {
		return c[i].Score > c[j].Score
	}

	return c[i].Index < c[j].Index
}

// Swap implements sort.Interface.
func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Rank sorts the list in place and returns it.
func (c CandidateList) Rank() CandidateList {
	sort.Sort(c)
	return c
}

// Top returns the top n candidates. A non-positive n keeps every candidate.
func (c CandidateList) Top(n int) CandidateList {
	if n <= 0 || n >= len(c) {
		return c
	}

	return c[:n]
}

// Best returns the best candidate, or nil if no candidates.
func (c CandidateList) Best() *Candidate {
	if len(c) == 0 {
		return nil
	}

	return &c[0]
}

// AboveThreshold returns candidates scoring at least threshold.
func (c CandidateList) AboveThreshold(threshold float64) CandidateList {
	var result CandidateList

	for _, cand := range c {
		if cand.Score >= threshold {
			result = append(result, cand)
		}
	}

	return result
}
