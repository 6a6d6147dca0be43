// Package match provides text normalization, string similarity scoring and
// the tiered key matcher used by enrichment.
//
// Key functions:
//   - Normalize: applies normalization steps in caller order
//   - Levenshtein: computes edit distance between strings
//   - Score: the ratio family of scorers on a 0-100 scale
//   - NewMatcher: exact, normalized and blocked fuzzy lookup against a dimension key
package match
