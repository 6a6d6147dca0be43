package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"sheet-compiler/internal/table"
)

// Normalization step names.
const (
	StepNFKC       = "nfkc"
	StepStrip      = "strip"
	StepLower      = "lower"
	StepCollapseWS = "collapse_ws"
	StepStripPunct = "strip_punct"
)

var steps = map[string]func(string) string{
	StepNFKC:       norm.NFKC.String,
	StepStrip:      strings.TrimSpace,
	StepLower:      strings.ToLower,
	StepCollapseWS: collapseWhitespace,
	StepStripPunct: stripPunct,
}

// Normalize applies the named steps to s in the given order.
// Unknown step names are skipped.
func Normalize(s string, names []string) string {
	for _, name := range names {
		if fn, ok := steps[name]; ok {
			s = fn(s)
		}
	}

	return s
}

// NormalizeValue normalizes the string form of v. Null stays null.
func NormalizeValue(v table.Value, names []string) table.Value {
	if v.IsNull() {
		return v
	}

	return table.String(Normalize(v.String(), names))
}

// collapseWhitespace replaces every run of whitespace with a single space.
// Leading and trailing runs are collapsed, not removed.
func collapseWhitespace(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	inRun := false

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inRun {
				b.WriteByte(' ')
			}

			inRun = true

			continue
		}

		inRun = false

		b.WriteRune(r)
	}

	return b.String()
}

// stripPunct drops every rune that is not a word character or whitespace.
func stripPunct(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
