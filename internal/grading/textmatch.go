package grading

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFD-decompose, drop combining marks, recompose. "Lạt" -> "Lat".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalizes free-text answers for comparison: trim, lower-case,
// strip diacritics. Applied to both accepted answers and submissions so
// the match is symmetric.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	// U+0111 is a standalone letter with no mark decomposition.
	s = strings.ReplaceAll(s, "đ", "d")
	return s
}
