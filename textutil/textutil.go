package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// spaceRun also covers U+00A0: RE2's \s is ASCII-only, and catalog headings
// routinely carry &nbsp;.
var spaceRun = regexp.MustCompile(`[\s\x{00A0}]+`)

// CollapseSpace trims a string and collapses every whitespace run into a
// single space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// FoldLabel normalizes a heading or label for comparison: lowercase,
// diacritics stripped, whitespace collapsed. Catalog page templates vary in
// casing and embedded non-breaking spaces, so label matching always goes
// through this.
func FoldLabel(s string) string {
	s = strings.ToLower(s)
	s = transliterate(s)
	return CollapseSpace(s)
}

// transliterate converts unicode characters to ASCII equivalents
func transliterate(s string) string {
	// Normalize unicode characters to NFD form (decomposed)
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// isMn checks if a rune is a nonspacing mark (accents, diacritics)
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
