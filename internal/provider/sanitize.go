package provider

import "strings"

// zeroWidthRunes are invisible characters stripped from model output before
// verification. They can hide content from the checks below.
var zeroWidthRunes = map[rune]bool{
	'\u200b': true, // zero width space
	'\u200c': true, // zero width non-joiner
	'\u200d': true, // zero width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // byte order mark
	'\u200e': true, // left-to-right mark
	'\u200f': true, // right-to-left mark
}

// Sanitize normalizes raw model output: strip zero-width characters,
// normalize line endings to LF, and trim surrounding whitespace.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if zeroWidthRunes[r] {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.ReplaceAll(b.String(), "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	return strings.TrimSpace(out)
}
