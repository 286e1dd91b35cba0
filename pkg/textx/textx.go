// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
	"unicode"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// isSpace matches the JavaScript \s class: Unicode white space plus the BOM.
func isSpace(r rune) bool { return unicode.IsSpace(r) || r == '\uFEFF' }

// Normalize collapses every whitespace run to a single space, trims both ends
// and truncates to at most maxChars characters. A cut that lands right after a
// space drops that space so Normalize(Normalize(s, n), n) == Normalize(s, n).
func Normalize(s string, maxChars int) string {
	if maxChars <= 0 || s == "" {
		return ""
	}
	collapsed := strings.Join(strings.FieldsFunc(s, isSpace), " ")
	n := 0
	for i := range collapsed {
		if n == maxChars {
			return strings.TrimRight(collapsed[:i], " ")
		}
		n++
	}
	return collapsed
}

// NormalizePtr is Normalize for optional input; nil is treated as "".
func NormalizePtr(s *string, maxChars int) string {
	if s == nil {
		return ""
	}
	return Normalize(*s, maxChars)
}

// CharLen counts characters (runes), the unit Normalize truncates in.
func CharLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
