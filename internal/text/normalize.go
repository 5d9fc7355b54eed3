package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanCell flattens a raw cell value: newline runs become one space, control
// characters are dropped and the result is trimmed.
func CleanCell(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	inBreak := false
	for _, r := range s {
		if r == '\n' || r == '\r' {
			if !inBreak {
				b.WriteByte(' ')
				inBreak = true
			}
			continue
		}
		inBreak = false
		if isControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// isControl covers \x00-\x08, \x0b, \x0c, \x0e-\x1f and \x7f-\x9f. Tab is kept.
func isControl(r rune) bool {
	switch {
	case r <= 0x08:
		return true
	case r == 0x0b || r == 0x0c:
		return true
	case r >= 0x0e && r <= 0x1f:
		return true
	case r >= 0x7f && r <= 0x9f:
		return true
	}
	return false
}

// NormalizeKey folds a heading or header cell for fuzzy comparison: NFKC, lower case,
// punctuation removed, whitespace collapsed.
func NormalizeKey(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Words splits a normalized key into words.
func Words(key string) []string { return strings.Fields(key) }
