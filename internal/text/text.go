package text

import (
	"strings"
	"unicode"

	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
)

func IsBullet[T rune | string](v T) bool {
	bulletRunes := map[rune]bool{
		'•': true, '●': true, '○': true, '◦': true, '◯': true, '▪': true, '▫': true, '■': true, '□': true,
		'►': true, '▶': true, '▷': true, '➢': true, '➤': true, '★': true, '☆': true, '✦': true, '✧': true,
		'⁃': true, '‣': true, '⦿': true, '⁌': true, '⁍': true, '◗': true, '-': true, '–': true, '—': true,
		'*': true, '+': true, 0xF0B7: true, 0xF076: true, 0xF0B6: true,
	}
	bulletStrings := map[string]bool{
		"`o`": true,
	}

	switch any(v).(type) {
	case rune:
		return bulletRunes[any(v).(rune)]
	case string:
		return bulletStrings[any(v).(string)]
	}
	return false
}

// Runes that disqualify a line from being a section heading when they lead it.
const headingBulletRunes = "-*•◗"

const maxHeadingChars = 80

// LooksLikeHeading reports whether a line of page text reads like a section heading:
// short, not a list item, not ending in sentence punctuation, and containing a letter.
func LooksLikeHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || CountUnicodeChars(line) > maxHeadingChars {
		return false
	}
	if first := []rune(line)[0]; strings.ContainsRune(headingBulletRunes, first) {
		return false
	}
	if IsNumberedStep(line) {
		return false
	}
	if EndsWithPunctuation(line) {
		return false
	}
	return hasASCIILetter(line)
}

// IsNumberedStep matches lines that open with digits followed by '.' or ')' and whitespace.
func IsNumberedStep(line string) bool {
	i := 0
	for i < len(line) && isDigit(line[i]) {
		i++
	}
	if i == 0 || i+1 >= len(line) || (line[i] != '.' && line[i] != ')') {
		return false
	}
	return unicode.IsSpace(rune(line[i+1]))
}

// NumberedItem splits "<digits>. text" or "<digits>) text" and returns the text after
// the prefix. Exactly one space must follow the marker.
func NumberedItem(line string) (string, bool) {
	i := 0
	for i < len(line) && isDigit(line[i]) {
		i++
	}
	if i == 0 || i+1 >= len(line) || (line[i] != '.' && line[i] != ')') || line[i+1] != ' ' {
		return "", false
	}
	return line[i+2:], true
}

// BulletItem splits "- text" or "* text".
func BulletItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return line[2:], true
	}
	return "", false
}

func HasVisibleContent(text string) bool {
	for _, r := range text {
		if r >= 33 && r <= 126 {
			return true
		}
	}
	return false
}

func NormalizeText(input string) string {
	if input == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(input))
	lastSpace, lastWasNewline := true, false
	for _, c := range input {
		if c == '\r' {
			continue
		}
		if c == '\n' {
			if b.Len() > 0 {
				if s := b.String(); s[len(s)-1] == ' ' {
					b.Reset()
					b.WriteString(s[:len(s)-1])
				}
			}
			if !lastWasNewline {
				b.WriteByte('\n')
			}
			lastSpace, lastWasNewline = true, true
			continue
		}
		lastWasNewline = false
		if c == '\t' || c == '\f' || c == '\v' {
			c = ' '
		}
		if unicode.IsSpace(c) {
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(c)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " \n")
}

func EndsWithPunctuation(text string) bool {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if len(text) == 0 {
		return false
	}
	last := rune(text[len(text)-1])
	return last == '.' || last == ',' || last == ':' || last == ';' || last == '?' || last == '!'
}

func CountUnicodeChars(text string) int { return len([]rune(text)) }
func isDigit(b byte) bool               { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool               { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func hasASCIILetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if isAlpha(s[i]) {
			return true
		}
	}
	return false
}

// NormalizeBulletPrefix rewrites a leading glyph bullet such as "• " or "◗ " to "- ".
func NormalizeBulletPrefix(line string) string {
	r := []rune(line)
	if len(r) < 2 || r[0] < 0x80 || !IsBullet(r[0]) || !unicode.IsSpace(r[1]) {
		return line
	}
	return "- " + strings.TrimLeftFunc(string(r[1:]), unicode.IsSpace)
}

func IsLonePageNumber(text string) bool {
	text = strings.TrimLeft(text, " \t")
	digitCount := 0
	for digitCount < len(text) && isDigit(text[digitCount]) {
		digitCount++
	}
	text = strings.TrimRight(text[digitCount:], " \t")
	return digitCount > 0 && digitCount <= 4 && text == ""
}

// IsInMarginArea reports whether a box starts in the top band or ends in the bottom
// band of the page, each band being thresholdPercent of the page height.
func IsInMarginArea(box, page geometry.Rect, thresholdPercent float64) bool {
	threshold := page.Height() * thresholdPercent
	return box.Y0 < page.Y0+threshold || box.Y1 > page.Y1-threshold
}
