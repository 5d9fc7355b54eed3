package table

import (
	"unicode"
	"unicode/utf8"

	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

// Signal names the header-row pattern that marked a table as corrupted. Each one is a
// symptom of a word split across neighbouring cells during extraction.
type Signal string

const (
	SignalNone           Signal = ""
	SignalLongFirstCell  Signal = "long_first_cell"
	SignalSplitWord      Signal = "split_word"
	SignalIsolatedLetter Signal = "isolated_letter"
)

const maxFirstHeaderChars = 25

// Diagnose inspects the cleaned header row and returns the first signal that fires.
func Diagnose(rows [][]models.Cell) (Signal, bool) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return SignalNone, false
	}
	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = text.CleanCell(c.String())
	}

	if utf8.RuneCountInString(header[0]) > maxFirstHeaderChars {
		return SignalLongFirstCell, true
	}
	for i := 0; i+1 < len(header); i++ {
		if isWordFragment(header[i]) && startsLower(header[i+1]) {
			return SignalSplitWord, true
		}
	}
	for _, cell := range header {
		if hasIsolatedLetter(cell) {
			return SignalIsolatedLetter, true
		}
	}
	return SignalNone, false
}

func IsCorrupted(rows [][]models.Cell) bool {
	_, corrupted := Diagnose(rows)
	return corrupted
}

// isWordFragment: 1 to 3 characters, the last one a letter.
func isWordFragment(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 1 || n > 3 {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsLetter(last)
}

func startsLower(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(first)
}

// hasIsolatedLetter matches " X" at the end or "X " at the start of a cell.
func hasIsolatedLetter(s string) bool {
	r := []rune(s)
	n := len(r)
	if n >= 2 && r[n-2] == ' ' && isASCIILetter(r[n-1]) {
		return true
	}
	return n >= 2 && isASCIILetter(r[0]) && r[1] == ' '
}

func isASCIILetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
