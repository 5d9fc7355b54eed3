package vision

import (
	"regexp"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// ParseTables reads the markdown tables out of a vision response. Tables are
// separated by blank lines; chunks without pipe rows are ignored.
func ParseTables(response string) [][][]string {
	response = strings.ReplaceAll(response, "\r\n", "\n")
	var out [][][]string
	for _, chunk := range blankLineRe.Split(strings.TrimSpace(response), -1) {
		if !strings.Contains(chunk, "|") {
			continue
		}
		var rows [][]string
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "|") || isSeparatorRow(line) {
				continue
			}
			rows = append(rows, table.ParseRow(line))
		}
		if len(rows) > 0 {
			out = append(out, rows)
		}
	}
	return out
}

// Rows made only of spaces, dashes and colons are skipped, including empty ones.
func isSeparatorRow(line string) bool {
	return strings.Trim(strings.ReplaceAll(line, "|", ""), " \t-:") == ""
}

const minMatchWordLen = 3

// Match picks the unused candidate whose second header cell shares the most
// words of three or more characters with the corrupted table's second header
// cell. The first candidate wins a tie; a score of zero never matches.
func Match(corrupted [][]models.Cell, candidates [][][]string, used map[int]bool) (int, bool) {
	key := ""
	if len(corrupted) > 0 && len(corrupted[0]) >= 2 {
		key = text.NormalizeKey(text.CleanCell(corrupted[0][1].String()))
	}
	want := longWords(key)

	best, bestScore := -1, 0
	for i, cand := range candidates {
		if used[i] || len(cand) == 0 {
			continue
		}
		candKey := ""
		if len(cand[0]) >= 2 {
			candKey = text.NormalizeKey(text.CleanCell(cand[0][1]))
		}
		score := 0
		for w := range longWords(candKey) {
			if want[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}

func longWords(key string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range text.Words(key) {
		if len([]rune(w)) >= minMatchWordLen {
			set[w] = true
		}
	}
	return set
}
