package table

import (
	"regexp"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

var separatorRe = regexp.MustCompile(`^[\s\-|:]+$`)

// CleanRows cleans every cell and drops rows that end up fully empty. Missing
// cells become "". The result is nil when nothing is left.
func CleanRows(rows [][]models.Cell) [][]string {
	var out [][]string
	for _, row := range rows {
		cleaned := make([]string, len(row))
		keep := false
		for i, c := range row {
			if c.IsNone() {
				continue
			}
			cleaned[i] = text.CleanCell(c.String())
			if cleaned[i] != "" {
				keep = true
			}
		}
		if keep {
			out = append(out, cleaned)
		}
	}
	return out
}

// IsEmpty reports whether a table has no visible text once cleaned.
func IsEmpty(rows [][]models.Cell) bool { return len(CleanRows(rows)) == 0 }

// FormatRows writes rows as a pipe table with a dash separator after the first
// row. Short rows are padded to the widest row.
func FormatRows(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "|", "/")
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// IsSeparator reports whether a pipe line is a header separator such as
// "| --- | :--: |".
func IsSeparator(line string) bool {
	s := strings.Trim(strings.TrimSpace(line), "|")
	return s != "" && separatorRe.MatchString(s) && strings.Contains(s, "-")
}

// ParseRow splits "| a | b |" into trimmed cells.
func ParseRow(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseMarkdown turns pipe lines into rows, skipping separator rows and lines
// that do not start with a pipe.
func ParseMarkdown(lines []string) [][]string {
	var rows [][]string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || IsSeparator(line) {
			continue
		}
		rows = append(rows, ParseRow(line))
	}
	return rows
}

// SplitBlocks splits one contiguous run of pipe lines into separate tables. A
// separator that appears after at least two collected lines starts a new table
// whose header is the line just before it.
func SplitBlocks(lines []string) [][]string {
	var blocks [][]string
	var cur []string
	for _, line := range lines {
		if IsSeparator(line) && len(cur) >= 2 {
			header := cur[len(cur)-1]
			blocks = append(blocks, cur[:len(cur)-1])
			cur = []string{header}
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}
