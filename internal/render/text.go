package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Text renders blocks as plain text with ASCII grid tables. Column widths are
// measured in terminal cells.
type Text struct {
	w   *bufio.Writer
	err error
	counters
	started  bool
	prevList bool
}

func NewText(w io.Writer) *Text { return &Text{w: bufio.NewWriter(w)} }

func (t *Text) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

// gap separates blocks with a blank line, except between consecutive list items.
func (t *Text) gap(list bool) {
	if t.started && !(list && t.prevList) {
		t.printf("\n")
	}
	t.started, t.prevList = true, list
}

func (t *Text) Heading(level int, text string) {
	t.gap(false)
	switch level {
	case 1:
		t.printf("%s\n%s\n", text, strings.Repeat("=", max(runewidth.StringWidth(text), 3)))
	case 2:
		t.printf("%s\n%s\n", text, strings.Repeat("-", max(runewidth.StringWidth(text), 3)))
	default:
		t.printf("%s %s\n", strings.Repeat("#", level), text)
	}
}

func (t *Text) Paragraph(text string) {
	t.gap(false)
	t.printf("%s\n", text)
}

func (t *Text) Bullet(text string) {
	t.gap(true)
	t.printf("  - %s\n", text)
}

func (t *Text) NewNumbering() NumberingID { return t.newID() }

func (t *Text) NumberedItem(text string, id NumberingID) {
	t.gap(true)
	t.printf("  %d. %s\n", t.advance(id), text)
}

func (t *Text) Table(rows [][]string) {
	t.gap(false)
	t.printf("%s", Grid(rows))
}

func (t *Text) Close() error {
	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}

// Grid draws rows as an ASCII table with a rule under the header row.
func Grid(rows [][]string) string {
	rows = PadRows(rows)
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for c, cell := range r {
			widths[c] = max(widths[c], runewidth.StringWidth(cell), 1)
		}
	}
	border := func(ch string) string {
		var sb strings.Builder
		sb.WriteString("+")
		for _, w := range widths {
			sb.WriteString(strings.Repeat(ch, w+2) + "+")
		}
		return sb.String() + "\n"
	}

	var sb strings.Builder
	sb.WriteString(border("-"))
	for ri, r := range rows {
		sb.WriteString("|")
		for c, cell := range r {
			sb.WriteString(" " + runewidth.FillRight(cell, widths[c]) + " |")
		}
		sb.WriteString("\n")
		if ri == 0 && len(rows) > 1 {
			sb.WriteString(border("="))
		}
	}
	sb.WriteString(border("-"))
	return sb.String()
}
