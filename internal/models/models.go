package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
)

// Cell is a table cell that may be missing entirely. Merged or absent cells are
// None, which is distinct from a present but empty cell.
type Cell struct {
	text  string
	valid bool
}

func Some(s string) Cell { return Cell{text: s, valid: true} }
func None() Cell         { return Cell{} }

func (c Cell) IsNone() bool { return !c.valid }

// String returns the cell text, or "" for a missing cell.
func (c Cell) String() string { return c.text }

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(c.text)
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = None()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = Some(s)
	return nil
}

// Row builds a row of present cells.
func Row(cells ...string) []Cell {
	row := make([]Cell, len(cells))
	for i, s := range cells {
		row[i] = Some(s)
	}
	return row
}

// Table is one table extracted from a page. BBox is in top-down page coordinates.
type Table struct {
	Page          int
	BBox          geometry.Rect
	Rows          [][]Cell
	Corrupted     bool
	Repaired      bool
	SectionTag    string
	PrecedingText string
	Placeholder   int
}

// Header returns the first row, or nil.
func (t *Table) Header() []Cell {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// ReplaceRows swaps in repaired rows. Rows are never modified in place.
func (t *Table) ReplaceRows(rows [][]string) {
	replaced := make([][]Cell, len(rows))
	for i, r := range rows {
		replaced[i] = Row(r...)
	}
	t.Rows = replaced
	t.Repaired = true
}

func formatBBox(r geometry.Rect) json.RawMessage {
	return json.RawMessage("[" +
		strconv.FormatFloat(r.X0, 'f', 2, 64) + "," +
		strconv.FormatFloat(r.Y0, 'f', 2, 64) + "," +
		strconv.FormatFloat(r.X1, 'f', 2, 64) + "," +
		strconv.FormatFloat(r.Y1, 'f', 2, 64) + "]")
}

func (t Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Page        int             `json:"page"`
		BBox        json.RawMessage `json:"bbox"`
		Rows        [][]Cell        `json:"rows"`
		Corrupted   bool            `json:"corrupted"`
		Repaired    bool            `json:"repaired"`
		Section     string          `json:"section"`
		Placeholder int             `json:"placeholder,omitempty"`
	}{t.Page, formatBBox(t.BBox), t.Rows, t.Corrupted, t.Repaired, t.SectionTag, t.Placeholder})
}

// Page is the scanned content of one PDF page. Segments holds the text before each
// table in reading order, plus the trailing text after the last one, so it always
// has len(Tables)+1 entries.
type Page struct {
	Number   int
	Width    float64
	Height   float64
	Text     string
	Tables   []*Table
	Segments []string
}

// Trailing returns the text after the last table on the page.
func (p *Page) Trailing() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

const (
	PlaceholderPrefix = "TABLE_PLACEHOLDER_"
	PendingMarker     = "TABLE_PENDING"
)

var placeholderPattern = regexp.MustCompile(`^TABLE_PLACEHOLDER_(\d+)$`)

func PlaceholderToken(n int) string { return fmt.Sprintf("%s%d", PlaceholderPrefix, n) }

// ParsePlaceholder reports the id of a line that consists only of a placeholder token.
func ParsePlaceholder(line string) (int, bool) {
	m := placeholderPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

type BlockType string

const (
	BlockHeading     BlockType = "heading"
	BlockListItem    BlockType = "list_item"
	BlockParagraph   BlockType = "paragraph"
	BlockTable       BlockType = "table"
	BlockPlaceholder BlockType = "placeholder"
)

type ListType string

const (
	ListBulleted ListType = "bulleted"
	ListNumbered ListType = "numbered"
)

// Block is one element of a rewritten document.
type Block struct {
	Type        BlockType
	Level       int
	List        ListType
	Text        string
	Rows        [][]string
	Placeholder int
}

func Heading(level int, text string) Block { return Block{Type: BlockHeading, Level: level, Text: text} }
func Paragraph(text string) Block          { return Block{Type: BlockParagraph, Text: text} }
func Bullet(text string) Block             { return Block{Type: BlockListItem, List: ListBulleted, Text: text} }
func Numbered(text string) Block           { return Block{Type: BlockListItem, List: ListNumbered, Text: text} }
func TableBlock(rows [][]string) Block     { return Block{Type: BlockTable, Rows: rows} }
func PlaceholderBlock(n int) Block         { return Block{Type: BlockPlaceholder, Placeholder: n} }

func (b Block) IsHeading() bool { return b.Type == BlockHeading }

func (b Block) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	var err error
	switch b.Type {
	case BlockHeading:
		err = enc.Encode(struct {
			Type  BlockType `json:"type"`
			Level int       `json:"level"`
			Text  string    `json:"text"`
		}{b.Type, b.Level, b.Text})
	case BlockListItem:
		err = enc.Encode(struct {
			Type BlockType `json:"type"`
			List ListType  `json:"list_type"`
			Text string    `json:"text"`
		}{b.Type, b.List, b.Text})
	case BlockTable:
		err = enc.Encode(struct {
			Type BlockType  `json:"type"`
			Rows [][]string `json:"rows"`
		}{b.Type, b.Rows})
	case BlockPlaceholder:
		err = enc.Encode(struct {
			Type        BlockType `json:"type"`
			Placeholder int       `json:"placeholder"`
		}{b.Type, b.Placeholder})
	default:
		err = enc.Encode(struct {
			Type BlockType `json:"type"`
			Text string    `json:"text"`
		}{b.Type, b.Text})
	}
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
