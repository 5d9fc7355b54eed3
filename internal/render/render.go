package render

import (
	"fmt"

	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
)

var Logger = logger.GetLogger("render")

// NumberingID identifies one numbered list counter inside a backend.
type NumberingID int

// Backend draws blocks into an output document.
type Backend interface {
	Heading(level int, text string)
	Paragraph(text string)
	Bullet(text string)
	NewNumbering() NumberingID
	NumberedItem(text string, id NumberingID)
	// Table draws a grid. The first row is the header.
	Table(rows [][]string)
	Close() error
}

// Resolver finds the table behind a placeholder id at render time.
type Resolver map[int]*models.Table

// Render walks the blocks and closes the backend. Every section gets its own
// numbering counter, so numbered steps restart at 1 after each heading.
func Render(blocks []models.Block, b Backend, resolve Resolver) error {
	restart := true
	var active NumberingID
	for _, blk := range blocks {
		switch blk.Type {
		case models.BlockHeading:
			b.Heading(clampLevel(blk.Level), blk.Text)
			restart = true
		case models.BlockListItem:
			if blk.List != models.ListNumbered {
				b.Bullet(blk.Text)
				continue
			}
			if restart {
				active = b.NewNumbering()
				restart = false
			}
			b.NumberedItem(blk.Text, active)
		case models.BlockTable:
			drawTable(b, blk.Rows)
		case models.BlockPlaceholder:
			t, ok := resolve[blk.Placeholder]
			if !ok {
				Logger.Warn("unresolved placeholder at render time", "id", blk.Placeholder)
				continue
			}
			drawTable(b, table.CleanRows(t.Rows))
		default:
			if blk.Text != "" {
				b.Paragraph(blk.Text)
			}
		}
	}
	if err := b.Close(); err != nil {
		return fmt.Errorf("close renderer: %w", err)
	}
	return nil
}

func drawTable(b Backend, rows [][]string) {
	if rows = PadRows(rows); len(rows) == 0 {
		return
	}
	b.Table(rows)
}

// PadRows returns rows padded with empty cells to the widest row.
func PadRows(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = make([]string, width)
		copy(out[i], r)
	}
	return out
}

func clampLevel(level int) int { return min(max(level, 1), 4) }

// counters hands out numbering identities and their next ordinal.
type counters struct {
	next   NumberingID
	values map[NumberingID]int
}

func (c *counters) newID() NumberingID {
	if c.values == nil {
		c.values = make(map[NumberingID]int)
	}
	c.next++
	c.values[c.next] = 0
	return c.next
}

func (c *counters) advance(id NumberingID) int {
	if c.values == nil {
		c.values = make(map[NumberingID]int)
	}
	c.values[id]++
	return c.values[id]
}
