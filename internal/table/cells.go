package table

import (
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
)

// Chars within this distance of a cell border still belong to the cell.
const cellSlack = 2.0

func fillCellText(raw *bridge.RawPageData, grids []grid) {
	for gi := range grids {
		for ri := range grids[gi].Rows {
			for ci := range grids[gi].Rows[ri].Cells {
				cell := &grids[gi].Rows[ri].Cells[ci]
				if !cell.BBox.IsEmpty() {
					cell.Text = TextInRect(raw, cell.BBox)
				}
			}
		}
	}
}

// TextInRect returns the text of every char whose center falls inside rect, one
// output line per page line.
func TextInRect(raw *bridge.RawPageData, rect geometry.Rect) string {
	search := rect.Expand(cellSlack)
	var lines []string
	for _, line := range raw.Lines {
		if line.BBox.Intersect(search).IsEmpty() {
			continue
		}
		var inside []bridge.RawChar
		for _, ch := range raw.LineChars(line) {
			if search.ContainsPoint(ch.BBox.CenterX(), ch.BBox.CenterY()) {
				inside = append(inside, ch)
			}
		}
		if s := bridge.LineText(inside); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
