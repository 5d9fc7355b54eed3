package testutil

import (
	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
)

const (
	DefaultFontSize = 9.0
	glyphWidthRatio = 0.5
	cellPadding     = 4.0
)

// PageBuilder assembles a synthetic RawPageData from text runs and ruled grids.
type PageBuilder struct {
	number int
	bounds geometry.Rect
	chars  []bridge.RawChar
	edges  []bridge.Edge
}

func NewPage(number int) *PageBuilder {
	return &PageBuilder{number: number, bounds: geometry.Rect{X1: 612, Y1: 792}}
}

func (b *PageBuilder) Size(w, h float64) *PageBuilder {
	b.bounds = geometry.Rect{X1: w, Y1: h}
	return b
}

// Text places s with its baseline at y, starting at x. Every rune is half the font
// size wide.
func (b *PageBuilder) Text(x, y float64, s string) *PageBuilder {
	return b.TextSized(x, y, DefaultFontSize, s)
}

func (b *PageBuilder) TextSized(x, y, size float64, s string) *PageBuilder {
	step := size * glyphWidthRatio
	for i, r := range []rune(s) {
		x0 := x + step*float64(i)
		b.chars = append(b.chars, bridge.RawChar{
			Codepoint: r,
			Size:      size,
			BBox:      geometry.Rect{X0: x0, Y0: y - size, X1: x0 + step, Y1: y},
		})
	}
	return b
}

// Lines stacks lines of text downward from y with the given leading.
func (b *PageBuilder) Lines(x, y, leading float64, lines ...string) *PageBuilder {
	for i, l := range lines {
		b.Text(x, y+leading*float64(i), l)
	}
	return b
}

// Grid draws a fully ruled table whose top-left corner is (x, y) and writes each
// cell value near the top-left of its cell. It returns the grid bbox.
func (b *PageBuilder) Grid(x, y float64, colWidths []float64, rowHeight float64, rows [][]string) geometry.Rect {
	width := 0.0
	for _, w := range colWidths {
		width += w
	}
	height := rowHeight * float64(len(rows))
	for r := 0; r <= len(rows); r++ {
		ry := y + rowHeight*float64(r)
		b.edges = append(b.edges, bridge.Edge{X0: x, Y0: ry, X1: x + width, Y1: ry, Orientation: 'h'})
	}
	cx := x
	for c := 0; c <= len(colWidths); c++ {
		b.edges = append(b.edges, bridge.Edge{X0: cx, Y0: y, X1: cx, Y1: y + height, Orientation: 'v'})
		if c < len(colWidths) {
			cx += colWidths[c]
		}
	}
	for r, row := range rows {
		cx := x
		for c, value := range row {
			if c >= len(colWidths) {
				break
			}
			if value != "" {
				b.Text(cx+cellPadding, y+rowHeight*float64(r)+rowHeight-5, value)
			}
			cx += colWidths[c]
		}
	}
	return geometry.Rect{X0: x, Y0: y, X1: x + width, Y1: y + height}
}

func (b *PageBuilder) Build() *bridge.RawPageData {
	raw := &bridge.RawPageData{PageNumber: b.number, PageBounds: b.bounds}
	raw.Chars, raw.Lines = bridge.BuildLines(b.chars)
	raw.Edges = append([]bridge.Edge(nil), b.edges...)
	return raw
}
