package render

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

type PDFOptions struct {
	FontSize float64
	Title    string
}

var headingSizes = [...]float64{18, 15, 13, 12}

const (
	pdfMargin    = 18.0
	listIndent   = 6.0
	markerWidth  = 7.0
	cellPadding  = 1.5
	lineSpacing  = 1.35
	ptToMM       = 0.3528
	defaultPDFPt = 11.0
	fontFamily   = "go"
)

// PDF renders blocks onto A4 pages. The Go fonts are embedded so units and
// symbols such as µL, ≥ and → print as written.
type PDF struct {
	w    io.Writer
	pdf  *gofpdf.Fpdf
	size float64
	counters
}

func NewPDF(w io.Writer, opts PDFOptions) *PDF {
	size := opts.FontSize
	if size <= 0 {
		size = defaultPDFPt
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	pdf.AddPage()
	pdf.SetFont(fontFamily, "", size)
	return &PDF{w: w, pdf: pdf, size: size}
}

func (p *PDF) lineHeight(size float64) float64 { return size * ptToMM * lineSpacing }

func (p *PDF) Heading(level int, text string) {
	size := headingSizes[clampLevel(level)-1]
	p.pdf.Ln(p.lineHeight(p.size) * 0.6)
	p.pdf.SetFont(fontFamily, "B", size)
	p.pdf.MultiCell(0, p.lineHeight(size), text, "", "L", false)
	p.pdf.SetFont(fontFamily, "", p.size)
	p.pdf.Ln(p.lineHeight(p.size) * 0.2)
}

func (p *PDF) Paragraph(text string) {
	p.pdf.MultiCell(0, p.lineHeight(p.size), text, "", "L", false)
	p.pdf.Ln(p.lineHeight(p.size) * 0.4)
}

func (p *PDF) Bullet(text string) { p.listItem("•", text) }

func (p *PDF) NewNumbering() NumberingID { return p.newID() }

func (p *PDF) NumberedItem(text string, id NumberingID) {
	p.listItem(fmt.Sprintf("%d.", p.advance(id)), text)
}

func (p *PDF) listItem(marker, text string) {
	left, _, right, _ := p.pdf.GetMargins()
	pageW, _ := p.pdf.GetPageSize()
	lh := p.lineHeight(p.size)
	p.pdf.SetX(left + listIndent)
	p.pdf.CellFormat(markerWidth, lh, marker, "", 0, "L", false, 0, "")
	width := pageW - right - p.pdf.GetX()
	p.pdf.MultiCell(width, lh, text, "", "L", false)
}

// Table draws a grid with equal column widths. Cells wrap, and a row that would
// not fit on the current page starts a new one. A row taller than a whole page
// continues across pages.
func (p *PDF) Table(rows [][]string) {
	left, top, right, bottom := p.pdf.GetMargins()
	pageW, pageH := p.pdf.GetPageSize()
	cols := len(rows[0])
	colW := (pageW - left - right) / float64(cols)
	size := p.size - 1
	lh := p.lineHeight(size)
	linesBelow := func(y float64) int { return max(int((pageH-bottom-y-2*cellPadding)/lh), 0) }

	p.pdf.SetAutoPageBreak(false, bottom)
	defer p.pdf.SetAutoPageBreak(true, bottom)
	p.pdf.Ln(lh * 0.3)
	for ri, row := range rows {
		style := ""
		if ri == 0 {
			style = "B"
		}
		p.pdf.SetFont(fontFamily, style, size)

		lines := make([][]string, cols)
		maxLines := 1
		for ci, cell := range row {
			lines[ci] = p.wrap(cell, colW-2*cellPadding)
			maxLines = max(maxLines, len(lines[ci]))
		}

		from := 0
		for i, n := range rowChunks(maxLines, linesBelow(p.pdf.GetY()), linesBelow(top)) {
			if i > 0 {
				p.pdf.AddPage()
			}
			if n == 0 {
				continue
			}
			p.drawRowPart(lines, from, n, left, colW, lh)
			from += n
		}
	}
	p.pdf.SetFont(fontFamily, "", p.size)
	p.pdf.Ln(lh * 0.6)
}

// drawRowPart draws lines [from, from+n) of every cell as one band of the grid.
func (p *PDF) drawRowPart(lines [][]string, from, n int, left, colW, lh float64) {
	y := p.pdf.GetY()
	rowH := float64(n)*lh + 2*cellPadding
	for ci, cell := range lines {
		x := left + float64(ci)*colW
		p.pdf.Rect(x, y, colW, rowH, "D")
		for li := from; li < min(from+n, len(cell)); li++ {
			p.pdf.SetXY(x+cellPadding, y+cellPadding+float64(li-from)*lh)
			p.pdf.CellFormat(colW-2*cellPadding, lh, cell[li], "", 0, "L", false, 0, "")
		}
	}
	p.pdf.SetXY(left, y+rowH)
}

func (p *PDF) wrap(s string, width float64) []string {
	if s == "" {
		return nil
	}
	return p.pdf.SplitText(s, width)
}

// rowChunks splits a row of n lines into the parts drawn on successive pages.
// room is how many lines fit below the cursor and full how many fit on an empty
// page. A leading 0 moves the whole row to a fresh page.
func rowChunks(n, room, full int) []int {
	if n <= room {
		return []int{n}
	}
	full = max(full, 1)
	var chunks []int
	if room < full {
		chunks = append(chunks, 0)
	}
	for ; n > full; n -= full {
		chunks = append(chunks, full)
	}
	return append(chunks, n)
}

func (p *PDF) Close() error {
	if err := p.pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return p.pdf.Output(p.w)
}

// PageCount reports how many pages have been started so far.
func (p *PDF) PageCount() int { return p.pdf.PageCount() }
