// Package pdffixture writes small PDFs with a real text layer and ruled tables.
package pdffixture

import (
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

const (
	FontSize    = 9.0
	cellPadding = 4.0
)

// Writer lays out text runs and ruled grids on one US Letter page in points,
// with the origin at the top-left corner.
type Writer struct {
	pdf *gofpdf.Fpdf
}

func New() *Writer {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", FontSize)
	return &Writer{pdf: pdf}
}

// Text places s with its baseline at y.
func (w *Writer) Text(x, y float64, s string) *Writer {
	w.pdf.Text(x, y, s)
	return w
}

func (w *Writer) Lines(x, y, leading float64, lines ...string) *Writer {
	for i, l := range lines {
		w.Text(x, y+leading*float64(i), l)
	}
	return w
}

// Grid strokes one rectangle per cell and writes each value near the bottom-left
// of its cell.
func (w *Writer) Grid(x, y float64, colWidths []float64, rowHeight float64, rows [][]string) *Writer {
	for r, row := range rows {
		cx := x
		cy := y + rowHeight*float64(r)
		for c, cw := range colWidths {
			w.pdf.Rect(cx, cy, cw, rowHeight, "D")
			if c < len(row) && row[c] != "" {
				w.Text(cx+cellPadding, cy+rowHeight-5, row[c])
			}
			cx += cw
		}
	}
	return w
}

// Save writes the document into a test temp dir and returns its path.
func (w *Writer) Save(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := w.pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// MediaPrep is a one page protocol: a heading and an intro line, a 2x3 reagent
// table, and a closing step below it.
func MediaPrep(t testing.TB) string {
	return New().
		Lines(72, 80, 14, "Media Prep", "Combine reagents below.").
		Grid(72, 120, []float64{150, 150}, 20, [][]string{
			{"Reagent", "Volume"},
			{"DMEM", "500 mL"},
			{"FBS", "50 mL"},
		}).
		Text(72, 220, "Incubate overnight.").
		Save(t, "media_prep.pdf")
}
