package bridge

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
	"github.com/schmogen/protocol-converter-mvp/internal/logger"
)

var Logger = logger.GetLogger("bridge")

var ErrNoPages = errors.New("pdf has no pages")

// Rules thinner than this become a single edge instead of a rectangle outline.
const thinRule = 2.0

// US Letter, used when a page carries no usable MediaBox.
var defaultMediaBox = geometry.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

type Edge struct {
	X0, Y0, X1, Y1 float64
	Orientation    byte
}

// RawPageData is the geometry of one page in top-down coordinates with the origin
// at the top-left corner of the MediaBox.
type RawPageData struct {
	PageNumber int
	PageBounds geometry.Rect
	Lines      []RawLine
	Chars      []RawChar
	Edges      []Edge
}

type RawChar struct {
	Codepoint rune
	Size      float64
	BBox      geometry.Rect
	IsBold    bool
}

// Document is an open PDF. Geometry comes from the text layer and drawn
// rectangles; page images are rendered on demand.
type Document struct {
	path   string
	file   *os.File
	reader *pdf.Reader

	mu     sync.Mutex
	render *fitz.Document
}

func Open(path string) (*Document, error) {
	Logger.Debug("opening pdf", "path", path)
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if r.NumPage() == 0 {
		f.Close()
		return nil, ErrNoPages
	}
	return &Document{path: path, file: f, reader: r}, nil
}

func (d *Document) Path() string  { return d.path }
func (d *Document) NumPages() int { return d.reader.NumPage() }

// ReadRawPage returns the chars and ruling edges of page n (1-based).
func (d *Document) ReadRawPage(n int) (raw *RawPageData, err error) {
	if n < 1 || n > d.NumPages() {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, d.NumPages())
	}
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return &RawPageData{PageNumber: n, PageBounds: defaultMediaBox}, nil
	}

	// The content parser panics on malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			raw, err = nil, fmt.Errorf("page %d: malformed content stream: %v", n, rec)
		}
	}()

	box := mediaBox(page.V)
	content := page.Content()
	raw = &RawPageData{
		PageNumber: n,
		PageBounds: geometry.Rect{X0: 0, Y0: 0, X1: box.Width(), Y1: box.Height()},
	}
	var chars []RawChar
	for _, t := range content.Text {
		chars = append(chars, charsFromGlyph(t, box)...)
	}
	raw.Chars, raw.Lines = BuildLines(chars)
	for _, r := range content.Rect {
		raw.Edges = append(raw.Edges, edgesFromRect(r, box)...)
	}
	Logger.Debug("read page", "page", n, "chars", len(raw.Chars), "lines", len(raw.Lines), "edges", len(raw.Edges))
	return raw, nil
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	if d.render != nil {
		errs = append(errs, d.render.Close())
		d.render = nil
	}
	if d.file != nil {
		errs = append(errs, d.file.Close())
		d.file = nil
	}
	return errors.Join(errs...)
}

// mediaBox walks the page tree for the first MediaBox, which may be inherited.
func mediaBox(v pdf.Value) geometry.Rect {
	for depth := 0; !v.IsNull() && depth < 32; depth++ {
		mb := v.Key("MediaBox")
		if mb.Kind() == pdf.Array && mb.Len() == 4 {
			x0, y0, x1, y1 := mb.Index(0).Float64(), mb.Index(1).Float64(), mb.Index(2).Float64(), mb.Index(3).Float64()
			r := geometry.Rect{X0: math.Min(x0, x1), Y0: math.Min(y0, y1), X1: math.Max(x0, x1), Y1: math.Max(y0, y1)}
			if !r.IsEmpty() {
				return r
			}
		}
		v = v.Key("Parent")
	}
	return defaultMediaBox
}

// charsFromGlyph converts a positioned text run (baseline origin, bottom-up) into
// one RawChar per rune, splitting the advance width evenly.
func charsFromGlyph(t pdf.Text, box geometry.Rect) []RawChar {
	if t.S == "" {
		return nil
	}
	count := utf8.RuneCountInString(t.S)
	size := t.FontSize
	if size <= 0 {
		size = 10
	}
	width := t.W
	if width <= 0 {
		width = size * 0.5 * float64(count)
	}
	step := width / float64(count)
	bold := strings.Contains(strings.ToLower(t.Font), "bold")

	x := t.X - box.X0
	baseline := box.Y1 - t.Y
	chars := make([]RawChar, 0, count)
	for i, r := range []rune(t.S) {
		x0 := x + step*float64(i)
		chars = append(chars, RawChar{
			Codepoint: r,
			Size:      size,
			BBox:      geometry.Rect{X0: x0, Y0: baseline - size, X1: x0 + step, Y1: baseline},
			IsBold:    bold,
		})
	}
	return chars
}

// edgesFromRect turns a drawn rectangle into ruling edges: hairline rectangles give
// one edge, larger ones contribute their four sides.
func edgesFromRect(r pdf.Rect, box geometry.Rect) []Edge {
	x0 := math.Min(r.Min.X, r.Max.X) - box.X0
	x1 := math.Max(r.Min.X, r.Max.X) - box.X0
	y0 := box.Y1 - math.Max(r.Min.Y, r.Max.Y)
	y1 := box.Y1 - math.Min(r.Min.Y, r.Max.Y)
	w, h := x1-x0, y1-y0

	switch {
	case w <= thinRule && h <= thinRule:
		return nil
	case h <= thinRule:
		y := (y0 + y1) / 2
		return []Edge{{X0: x0, Y0: y, X1: x1, Y1: y, Orientation: 'h'}}
	case w <= thinRule:
		x := (x0 + x1) / 2
		return []Edge{{X0: x, Y0: y0, X1: x, Y1: y1, Orientation: 'v'}}
	}
	return []Edge{
		{X0: x0, Y0: y0, X1: x1, Y1: y0, Orientation: 'h'},
		{X0: x0, Y0: y1, X1: x1, Y1: y1, Orientation: 'h'},
		{X0: x0, Y0: y0, X1: x0, Y1: y1, Orientation: 'v'},
		{X0: x1, Y0: y0, X1: x1, Y1: y1, Orientation: 'v'},
	}
}
