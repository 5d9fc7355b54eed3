package extractor

import (
	"math"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
	"github.com/schmogen/protocol-converter-mvp/internal/layout"
	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

var Logger = logger.GetLogger("extractor")

const (
	marginRatio       = 0.08
	paragraphGapRatio = 1.5
	tableSlack        = 1.0
)

type fontStats struct {
	counts     [128]int
	totalSize  float64
	totalChars int
}

func (f *fontStats) add(size float64) {
	if size <= 0 {
		return
	}
	idx := geometry.Clamp(int(math.Round(size)), 0, 127)
	f.counts[idx]++
	f.totalSize += size
	f.totalChars++
}

func (f *fontStats) mode() float64 {
	if f.totalChars == 0 {
		return 12.0
	}
	bestIdx, bestCount := 0, 0
	for i, c := range f.counts {
		if c > bestCount {
			bestCount, bestIdx = c, i
		}
	}
	if bestIdx == 0 {
		return f.totalSize / float64(f.totalChars)
	}
	return float64(bestIdx)
}

// textLine is the part of a page line that lies outside every table.
type textLine struct {
	Text string
	BBox geometry.Rect
	Size float64
	Bold bool
}

// ExtractPage detects the tables of a page, orders them, and splits the remaining
// text into the segments before, between and after them.
func ExtractPage(raw *bridge.RawPageData) *models.Page {
	Logger.Debug("extracting page", "page", raw.PageNumber, "chars", len(raw.Chars), "edges", len(raw.Edges))
	tables := layout.SortTables(table.Detect(raw))

	stats := &fontStats{}
	for _, ch := range raw.Chars {
		stats.add(ch.Size)
	}
	bodySize := stats.mode()

	lines := outsideTables(raw, tables)
	boxes := make([]geometry.Rect, len(lines))
	for i, l := range lines {
		boxes[i] = l.BBox
	}
	order := layout.ReadingOrder(boxes, bodySize)

	buckets := make([][]textLine, len(tables)+1)
	for _, i := range order {
		seg := segmentFor(lines[i].BBox.CenterY(), tables)
		buckets[seg] = append(buckets[seg], lines[i])
	}

	page := &models.Page{
		Number:   raw.PageNumber,
		Width:    raw.PageBounds.Width(),
		Height:   raw.PageBounds.Height(),
		Tables:   tables,
		Segments: make([]string, len(buckets)),
	}
	var parts []string
	for i, b := range buckets {
		page.Segments[i] = joinLines(b)
		if page.Segments[i] != "" {
			parts = append(parts, page.Segments[i])
		}
	}
	for i, t := range tables {
		t.PrecedingText = strings.TrimSpace(page.Segments[i])
	}
	page.Text = strings.Join(parts, "\n")
	Logger.Debug("page extraction complete", "page", raw.PageNumber, "tables", len(tables), "lines", len(lines))
	return page
}

// segmentFor returns the index of the segment that text at vertical position y
// belongs to: the one after the last table, in reading order, starting at or
// above y.
func segmentFor(y float64, tables []*models.Table) int {
	seg := 0
	for i, t := range tables {
		if t.BBox.Y0 <= y {
			seg = i + 1
		}
	}
	return seg
}

func outsideTables(raw *bridge.RawPageData, tables []*models.Table) []textLine {
	var out []textLine
	for _, line := range raw.Lines {
		chars := raw.LineChars(line)
		kept := chars
		if overlapsAny(line.BBox, tables) {
			kept = make([]bridge.RawChar, 0, len(chars))
			for _, ch := range chars {
				if !insideAny(ch.BBox, tables) {
					kept = append(kept, ch)
				}
			}
		}
		tl, ok := buildLine(kept)
		if !ok {
			continue
		}
		if text.IsInMarginArea(tl.BBox, raw.PageBounds, marginRatio) && text.IsLonePageNumber(tl.Text) {
			Logger.Debug("dropping page number", "page", raw.PageNumber, "text", tl.Text)
			continue
		}
		out = append(out, tl)
	}
	return out
}

func buildLine(chars []bridge.RawChar) (textLine, bool) {
	s := cleanLine(bridge.LineText(chars))
	if !text.HasVisibleContent(s) {
		return textLine{}, false
	}
	tl := textLine{Text: s}
	var sizeSum float64
	bold, visible := 0, 0
	for _, ch := range chars {
		tl.BBox = tl.BBox.Union(ch.BBox)
		sizeSum += ch.Size
		if ch.Codepoint != ' ' {
			visible++
			if ch.IsBold {
				bold++
			}
		}
	}
	tl.Size = sizeSum / float64(len(chars))
	tl.Bold = visible > 0 && float64(bold)/float64(visible) > 0.7
	return tl, true
}

func overlapsAny(r geometry.Rect, tables []*models.Table) bool {
	for _, t := range tables {
		if !r.Intersect(t.BBox.Expand(tableSlack)).IsEmpty() {
			return true
		}
	}
	return false
}

func insideAny(r geometry.Rect, tables []*models.Table) bool {
	for _, t := range tables {
		if t.BBox.Expand(tableSlack).ContainsPoint(r.CenterX(), r.CenterY()) {
			return true
		}
	}
	return false
}

// joinLines writes one line per text line and a blank line where the vertical
// gap or a change to bold text suggests a new paragraph.
func joinLines(lines []textLine) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			prev := lines[i-1]
			gap := l.BBox.Y0 - prev.BBox.Y1
			if gap > math.Max(prev.Size, l.Size)*paragraphGapRatio || (l.Bold && !prev.Bold) {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(l.Text)
	}
	return b.String()
}
