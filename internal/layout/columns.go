package layout

import (
	"math"
	"sort"

	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
)

const (
	maxColumns          = 8
	pageWidthResolution = 1000
)

type columnRange struct{ x0, x1 float64 }

// AssignColumns returns a column index for every box. Columns are found from an
// occupancy histogram of the narrower boxes; index 0 means the box spans several
// columns or the page has a single column. Real columns are numbered from 1.
func AssignColumns(boxes []geometry.Rect, bodyFontSize float64) []int {
	cols := make([]int, len(boxes))
	if len(boxes) == 0 {
		return cols
	}
	minX, maxX := bounds(boxes)
	pageWidth := maxX - minX
	if pageWidth < 50 {
		return cols
	}
	columns := detectColumns(boxes, minX, maxX, pageWidth, bodyFontSize)
	if len(columns) <= 1 {
		return cols
	}
	for i, b := range boxes {
		cols[i] = columnOf(b, columns)
	}
	return cols
}

// ReadingOrder returns box indices in reading order. Boxes spanning columns cut
// the page into bands; inside a band each column is read top to bottom before
// the next one.
func ReadingOrder(boxes []geometry.Rect, bodyFontSize float64) []int {
	cols := AssignColumns(boxes, bodyFontSize)
	idx := make([]int, len(boxes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return boxes[idx[a]].Y0 < boxes[idx[b]].Y0 })

	out := make([]int, 0, len(idx))
	var pending []int
	flush := func() {
		sort.SliceStable(pending, func(a, b int) bool {
			ca, cb := cols[pending[a]], cols[pending[b]]
			if ca != cb {
				return ca < cb
			}
			return boxes[pending[a]].Y0 < boxes[pending[b]].Y0
		})
		out = append(out, pending...)
		pending = pending[:0]
	}
	for _, i := range idx {
		if cols[i] == 0 {
			flush()
			out = append(out, i)
			continue
		}
		pending = append(pending, i)
	}
	flush()
	return out
}

func detectColumns(boxes []geometry.Rect, minX, maxX, pageWidth, bodyFontSize float64) []columnRange {
	occupancy := make([]bool, pageWidthResolution)
	threshold := pageWidth * 0.5
	for _, b := range boxes {
		if bw := b.Width(); bw > threshold || bw < 5 {
			continue
		}
		idx0 := geometry.Clamp(int((b.X0-minX)/pageWidth*(pageWidthResolution-1)), 0, pageWidthResolution-1)
		idx1 := geometry.Clamp(int((b.X1-minX)/pageWidth*(pageWidthResolution-1)), 0, pageWidthResolution-1)
		for k := idx0; k <= idx1; k++ {
			occupancy[k] = true
		}
	}
	columns := make([]columnRange, 0, maxColumns)
	gapBins := max(int(math.Max(bodyFontSize*1.2, 10)/pageWidth*pageWidthResolution), 1)
	toX := func(bin int) float64 { return minX + float64(bin)/pageWidthResolution*pageWidth }

	inside, start := false, 0
	for i := 0; i < pageWidthResolution; i++ {
		if occupancy[i] {
			if !inside {
				inside, start = true, i
			}
			continue
		}
		if !inside {
			continue
		}
		gapLen := 0
		for i+gapLen < pageWidthResolution && !occupancy[i+gapLen] {
			gapLen++
		}
		if gapLen >= gapBins || i+gapLen == pageWidthResolution {
			if len(columns) < maxColumns {
				columns = append(columns, columnRange{x0: toX(start), x1: toX(i - 1)})
			}
			inside = false
			i += gapLen - 1
		}
	}
	if inside && len(columns) < maxColumns {
		columns = append(columns, columnRange{x0: toX(start), x1: maxX})
	}
	return columns
}

// columnOf returns the 1-based column a box sits in, or 0 when it overlaps none
// or more than one.
func columnOf(b geometry.Rect, columns []columnRange) int {
	bw := b.Width()
	overlapCount, last := 0, 0
	for c, col := range columns {
		ix0, ix1 := math.Max(b.X0, col.x0), math.Min(b.X1, col.x1)
		if ix1 <= ix0 {
			continue
		}
		if w := ix1 - ix0; w > bw*0.3 || w > 5 {
			overlapCount++
			last = c + 1
		}
	}
	if overlapCount != 1 {
		return 0
	}
	return last
}

func bounds(boxes []geometry.Rect) (minX, maxX float64) {
	minX, maxX = math.Inf(1), math.Inf(-1)
	for _, b := range boxes {
		minX, maxX = math.Min(minX, b.X0), math.Max(maxX, b.X1)
	}
	return
}
