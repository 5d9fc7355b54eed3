package table

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
)

var Logger = logger.GetLogger("table")

const (
	snapTolRatio   = 0.005
	joinTolRatio   = 0.005
	minCellRatio   = 0.005
	maxCellWRatio  = 0.95
	maxCellHRatio  = 0.20
	splitGapRatio  = 0.10
	rowYTolRatio   = 0.015
	colXTolRatio   = 0.003
	intersectRatio = 0.0015
	coordScale     = 1000.0
)

type gridCell struct {
	BBox geometry.Rect
	Text string
}

type gridRow struct {
	BBox  geometry.Rect
	Cells []gridCell
}

type grid struct {
	BBox geometry.Rect
	Rows []gridRow
}

func coordToInt(x float64) int { return int(x*coordScale + 0.5) }

// Detect finds ruled tables on a page and fills their cells from the page chars.
// Cells that a row lacks after column alignment are None.
func Detect(raw *bridge.RawPageData) []*models.Table {
	if len(raw.Edges) == 0 {
		return nil
	}
	Logger.Debug("detecting tables", "page", raw.PageNumber, "edges", len(raw.Edges))
	grids := detectGrids(raw.Edges, raw.PageBounds, raw.PageNumber)
	if len(grids) == 0 {
		return nil
	}
	fillCellText(raw, grids)

	tables := make([]*models.Table, 0, len(grids))
	for _, g := range grids {
		rows := make([][]models.Cell, 0, len(g.Rows))
		for _, r := range g.Rows {
			row := make([]models.Cell, len(r.Cells))
			for ci, c := range r.Cells {
				if c.BBox.IsEmpty() {
					row[ci] = models.None()
					continue
				}
				row[ci] = models.Some(c.Text)
			}
			rows = append(rows, row)
		}
		tables = append(tables, &models.Table{Page: raw.PageNumber, BBox: g.BBox, Rows: rows})
	}
	Logger.Debug("table detection complete", "page", raw.PageNumber, "tables", len(tables))
	return tables
}

func detectGrids(edges []bridge.Edge, pageRect geometry.Rect, pageNum int) []grid {
	var hEdges, vEdges []bridge.Edge
	for _, e := range edges {
		if e.Orientation == 'h' {
			hEdges = append(hEdges, e)
		} else {
			vEdges = append(vEdges, e)
		}
	}
	pw, ph := pageRect.Width(), pageRect.Height()
	snapTol, joinTol := pw*snapTolRatio, pw*joinTolRatio
	hEdges = mergeEdges(hEdges, snapTol, joinTol)
	vEdges = mergeEdges(vEdges, snapTol, joinTol)
	Logger.Debug("merged edges", "page", pageNum, "hEdges", len(hEdges), "vEdges", len(vEdges))
	if len(hEdges) < 3 || len(vEdges) < 3 {
		return nil
	}
	eps := math.Sqrt(pw*pw+ph*ph) * intersectRatio
	var tr rtree.RTreeG[geometry.Point]
	findIntersections(vEdges, hEdges, &tr, eps)
	var points []geometry.Point
	tr.Scan(func(_, _ [2]float64, value geometry.Point) bool {
		points = append(points, value)
		return true
	})
	Logger.Debug("found intersection points", "page", pageNum, "count", len(points))
	if len(points) < 4 {
		return nil
	}
	cells := findCells(points, &tr, pageRect, hEdges, vEdges)
	Logger.Debug("found cells", "page", pageNum, "count", len(cells))
	if len(cells) == 0 {
		return nil
	}
	var valid []geometry.Rect
	for _, cell := range cells {
		outTop := math.Max(0, pageRect.Y0-cell.Y0)
		outBot := math.Max(0, cell.Y1-pageRect.Y1)
		outL := math.Max(0, pageRect.X0-cell.X0)
		outR := math.Max(0, cell.X1-pageRect.X1)
		maxOut := math.Max(math.Max(outTop, outBot), math.Max(outL, outR))
		if maxOut > 10.0 {
			continue
		}
		if maxOut > 0 {
			cell = cell.Intersect(pageRect)
		}
		valid = append(valid, cell)
	}
	if len(valid) == 0 {
		return nil
	}
	valid = deduplicateCells(valid)
	Logger.Debug("deduplicated cells", "page", pageNum, "validCells", len(valid))
	return groupCellsIntoGrids(valid, pageRect)
}

func hasEdge(edges []bridge.Edge, x0, y0, x1, y1, eps float64) bool {
	for _, e := range edges {
		if e.Orientation == 'h' {
			if math.Abs(e.Y0-y0) < eps && math.Abs(e.Y1-y1) < eps &&
				e.X0-eps <= math.Min(x0, x1) && e.X1+eps >= math.Max(x0, x1) {
				return true
			}
		} else {
			if math.Abs(e.X0-x0) < eps && math.Abs(e.X1-x1) < eps &&
				e.Y0-eps <= math.Min(y0, y1) && e.Y1+eps >= math.Max(y0, y1) {
				return true
			}
		}
	}
	return false
}

func mergeEdges(edges []bridge.Edge, snapTol, joinTol float64) []bridge.Edge {
	if len(edges) == 0 {
		return nil
	}
	horizontal := edges[0].Orientation == 'h'
	pos := func(e bridge.Edge) float64 {
		if horizontal {
			return e.Y0
		}
		return e.X0
	}
	start := func(e bridge.Edge) float64 {
		if horizontal {
			return e.X0
		}
		return e.Y0
	}
	sort.Slice(edges, func(i, j int) bool {
		if pos(edges[i]) != pos(edges[j]) {
			return pos(edges[i]) < pos(edges[j])
		}
		return start(edges[i]) < start(edges[j])
	})

	var result []bridge.Edge
	snapInt, joinInt := coordToInt(snapTol), coordToInt(joinTol)
	for i := 0; i < len(edges); {
		first := i
		posSum, count := coordToInt(pos(edges[i])), 1
		for i++; i < len(edges); i++ {
			if int(math.Abs(float64(coordToInt(pos(edges[i]))-posSum/count))) > snapInt {
				break
			}
			posSum += coordToInt(pos(edges[i]))
			count++
		}
		snapped := float64(posSum/count) / coordScale

		group := make([]bridge.Edge, i-first)
		copy(group, edges[first:i])
		for k := range group {
			if horizontal {
				group[k].Y0, group[k].Y1 = snapped, snapped
			} else {
				group[k].X0, group[k].X1 = snapped, snapped
			}
		}
		sort.Slice(group, func(a, b int) bool { return start(group[a]) < start(group[b]) })

		joined := group[0]
		for _, next := range group[1:] {
			if horizontal {
				if coordToInt(next.X0)-coordToInt(joined.X1) <= joinInt {
					joined.X1 = math.Max(joined.X1, next.X1)
					continue
				}
			} else if coordToInt(next.Y0)-coordToInt(joined.Y1) <= joinInt {
				joined.Y1 = math.Max(joined.Y1, next.Y1)
				continue
			}
			result = append(result, joined)
			joined = next
		}
		result = append(result, joined)
	}
	return result
}

func findIntersections(vEdges, hEdges []bridge.Edge, tr *rtree.RTreeG[geometry.Point], eps float64) {
	tolInt := coordToInt(eps)
	for _, v := range vEdges {
		vXInt, vY0Int, vY1Int := coordToInt(v.X0), coordToInt(v.Y0), coordToInt(v.Y1)
		for _, h := range hEdges {
			hYInt := coordToInt(h.Y0)
			if hYInt < vY0Int-tolInt || hYInt > vY1Int+tolInt {
				continue
			}
			hX0Int, hX1Int := coordToInt(h.X0), coordToInt(h.X1)
			if hX0Int-tolInt > vXInt || hX1Int+tolInt < vXInt {
				continue
			}
			p := geometry.Point{X: v.X0, Y: h.Y0}
			exists := false
			tr.Search([2]float64{p.X - 0.1, p.Y - 0.1}, [2]float64{p.X + 0.1, p.Y + 0.1}, func(_, _ [2]float64, _ geometry.Point) bool {
				exists = true
				return false
			})
			if !exists {
				tr.Insert([2]float64{p.X, p.Y}, [2]float64{p.X, p.Y}, p)
			}
		}
	}
}

func findCells(points []geometry.Point, tr *rtree.RTreeG[geometry.Point], pageRect geometry.Rect, hEdges, vEdges []bridge.Edge) []geometry.Rect {
	if len(points) < 4 {
		return nil
	}
	pw, ph := pageRect.Width(), pageRect.Height()
	diag := math.Sqrt(pw*pw + ph*ph)
	minSize, maxW, maxH := math.Min(pw, ph)*minCellRatio, pw*maxCellWRatio, ph*maxCellHRatio
	snapDist, eps := pw*snapTolRatio, diag*intersectRatio
	sorted := make([]geometry.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if dy := sorted[i].Y - sorted[j].Y; math.Abs(dy) > 0.1 {
			return dy < 0
		}
		return sorted[i].X < sorted[j].X
	})
	var snapped []geometry.Point
	for _, p := range sorted {
		merged := false
		for i := range snapped {
			if geometry.Abs(p.X-snapped[i].X) < snapDist && geometry.Abs(p.Y-snapped[i].Y) < snapDist {
				snapped[i].X, snapped[i].Y = (snapped[i].X+p.X)/2, (snapped[i].Y+p.Y)/2
				merged = true
				break
			}
		}
		if !merged {
			snapped = append(snapped, p)
		}
	}
	var cells []geometry.Rect
	for i, p1 := range snapped {
		for j := i + 1; j < len(snapped); j++ {
			p2 := snapped[j]
			if p2.Y-p1.Y > eps {
				break
			}
			if p2.X <= p1.X+minSize || !hasEdge(hEdges, p1.X, p1.Y, p2.X, p2.Y, eps) {
				continue
			}
			for _, p3 := range snapped {
				if p3.Y <= p1.Y+minSize || math.Abs(p3.X-p1.X) > eps || !hasEdge(vEdges, p1.X, p1.Y, p3.X, p3.Y, eps) {
					continue
				}
				found := false
				tr.Search([2]float64{p2.X - eps, p3.Y - eps}, [2]float64{p2.X + eps, p3.Y + eps}, func(_, _ [2]float64, _ geometry.Point) bool {
					if hasEdge(vEdges, p2.X, p2.Y, p2.X, p3.Y, eps) && hasEdge(hEdges, p3.X, p3.Y, p2.X, p3.Y, eps) {
						found = true
						return false
					}
					return true
				})
				if !found {
					continue
				}
				cell := geometry.Rect{X0: p1.X, Y0: p1.Y, X1: p2.X, Y1: p3.Y}
				if w, h := cell.Width(), cell.Height(); w > minSize && w < maxW && h > minSize && h < maxH {
					cells = append(cells, cell)
				}
			}
		}
	}
	return cells
}

func deduplicateCells(cells []geometry.Rect) []geometry.Rect {
	if len(cells) <= 1 {
		return cells
	}
	keep := make([]bool, len(cells))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(cells); i++ {
		if !keep[i] {
			continue
		}
		areaI := cells[i].Area()
		for j := i + 1; j < len(cells); j++ {
			if !keep[j] {
				continue
			}
			areaJ, inter := cells[j].Area(), cells[i].IntersectArea(cells[j])
			if inter == 0 {
				continue
			}
			if contain := inter / math.Min(areaI, areaJ); contain > 0.9 {
				if areaI >= areaJ {
					keep[i] = false
					break
				}
				keep[j] = false
			} else if iou := inter / (areaI + areaJ - inter); iou > 0.6 {
				if areaI >= areaJ {
					keep[j] = false
				} else {
					keep[i] = false
					break
				}
			}
		}
	}
	result := make([]geometry.Rect, 0, len(cells))
	for i, k := range keep {
		if k {
			result = append(result, cells[i])
		}
	}
	return result
}

func groupCellsIntoGrids(cells []geometry.Rect, pageRect geometry.Rect) []grid {
	if len(cells) == 0 {
		return nil
	}
	splitGap := pageRect.Height() * splitGapRatio
	var avgH float64
	for _, c := range cells {
		avgH += c.Height()
	}
	avgH /= float64(len(cells))
	sortTol := avgH * 0.2
	sort.Slice(cells, func(i, j int) bool {
		if dy := cells[i].Y0 - cells[j].Y0; geometry.Abs(dy) > sortTol {
			return dy < 0
		}
		return cells[i].X0 < cells[j].X0
	})
	var grids []grid
	var cur *grid
	prevY1 := -1000.0
	for i := 0; i < len(cells); {
		rowY0, yTol := cells[i].Y0, pageRect.Height()*rowYTolRatio
		j := i + 1
		for j < len(cells) && math.Abs(cells[j].Y0-rowY0) <= yTol {
			j++
		}
		gap := rowY0 - prevY1
		if i > 0 {
			if g := rowY0 - cells[i-1].Y1; g > gap {
				gap = g
			}
		}
		if cur == nil || gap > splitGap {
			grids = append(grids, grid{})
			cur = &grids[len(grids)-1]
		}
		rowCells := make([]gridCell, j-i)
		for k := 0; k < j-i; k++ {
			rowCells[k].BBox = cells[i+k]
		}
		sort.Slice(rowCells, func(a, b int) bool { return rowCells[a].BBox.X0 < rowCells[b].BBox.X0 })
		row := gridRow{Cells: rowCells, BBox: rowCells[0].BBox}
		for k := 1; k < len(rowCells); k++ {
			row.BBox = row.BBox.Union(rowCells[k].BBox)
		}
		cur.BBox = cur.BBox.Union(row.BBox)
		cur.Rows = append(cur.Rows, row)
		prevY1 = row.BBox.Y1
		i = j
	}
	for gi := range grids {
		normalizeColumns(&grids[gi], pageRect)
	}
	return filterValid(grids, pageRect)
}

func normalizeColumns(g *grid, pageRect geometry.Rect) {
	xCoords := make(map[int]bool)
	for _, row := range g.Rows {
		for _, cell := range row.Cells {
			if !cell.BBox.IsEmpty() {
				xCoords[coordToInt(cell.BBox.X0)] = true
				xCoords[coordToInt(cell.BBox.X1)] = true
			}
		}
	}
	sortedX := make([]int, 0, len(xCoords))
	for x := range xCoords {
		sortedX = append(sortedX, x)
	}
	sort.Ints(sortedX)
	var cols [][2]float64
	colTol := max(int(pageRect.Width()*colXTolRatio*coordScale), 2000)
	for i := 0; i < len(sortedX)-1; {
		c0 := sortedX[i]
		j := i + 1
		for j < len(sortedX) && sortedX[j]-c0 < colTol {
			j++
		}
		if j >= len(sortedX) {
			break
		}
		cols = append(cols, [2]float64{float64(c0) / coordScale, float64(sortedX[j]) / coordScale})
		i = j
	}
	if len(cols) == 0 {
		return
	}
	for r := range g.Rows {
		row := &g.Rows[r]
		newCells := make([]gridCell, len(cols))
		for _, cell := range row.Cells {
			if cell.BBox.IsEmpty() {
				continue
			}
			bestCol, maxOvr := -1, 0.0
			for ci, col := range cols {
				if ovr := math.Min(cell.BBox.X1, col[1]) - math.Max(cell.BBox.X0, col[0]); ovr > maxOvr {
					maxOvr, bestCol = ovr, ci
				}
			}
			if bestCol >= 0 && (newCells[bestCol].BBox.IsEmpty() || maxOvr > newCells[bestCol].BBox.Width()*0.5) {
				newCells[bestCol] = cell
			}
		}
		row.Cells = newCells
	}
	pruneEmpty(g)
}

func pruneEmpty(g *grid) {
	validRows := g.Rows[:0]
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			if !c.BBox.IsEmpty() {
				validRows = append(validRows, row)
				break
			}
		}
	}
	g.Rows = validRows
	if len(g.Rows) == 0 || len(g.Rows[0].Cells) == 0 {
		return
	}
	// Drop columns that are empty in every row.
	width := 0
	for _, row := range g.Rows {
		width = max(width, len(row.Cells))
	}
	keepCols := make([]bool, width)
	for _, row := range g.Rows {
		for c, cell := range row.Cells {
			if !cell.BBox.IsEmpty() {
				keepCols[c] = true
			}
		}
	}
	for r := range g.Rows {
		cells := make([]gridCell, 0, width)
		for c := 0; c < width; c++ {
			if !keepCols[c] {
				continue
			}
			if c < len(g.Rows[r].Cells) {
				cells = append(cells, g.Rows[r].Cells[c])
			} else {
				cells = append(cells, gridCell{})
			}
		}
		g.Rows[r].Cells = cells
	}
}

func filterValid(grids []grid, pageRect geometry.Rect) []grid {
	valid := grids[:0]
	for _, g := range grids {
		if len(g.Rows) < 2 || len(g.Rows[0].Cells) < 2 {
			cols := 0
			if len(g.Rows) > 0 {
				cols = len(g.Rows[0].Cells)
			}
			Logger.Debug("table rejected: too few rows/cols", "rows", len(g.Rows), "cols", cols)
			continue
		}
		hRatio, wRatio := g.BBox.Height()/pageRect.Height(), g.BBox.Width()/pageRect.Width()
		if hRatio > 0.95 || wRatio > 0.98 {
			Logger.Debug("table rejected: too large", "hRatio", hRatio, "wRatio", wRatio)
			continue
		}
		if garbageRow(g) {
			continue
		}
		totalCells := 0
		for _, row := range g.Rows {
			for _, cell := range row.Cells {
				if !cell.BBox.IsEmpty() {
					totalCells++
				}
			}
		}
		if len(g.Rows) > 10 && totalCells < len(g.Rows)*2 {
			Logger.Debug("table rejected: too sparse", "rows", len(g.Rows), "totalCells", totalCells)
			continue
		}
		valid = append(valid, g)
	}
	return valid
}

// garbageRow rejects grids whose rows mix wildly different cell heights, which is
// what page furniture drawn with rectangles tends to look like.
func garbageRow(g grid) bool {
	for ri, row := range g.Rows {
		minH, maxH, cellCount := 1e6, 0.0, 0
		for _, cell := range row.Cells {
			if cell.BBox.IsEmpty() {
				continue
			}
			h := cell.BBox.Height()
			minH, maxH = math.Min(minH, h), math.Max(maxH, h)
			cellCount++
		}
		if cellCount < 2 || minH <= 0 {
			continue
		}
		// Header and sub-header rows often hold merged cells of varying height.
		threshold := 6.0
		if ri <= 1 {
			threshold = 8.0
		}
		if ratio := maxH / minH; ratio > threshold {
			Logger.Debug("table rejected: garbage row", "rowIndex", ri, "minH", minH, "maxH", maxH)
			return true
		}
	}
	return false
}
