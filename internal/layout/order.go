package layout

import (
	"sort"

	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
)

var Logger = logger.GetLogger("layout")

// SortTables returns the tables of one page in reading order. Tables are grouped
// into horizontal bands of side-by-side tables; a table that overlaps the band
// horizontally starts a new band. Bands are read top to bottom and the tables of
// a band left to right. The input slice is not modified.
func SortTables(tables []*models.Table) []*models.Table {
	if len(tables) < 2 {
		return append([]*models.Table(nil), tables...)
	}
	byTop := append([]*models.Table(nil), tables...)
	sort.SliceStable(byTop, func(i, j int) bool { return byTop[i].BBox.Y0 < byTop[j].BBox.Y0 })

	type band struct {
		tables      []*models.Table
		left, right float64
		top         float64
	}
	var bands []*band
	var cur *band
	for _, t := range byTop {
		if cur != nil && !(t.BBox.X0 < cur.right && cur.left < t.BBox.X1) {
			cur.tables = append(cur.tables, t)
			cur.left, cur.right = min(cur.left, t.BBox.X0), max(cur.right, t.BBox.X1)
			cur.top = min(cur.top, t.BBox.Y0)
			continue
		}
		cur = &band{tables: []*models.Table{t}, left: t.BBox.X0, right: t.BBox.X1, top: t.BBox.Y0}
		bands = append(bands, cur)
	}

	sort.SliceStable(bands, func(i, j int) bool { return bands[i].top < bands[j].top })
	out := make([]*models.Table, 0, len(tables))
	for _, b := range bands {
		sort.SliceStable(b.tables, func(i, j int) bool { return b.tables[i].BBox.X0 < b.tables[j].BBox.X0 })
		out = append(out, b.tables...)
	}
	Logger.Debug("sorted tables", "tables", len(out), "bands", len(bands))
	return out
}
