package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
)

func tbl(name string, x0, y0, x1, y1 float64) *models.Table {
	return &models.Table{SectionTag: name, BBox: geometry.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

func names(tables []*models.Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.SectionTag
	}
	return out
}

func TestSortTables(t *testing.T) {
	tests := []struct {
		name   string
		tables []*models.Table
		want   []string
	}{
		{
			name:   "stacked",
			tables: []*models.Table{tbl("b", 50, 400, 500, 500), tbl("a", 50, 100, 500, 200)},
			want:   []string{"a", "b"},
		},
		{
			name: "side by side read left to right",
			tables: []*models.Table{
				tbl("right", 320, 100, 560, 200),
				tbl("left", 50, 110, 300, 220),
			},
			want: []string{"left", "right"},
		},
		{
			name: "side by side pair then full width table",
			tables: []*models.Table{
				tbl("wide", 50, 400, 560, 500),
				tbl("right", 320, 100, 560, 200),
				tbl("left", 50, 105, 300, 200),
			},
			want: []string{"left", "right", "wide"},
		},
		{
			name:   "single",
			tables: []*models.Table{tbl("only", 0, 0, 10, 10)},
			want:   []string{"only"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]*models.Table(nil), tt.tables...)
			got := SortTables(tt.tables)
			assert.Equal(t, tt.want, names(got))
			assert.Equal(t, names(input), names(tt.tables), "input must not be reordered")
		})
	}
}

func TestSortTablesIdempotent(t *testing.T) {
	tables := []*models.Table{
		tbl("c", 50, 600, 560, 700),
		tbl("b", 320, 90, 560, 200),
		tbl("a", 50, 120, 300, 220),
		tbl("d", 200, 300, 400, 350),
		tbl("e", 420, 310, 560, 360),
	}
	once := SortTables(tables)
	twice := SortTables(once)
	assert.Equal(t, names(once), names(twice))
	assert.Equal(t, []string{"a", "b", "d", "e", "c"}, names(once))
}

func TestSortTablesEmpty(t *testing.T) {
	assert.Empty(t, SortTables(nil))
}

func TestAssignColumns(t *testing.T) {
	boxes := []geometry.Rect{
		{X0: 50, Y0: 50, X1: 560, Y1: 60},   // title spanning both columns
		{X0: 50, Y0: 100, X1: 280, Y1: 110}, // left
		{X0: 50, Y0: 120, X1: 270, Y1: 130}, // left
		{X0: 330, Y0: 100, X1: 560, Y1: 110},
		{X0: 330, Y0: 120, X1: 550, Y1: 130},
	}
	assert.Equal(t, []int{0, 1, 1, 2, 2}, AssignColumns(boxes, 10))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ReadingOrder(boxes, 10))
}

func TestReadingOrderSingleColumnFollowsTop(t *testing.T) {
	boxes := []geometry.Rect{
		{X0: 50, Y0: 300, X1: 500, Y1: 310},
		{X0: 50, Y0: 100, X1: 500, Y1: 110},
		{X0: 50, Y0: 200, X1: 500, Y1: 210},
	}
	assert.Equal(t, []int{0, 0, 0}, AssignColumns(boxes, 10))
	assert.Equal(t, []int{1, 2, 0}, ReadingOrder(boxes, 10))
}

func TestReadingOrderColumnBeforeNextColumn(t *testing.T) {
	boxes := []geometry.Rect{
		{X0: 330, Y0: 100, X1: 560, Y1: 110}, // right, top
		{X0: 50, Y0: 100, X1: 280, Y1: 110},  // left, top
		{X0: 330, Y0: 120, X1: 560, Y1: 130}, // right, below
		{X0: 50, Y0: 120, X1: 280, Y1: 130},  // left, below
	}
	assert.Equal(t, []int{1, 3, 0, 2}, ReadingOrder(boxes, 10))
}
