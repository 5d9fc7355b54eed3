package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
	"github.com/schmogen/protocol-converter-mvp/internal/testutil"
)

func TestDetectRuledGrid(t *testing.T) {
	b := testutil.NewPage(1)
	b.Lines(72, 80, 14, "Reagent Preparation", "Mix the following components.")
	bbox := b.Grid(72, 120, []float64{150, 150}, 20, [][]string{
		{"Reagent", "Volume"},
		{"PBS", "10 mL"},
		{"EDTA", "2 mL"},
	})
	raw := b.Build()

	tables := Detect(raw)
	require.Len(t, tables, 1)
	tbl := tables[0]
	assert.Equal(t, 1, tbl.Page)
	assert.InDelta(t, bbox.X0, tbl.BBox.X0, 1)
	assert.InDelta(t, bbox.Y0, tbl.BBox.Y0, 1)
	assert.InDelta(t, bbox.X1, tbl.BBox.X1, 1)
	assert.InDelta(t, bbox.Y1, tbl.BBox.Y1, 1)

	got := CleanRows(tbl.Rows)
	assert.Equal(t, [][]string{
		{"Reagent", "Volume"},
		{"PBS", "10 mL"},
		{"EDTA", "2 mL"},
	}, got)
}

func TestDetectNoEdges(t *testing.T) {
	raw := testutil.NewPage(1).Lines(72, 80, 14, "Just text", "More text").Build()
	assert.Empty(t, Detect(raw))
}

func TestDetectRejectsSingleColumnBox(t *testing.T) {
	b := testutil.NewPage(2)
	b.Grid(72, 120, []float64{300}, 20, [][]string{{"Note"}, {"Keep on ice"}})
	assert.Empty(t, Detect(b.Build()))
}

func TestDetectTwoGridsOnOnePage(t *testing.T) {
	b := testutil.NewPage(3)
	b.Grid(72, 100, []float64{120, 120}, 20, [][]string{{"Step", "Time"}, {"Spin", "5 min"}})
	b.Grid(72, 500, []float64{120, 120}, 20, [][]string{{"Buffer", "pH"}, {"Tris", "8.0"}})
	tables := Detect(b.Build())
	require.Len(t, tables, 2)
	headers := []string{tables[0].Rows[0][0].String(), tables[1].Rows[0][0].String()}
	assert.ElementsMatch(t, []string{"Step", "Buffer"}, headers)
}

func TestMergeEdgesJoinsCollinearSegments(t *testing.T) {
	edges := []bridge.Edge{
		{X0: 10, Y0: 100, X1: 50, Y1: 100, Orientation: 'h'},
		{X0: 50.5, Y0: 100.5, X1: 90, Y1: 100.5, Orientation: 'h'},
		{X0: 10, Y0: 200, X1: 90, Y1: 200, Orientation: 'h'},
	}
	merged := mergeEdges(edges, 3, 3)
	require.Len(t, merged, 2)
	assert.InDelta(t, 10, merged[0].X0, 0.01)
	assert.InDelta(t, 90, merged[0].X1, 0.01)
	assert.InDelta(t, merged[0].Y0, merged[0].Y1, 0.001)
}

func TestDeduplicateCellsDropsEnclosingCell(t *testing.T) {
	small := geometry.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	big := geometry.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10.5}
	other := geometry.Rect{X0: 20, Y0: 0, X1: 30, Y1: 10}
	got := deduplicateCells([]geometry.Rect{big, small, other})
	assert.ElementsMatch(t, []geometry.Rect{small, other}, got)
}

func TestTextInRect(t *testing.T) {
	raw := testutil.NewPage(1).
		Text(100, 110, "inside").
		Text(400, 110, "outside").
		Build()
	got := TextInRect(raw, geometry.Rect{X0: 90, Y0: 95, X1: 200, Y1: 115})
	assert.Equal(t, "inside", got)
}
