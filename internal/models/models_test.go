package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
)

func TestParsePlaceholder(t *testing.T) {
	tests := []struct {
		line string
		id   int
		ok   bool
	}{
		{"TABLE_PLACEHOLDER_1", 1, true},
		{"TABLE_PLACEHOLDER_42", 42, true},
		{"TABLE_PLACEHOLDER_0", 0, false},
		{" TABLE_PLACEHOLDER_3", 0, false},
		{"see TABLE_PLACEHOLDER_3", 0, false},
		{"TABLE_PLACEHOLDER_", 0, false},
	}

	for _, tc := range tests {
		id, ok := ParsePlaceholder(tc.line)
		assert.Equal(t, tc.ok, ok, tc.line)
		assert.Equal(t, tc.id, id, tc.line)
	}
	assert.Equal(t, "TABLE_PLACEHOLDER_7", PlaceholderToken(7))
}

func TestTableJSONKeepsMissingCells(t *testing.T) {
	tbl := Table{
		Page: 2,
		BBox: geometry.Rect{X0: 10, Y0: 20.5, X1: 300, Y1: 400},
		Rows: [][]Cell{Row("Reagent", "Volume"), {Some("PBS"), None()}},
	}

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"page":2,"bbox":[10.00,20.50,300.00,400.00],"rows":[["Reagent","Volume"],["PBS",null]],"corrupted":false,"repaired":false,"section":""}`, string(data))

	var cells []Cell
	require.NoError(t, json.Unmarshal([]byte(`["a",null,""]`), &cells))
	assert.Equal(t, []Cell{Some("a"), None(), Some("")}, cells)
}

func TestReplaceRows(t *testing.T) {
	tbl := &Table{Rows: [][]Cell{Row("Cell Factory system D", "PBS volume (mL)")}, Corrupted: true}
	tbl.ReplaceRows([][]string{{"System", "Volume (mL)"}, {"CF-1", "200"}})

	assert.True(t, tbl.Repaired)
	assert.True(t, tbl.Corrupted)
	assert.Equal(t, Row("System", "Volume (mL)"), tbl.Header())
	assert.Len(t, tbl.Rows, 2)
}

func TestBlockJSON(t *testing.T) {
	data, err := json.Marshal([]Block{Heading(2, "Media & Prep"), Numbered("Add PBS"), PlaceholderBlock(3)})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"heading","level":2,"text":"Media & Prep"},{"type":"list_item","list_type":"numbered","text":"Add PBS"},{"type":"placeholder","placeholder":3}]`, string(data))
}
