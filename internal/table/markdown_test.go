package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schmogen/protocol-converter-mvp/internal/models"
)

func TestCleanRowsToMarkdown(t *testing.T) {
	rows := [][]models.Cell{
		models.Row("Reagent", "Volume"),
		{models.Some("PBS\n"), models.None()},
		{models.None(), models.Some("  ")},
	}
	assert.Equal(t, [][]string{{"Reagent", "Volume"}, {"PBS", ""}}, CleanRows(rows))
	want := "| Reagent | Volume |\n| --- | --- |\n| PBS |  |"
	assert.Equal(t, want, FormatRows(CleanRows(rows)))
}

func TestCleanRowsEmpty(t *testing.T) {
	assert.Nil(t, CleanRows(nil))
	assert.Nil(t, CleanRows([][]models.Cell{{models.None(), models.Some(" ")}}))
	assert.Equal(t, "", FormatRows(nil))
	assert.True(t, IsEmpty([][]models.Cell{{models.None()}}))
	assert.False(t, IsEmpty([][]models.Cell{models.Row("x")}))
}

func TestFormatRowsPadsRaggedRows(t *testing.T) {
	got := FormatRows([][]string{{"A", "B", "C"}, {"1"}, {"2", "3"}})
	want := "| A | B | C |\n| --- | --- | --- |\n| 1 |  |  |\n| 2 | 3 |  |"
	assert.Equal(t, want, got)
}

func TestIsSeparator(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"| --- | --- |", true},
		{"|:---|---:|", true},
		{"| :-: |", true},
		{"| a | b |", false},
		{"|  |", false},
		{"| - 5 |", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSeparator(tt.line), tt.line)
	}
}

func TestParseMarkdown(t *testing.T) {
	lines := []string{"| Step | Time |", "|---|---|", "| Spin | 5 min |", "not a row"}
	assert.Equal(t, [][]string{{"Step", "Time"}, {"Spin", "5 min"}}, ParseMarkdown(lines))
}

func TestSplitBlocks(t *testing.T) {
	lines := []string{
		"| A | B |",
		"| --- | --- |",
		"| 1 | 2 |",
		"| C | D |",
		"| --- | --- |",
		"| 3 | 4 |",
	}
	blocks := SplitBlocks(lines)
	assert.Equal(t, [][]string{
		{"| A | B |", "| --- | --- |", "| 1 | 2 |"},
		{"| C | D |", "| --- | --- |", "| 3 | 4 |"},
	}, blocks)
	assert.Equal(t, [][]string{{"C", "D"}, {"3", "4"}}, ParseMarkdown(blocks[1]))
}

func TestSplitBlocksSingleTable(t *testing.T) {
	lines := []string{"| A |", "| --- |", "| 1 |", "| 2 |"}
	assert.Equal(t, [][]string{lines}, SplitBlocks(lines))
}
