package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/config"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
	"github.com/schmogen/protocol-converter-mvp/internal/testutil"
	"github.com/schmogen/protocol-converter-mvp/internal/vision"
)

const visionReply = `| Cell Factory system | PBS volume (mL) |
| --- | --- |
| 1-layer | 200 |`

const rewritten = `# Cell Culture
## Media Prep
1. Combine reagents.
TABLE_PLACEHOLDER_1
## Passage
1. Wash the flask.
2. Count the cells.`

// protocolPages builds a clean media table on page 1 and a table with a split
// header on page 2.
func protocolPages() []*bridge.RawPageData {
	p1 := testutil.NewPage(1)
	p1.Lines(72, 80, 14, "Media Prep", "Combine reagents below.")
	p1.Grid(72, 120, []float64{150, 150}, 20, [][]string{
		{"Reagent", "Volume"},
		{"DMEM", "500 mL"},
		{"FBS", "50 mL"},
	})
	p1.Text(72, 220, "Incubate overnight.")

	p2 := testutil.NewPage(2)
	p2.Lines(72, 80, 14, "Passage", "Wash the flask.")
	p2.Grid(72, 120, []float64{150, 150}, 20, [][]string{
		{"Cell Factory system D", "PBS volume (mL)"},
		{"1-layer", "200"},
	})
	p2.Text(72, 200, "Count the cells.")
	return []*bridge.RawPageData{p1.Build(), p2.Build()}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.Render.Formats = []string{"pdf", "txt"}
	return cfg
}

func opener(srcs testutil.Sources) Opener {
	return func(path string) (Source, error) {
		src, err := srcs.Open(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

func TestScanTagsAndRepairs(t *testing.T) {
	src := &testutil.FakeSource{Pages: protocolPages()}
	ext := &testutil.FakeTableExtractor{Response: visionReply}
	r := New(testConfig(t), Deps{Tables: ext})

	res, err := r.Scan(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)
	require.Len(t, res.Tables, 2)

	assert.Equal(t, "Media Prep", res.Tables[0].SectionTag)
	assert.False(t, res.Tables[0].Corrupted)
	assert.Equal(t, "Passage", res.Tables[1].SectionTag)
	assert.True(t, res.Tables[1].Corrupted)
	assert.True(t, res.Tables[1].Repaired)
	assert.Equal(t, [][]string{{"Cell Factory system", "PBS volume (mL)"}, {"1-layer", "200"}},
		table.CleanRows(res.Tables[1].Rows))

	assert.Equal(t, vision.Stats{Corrupted: 1, Repaired: 1}, res.Stats)
	assert.Equal(t, 1, ext.Calls)
	assert.Equal(t, map[int]int{2: 1}, src.Calls)
}

func TestScanDropsUnmatchedTables(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		calls   int
	}{
		{"no vision match", true, 1},
		{"vision disabled", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Vision.Enabled = tt.enabled
			src := &testutil.FakeSource{Pages: protocolPages()}
			ext := &testutil.FakeTableExtractor{Response: "No tables here."}

			res, err := New(cfg, Deps{Tables: ext}).Scan(context.Background(), src)
			require.NoError(t, err)
			assert.Equal(t, tt.calls, ext.Calls)
			assert.Equal(t, 1, res.Stats.Dropped)
			require.Len(t, res.Tables, 1)

			page := res.Pages[1]
			assert.Empty(t, page.Tables)
			assert.Equal(t, []string{"Passage\nWash the flask.\n\nCount the cells."}, page.Segments)
		})
	}
}

func TestScanVisionFailureIsFatal(t *testing.T) {
	src := &testutil.FakeSource{Pages: protocolPages()}
	ext := &testutil.FakeTableExtractor{Err: errors.New("quota exceeded")}
	_, err := New(testConfig(t), Deps{Tables: ext}).Scan(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
}

func TestDropTablesMergesSegments(t *testing.T) {
	a, b, c := &models.Table{}, &models.Table{}, &models.Table{}
	page := &models.Page{Tables: []*models.Table{a, b, c}, Segments: []string{"intro", "", "middle", "end"}}
	dropTables(page, []*models.Table{a, c})
	assert.Equal(t, []*models.Table{a, c}, page.Tables)
	assert.Equal(t, []string{"intro", "middle", "end"}, page.Segments)
	assert.Equal(t, "intro", a.PrecedingText)
	assert.Equal(t, "middle", c.PrecedingText)

	page = &models.Page{Tables: []*models.Table{a}, Segments: []string{"before", "after"}}
	dropTables(page, nil)
	assert.Equal(t, []string{"before\n\nafter"}, page.Segments)
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err, name)
	return string(data)
}

func TestRunDocumentWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	srcs := testutil.Sources{"in/hek293.pdf": {Pages: protocolPages()}}
	rw := &testutil.FakeRewriter{Fn: func(string) string { return rewritten }}
	r := New(cfg, Deps{
		Open:     opener(srcs),
		Rewriter: rw,
		Tables:   &testutil.FakeTableExtractor{Response: visionReply},
		Flagger:  &testutil.FakeFlagger{Report: "## Possible Hallucinations / Unsupported Claims\n- None detected"},
		Ruleset:  "Use SI units.",
	})

	log := r.RunDocument(context.Background(), "in/hek293.pdf")
	require.Equal(t, StatusSuccess, log.Status, log.Error)
	assert.Equal(t, "hek293.pdf", log.PDF)
	assert.Equal(t, 2, log.Tables)
	assert.Equal(t, 1, log.Repaired)
	assert.Equal(t, 1, log.Resolved)
	assert.Equal(t, 1, log.Inserted)
	assert.Zero(t, log.Fallback)
	assert.Equal(t, lowTextWarning, log.Warning)
	assert.True(t, srcs["in/hek293.pdf"].Closed)

	dir := filepath.Join(cfg.OutputDir, "hek293")
	assert.Equal(t, filepath.Join(dir, "protocol.md"), log.Output)

	require.Len(t, rw.Inputs, 1)
	assert.Contains(t, rw.Inputs[0], "TABLE_PLACEHOLDER_1")
	assert.Contains(t, rw.Inputs[0], "TABLE_PLACEHOLDER_2")
	assert.Contains(t, readFile(t, dir, "raw_extracted.txt"), "--- PAGE 2 ---")
	assert.Equal(t, rewritten, readFile(t, dir, "model_output_debug.txt"))
	assert.Contains(t, readFile(t, dir, "flags.md"), "## Possible Unsupported Claims")

	var tables []map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, dir, "tables.json")), &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "Passage", tables[1]["section"])

	md := readFile(t, dir, "protocol.md")
	media := strings.Index(md, "| Reagent | Volume |")
	count := strings.Index(md, "2. Count the cells.")
	pbs := strings.Index(md, "| Cell Factory system | PBS volume (mL) |")
	checklist := strings.Index(md, "## Review Checklist")
	flags := strings.Index(md, "## Review Flags")
	assert.True(t, media > 0 && media < count, md)
	assert.True(t, count < pbs && pbs < checklist && checklist < flags, md)
	assert.Contains(t, md, "### Possible Unsupported Claims")
	assert.NotContains(t, md, "Hallucinations")
	assert.NotContains(t, md, "TABLE_PLACEHOLDER")

	assert.True(t, strings.HasPrefix(readFile(t, dir, "protocol.pdf"), "%PDF-"))
	assert.Contains(t, readFile(t, dir, "protocol.txt"), "| Reagent | Volume")

	var saved RunLog
	require.NoError(t, json.Unmarshal([]byte(readFile(t, dir, "run_log.json")), &saved))
	assert.Equal(t, log, saved)
}

func TestRunDocumentRewriteFailure(t *testing.T) {
	cfg := testConfig(t)
	srcs := testutil.Sources{"bad.pdf": {Pages: protocolPages()}}
	r := New(cfg, Deps{
		Open:     opener(srcs),
		Rewriter: &testutil.FakeRewriter{Err: errors.New("rewrite failed after 5 attempts")},
		Tables:   &testutil.FakeTableExtractor{Response: visionReply},
	})

	log := r.RunDocument(context.Background(), "bad.pdf")
	assert.Equal(t, StatusError, log.Status)
	assert.Contains(t, log.Error, "rewrite")
	assert.Empty(t, log.Output)

	dir := filepath.Join(cfg.OutputDir, "bad")
	for _, name := range []string{"raw_extracted.txt", "cleaned.txt", "tables.json", "run_log.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	for _, name := range []string{"protocol.md", "protocol.pdf", "protocol.txt", "flags.md"} {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
}

func TestRunDocumentPreflightFailure(t *testing.T) {
	cfg := testConfig(t)
	rw := &testutil.FakeRewriter{}
	r := New(cfg, Deps{
		Open:      opener(testutil.Sources{}),
		Preflight: func(string) error { return errors.New("validate broken.pdf: xref corrupt") },
		Rewriter:  rw,
	})
	log := r.RunDocument(context.Background(), "broken.pdf")
	assert.Equal(t, StatusError, log.Status)
	assert.Contains(t, log.Error, "xref corrupt")
	assert.Empty(t, rw.Inputs)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "broken", "run_log.json"))
}

func TestRunBatchKeepsOrderAndIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Concurrency = 2
	cfg.Render.Formats = []string{"txt"}
	srcs := testutil.Sources{
		"a.pdf": {Pages: protocolPages()},
		"c.pdf": {Pages: protocolPages()},
		"d.pdf": {Pages: protocolPages()[:1]},
	}
	r := New(cfg, Deps{
		Open:     opener(srcs),
		Rewriter: &testutil.FakeRewriter{},
		Tables:   &testutil.FakeTableExtractor{Response: visionReply},
	})

	logs := r.RunBatch(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"})
	require.Len(t, logs, 4)
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		assert.Equal(t, name, logs[i].PDF)
	}
	assert.Equal(t, StatusSuccess, logs[0].Status, logs[0].Error)
	assert.Equal(t, StatusError, logs[1].Status)
	assert.Contains(t, logs[1].Error, "no such fake document")
	assert.Equal(t, StatusSuccess, logs[2].Status, logs[2].Error)
	assert.Equal(t, StatusSuccess, logs[3].Status, logs[3].Error)
	// The rewriter echoed its input, so every placeholder resolves in place.
	assert.Equal(t, 2, logs[0].Resolved)
	assert.Equal(t, 1, logs[3].Resolved)
}

func TestFindInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0o755))

	got, err := FindInputs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.PDF"), filepath.Join(dir, "b.pdf")}, got)

	_, err = FindInputs(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestWithChecklist(t *testing.T) {
	blocks := withChecklist([]models.Block{models.Heading(1, "Protocol")})
	require.Len(t, blocks, 9)
	assert.Equal(t, models.Heading(2, checklistHeading), blocks[1])
	assert.Equal(t, models.Bullet("[ ] Step order confirmed against source"), blocks[7])

	again := withChecklist(blocks)
	assert.Len(t, again, 9)
}

func TestWithFlags(t *testing.T) {
	base := []models.Block{models.Heading(1, "Protocol")}
	out := withFlags(base, "# Summary\n## Step Order / Omission Risks\n- None detected")
	assert.Equal(t, []models.Block{
		models.Heading(1, "Protocol"),
		models.Heading(2, flagsHeading),
		models.Heading(3, "Summary"),
		models.Heading(3, "Step Order / Omission Risks"),
		models.Bullet("None detected"),
	}, out)

	assert.Len(t, withFlags(out, "## More\n- x"), len(out))
	assert.Len(t, withFlags(base, "   \n"), 1)
}

func TestNormalizeLabels(t *testing.T) {
	tests := []struct{ in, want string }{
		{"## Possible Hallucinations/Unsupported Claims", "## Possible Unsupported Claims"},
		{"## Possible Hallucinations / Unsupported Claims", "## Possible Unsupported Claims"},
		{"## Possible Hallucinations and Unsupported Claims", "## Possible Unsupported Claims"},
		{"## Possible Hallucinations", "## Possible Unsupported Claims"},
		{"## Possible Unsupported Claims", "## Possible Unsupported Claims"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeLabels(tt.in))
	}
}
