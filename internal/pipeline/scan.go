package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/extractor"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/section"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
	"github.com/schmogen/protocol-converter-mvp/internal/vision"
)

// Source is an open PDF as the scanner sees it.
type Source interface {
	NumPages() int
	ReadRawPage(n int) (*bridge.RawPageData, error)
	RenderJPEG(n int, dpi float64) ([]byte, error)
	Close() error
}

type Opener func(path string) (Source, error)

// OpenPDF opens a document from disk.
func OpenPDF(path string) (Source, error) {
	doc, err := bridge.Open(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ScanResult holds the pages of a document with the tables that survived repair.
type ScanResult struct {
	Pages  []*models.Page
	Tables []*models.Table
	Stats  vision.Stats
}

// Scan reads every page in order, tags each table with the heading that precedes
// it and sends pages with corrupted tables to vision repair.
func (r *Runner) Scan(ctx context.Context, src Source) (*ScanResult, error) {
	tracker := section.NewTracker()
	repairer := vision.NewRepairer(src, r.extractor(), float64(r.cfg.Vision.DPI))
	res := &ScanResult{}

	for n := 1; n <= src.NumPages(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := src.ReadRawPage(n)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", n, err)
		}
		page := extractor.ExtractPage(raw)

		for i, t := range page.Tables {
			tracker.Observe(page.Segments[i])
			tracker.Tag(t)
			if signal, bad := table.Diagnose(t.Rows); bad {
				t.Corrupted = true
				Logger.Info("corrupted table", "page", n, "signal", signal, "section", t.SectionTag)
			}
		}
		tracker.Observe(page.Trailing())

		kept, stats, err := repairer.RepairPage(ctx, n, page.Tables)
		if err != nil {
			return nil, err
		}
		res.Stats.Add(stats)
		if len(kept) != len(page.Tables) {
			dropTables(page, kept)
		}
		res.Pages = append(res.Pages, page)
		res.Tables = append(res.Tables, page.Tables...)
	}
	Logger.Debug("scan complete", "pages", len(res.Pages), "tables", len(res.Tables),
		"headings", tracker.Headings(), "repaired", res.Stats.Repaired, "dropped", res.Stats.Dropped)
	return res, nil
}

// dropTables keeps only the kept tables on the page and merges the text around
// each removed one.
func dropTables(page *models.Page, kept []*models.Table) {
	keep := make(map[*models.Table]bool, len(kept))
	for _, t := range kept {
		keep[t] = true
	}
	segments := []string{page.Segments[0]}
	tables := make([]*models.Table, 0, len(kept))
	for i, t := range page.Tables {
		next := page.Segments[i+1]
		if keep[t] {
			tables = append(tables, t)
			segments = append(segments, next)
			continue
		}
		last := len(segments) - 1
		segments[last] = joinText(segments[last], next)
	}
	for i, t := range tables {
		t.PrecedingText = strings.TrimSpace(segments[i])
	}
	page.Tables, page.Segments = tables, segments
}

func joinText(a, b string) string {
	switch {
	case strings.TrimSpace(a) == "":
		return b
	case strings.TrimSpace(b) == "":
		return a
	}
	return a + "\n\n" + b
}
