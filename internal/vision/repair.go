package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

var Logger = logger.GetLogger("vision")

const DefaultDPI = 150

// TableExtractor turns a page image into markdown pipe tables.
type TableExtractor interface {
	ExtractTables(ctx context.Context, jpeg []byte) (string, error)
}

type PageRenderer interface {
	RenderJPEG(page int, dpi float64) ([]byte, error)
}

// Stats counts what happened to the corrupted tables of a page.
type Stats struct {
	Corrupted int
	Repaired  int
	Dropped   int
}

func (s *Stats) Add(o Stats) {
	s.Corrupted += o.Corrupted
	s.Repaired += o.Repaired
	s.Dropped += o.Dropped
}

// Repairer replaces the rows of corrupted tables with tables read back from a
// rendered image of the page. A nil Extractor disables repair and corrupted
// tables are dropped.
type Repairer struct {
	Renderer  PageRenderer
	Extractor TableExtractor
	DPI       float64
}

func NewRepairer(r PageRenderer, e TableExtractor, dpi float64) *Repairer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Repairer{Renderer: r, Extractor: e, DPI: dpi}
}

// RepairPage returns the tables of one page with corrupted tables either
// repaired or dropped. The page is rendered and sent to the extractor at most
// once, and only when at least one table is corrupted. Each parsed table is used
// for at most one corrupted table.
func (rp *Repairer) RepairPage(ctx context.Context, pageNum int, tables []*models.Table) ([]*models.Table, Stats, error) {
	var stats Stats
	for _, t := range tables {
		if t.Corrupted {
			stats.Corrupted++
		}
	}
	if stats.Corrupted == 0 {
		return tables, stats, nil
	}

	if rp.Extractor == nil {
		Logger.Warn("vision repair disabled, dropping corrupted tables", "page", pageNum, "count", stats.Corrupted)
		kept := make([]*models.Table, 0, len(tables)-stats.Corrupted)
		for _, t := range tables {
			if !t.Corrupted {
				kept = append(kept, t)
			}
		}
		stats.Dropped = stats.Corrupted
		return kept, stats, nil
	}

	img, err := rp.Renderer.RenderJPEG(pageNum, rp.DPI)
	if err != nil {
		return nil, stats, fmt.Errorf("render page %d: %w", pageNum, err)
	}
	Logger.Info("requesting vision extraction", "page", pageNum, "corrupted", stats.Corrupted, "bytes", len(img))
	resp, err := rp.Extractor.ExtractTables(ctx, img)
	if err != nil {
		return nil, stats, fmt.Errorf("vision extraction for page %d: %w", pageNum, err)
	}
	candidates := ParseTables(resp)
	Logger.Debug("parsed vision tables", "page", pageNum, "count", len(candidates))

	used := make(map[int]bool)
	kept := make([]*models.Table, 0, len(tables))
	for _, t := range tables {
		if !t.Corrupted {
			kept = append(kept, t)
			continue
		}
		idx, ok := Match(t.Rows, candidates, used)
		if !ok {
			Logger.Warn("extraction defect: no vision table matches corrupted table, dropping",
				"page", pageNum, "header", headerText(t))
			stats.Dropped++
			continue
		}
		used[idx] = true
		t.ReplaceRows(candidates[idx])
		stats.Repaired++
		Logger.Debug("repaired table", "page", pageNum, "candidate", idx, "rows", len(t.Rows))
	}
	return kept, stats, nil
}

func headerText(t *models.Table) string {
	cells := make([]string, 0, len(t.Header()))
	for _, c := range t.Header() {
		cells = append(cells, text.CleanCell(c.String()))
	}
	return strings.Join(cells, " | ")
}
