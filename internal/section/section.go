package section

import (
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

var Logger = logger.GetLogger("section")

// Tracker remembers the most recent heading-like line seen while a document is
// scanned in reading order. The current heading only ever moves forward.
type Tracker struct {
	current string
	seen    int
}

func NewTracker() *Tracker { return &Tracker{} }

// Observe scans text line by line and advances the current heading to every
// heading-like line it meets.
func (t *Tracker) Observe(s string) {
	for _, line := range strings.Split(s, "\n") {
		if !text.LooksLikeHeading(line) {
			continue
		}
		t.current = strings.TrimSpace(line)
		t.seen++
	}
}

func (t *Tracker) Current() string { return t.current }

// Tag stamps a table with the current heading.
func (t *Tracker) Tag(tbl *models.Table) {
	tbl.SectionTag = t.current
	Logger.Debug("tagged table", "page", tbl.Page, "section", t.current)
}

// Headings returns how many heading-like lines have been observed.
func (t *Tracker) Headings() int { return t.seen }
