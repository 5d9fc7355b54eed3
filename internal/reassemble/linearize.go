package reassemble

import (
	"fmt"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

var Logger = logger.GetLogger("reassemble")

// Linearize writes the pages as one text stream with every table replaced by a
// placeholder line. Ids start at 1 and follow reading order across the whole
// document. Tables with no text are left out and get no id. The returned tables
// are the linearized ones, in id order.
func Linearize(pages []*models.Page) (string, []*models.Table) {
	var b strings.Builder
	var tables []*models.Table
	next := 1
	for _, p := range pages {
		var parts []string
		for i, t := range p.Tables {
			if i < len(p.Segments) && strings.TrimSpace(p.Segments[i]) != "" {
				parts = append(parts, p.Segments[i])
			}
			if table.IsEmpty(t.Rows) {
				Logger.Warn("skipping empty table", "page", p.Number, "index", i)
				continue
			}
			t.Placeholder = next
			next++
			tables = append(tables, t)
			parts = append(parts, models.PlaceholderToken(t.Placeholder))
		}
		if len(p.Tables) == 0 {
			if strings.TrimSpace(p.Text) != "" {
				parts = append(parts, p.Text)
			}
		} else if trailing := p.Trailing(); len(p.Segments) > len(p.Tables) && strings.TrimSpace(trailing) != "" {
			parts = append(parts, trailing)
		}
		fmt.Fprintf(&b, "\n\n--- PAGE %d ---\n\n%s", p.Number, strings.Join(parts, "\n\n"))
	}
	Logger.Debug("linearized document", "pages", len(pages), "placeholders", len(tables))
	return strings.TrimSpace(b.String()), tables
}

// Clean tidies a linearized stream for the rewriter while keeping placeholder
// lines intact.
func Clean(raw string) string {
	return text.CleanPreserving(raw, func(line string) bool {
		_, ok := models.ParsePlaceholder(strings.TrimSpace(line))
		return ok
	})
}
