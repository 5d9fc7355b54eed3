package pipeline

import (
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/markdown"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
)

const (
	checklistHeading = "Review Checklist"
	flagsHeading     = "Review Flags"
)

const reviewChecklist = `## Review Checklist
- [ ] Growth conditions verified (temperature, CO2/O2, time)
- [ ] Media composition and volumes verified
- [ ] Mixing parameters verified (rpm/RCF, time)
- [ ] Incubation times verified
- [ ] Centrifugation settings verified (RCF, time, temp)
- [ ] Step order confirmed against source
- [ ] Any ambiguous values flagged with [CHECK]`

// Longer labels first so a shorter one never rewrites part of a longer match.
var labelReplacer = strings.NewReplacer(
	"Possible Hallucinations/Unsupported Claims", "Possible Unsupported Claims",
	"Possible Hallucinations / Unsupported Claims", "Possible Unsupported Claims",
	"Possible Hallucinations and Unsupported Claims", "Possible Unsupported Claims",
	"Possible Hallucinations", "Possible Unsupported Claims",
)

func normalizeLabels(md string) string { return labelReplacer.Replace(md) }

func hasHeading(blocks []models.Block, level int, title string) bool {
	for _, b := range blocks {
		if b.IsHeading() && b.Level == level && strings.EqualFold(strings.TrimSpace(b.Text), title) {
			return true
		}
	}
	return false
}

// withChecklist appends the review checklist unless the protocol already has one.
func withChecklist(blocks []models.Block) []models.Block {
	if hasHeading(blocks, 2, checklistHeading) {
		return blocks
	}
	return append(blocks, markdown.Parse(reviewChecklist)...)
}

// withFlags appends the flag report under its own section. Report headings are
// nested one level below it.
func withFlags(blocks []models.Block, flags string) []models.Block {
	if hasHeading(blocks, 2, flagsHeading) {
		return blocks
	}
	report := markdown.Parse(flags)
	if len(report) == 0 {
		return blocks
	}
	blocks = append(blocks, models.Heading(2, flagsHeading))
	for _, b := range report {
		if b.IsHeading() {
			b.Level = min(max(b.Level, 2)+1, 4)
		}
		blocks = append(blocks, b)
	}
	return blocks
}
