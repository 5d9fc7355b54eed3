package reassemble

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
)

// Group is the tables that were found under one source section heading, in
// document order.
type Group struct {
	Tag    string
	Tables []*models.Table
}

// Insertion places a group before the block at Position. Heading is the index of
// the claimed heading block.
type Insertion struct {
	Position int
	Heading  int
	Group    Group
}

type Plan struct {
	Insertions []Insertion
	Fallback   []*models.Table
}

// Report counts how every table reached the output.
type Report struct {
	Resolved   int `json:"resolved"`
	Inserted   int `json:"inserted"`
	Fallback   int `json:"fallback"`
	Duplicates int `json:"duplicate_placeholders"`
	Unknown    int `json:"unknown_placeholders"`
	Skipped    int `json:"skipped_empty"`
	Inline     int `json:"inline_placeholders_removed"`
}

// Reinsert puts the extracted tables back into the rewritten document.
// Placeholders the rewriter kept are replaced in place. Tables whose placeholder
// was lost are inserted at the end of the section whose heading matches their
// section tag, and everything else is appended at the end of the document.
func Reinsert(blocks []models.Block, tables []*models.Table) ([]models.Block, Report) {
	var report Report
	byID := make(map[int]*models.Table, len(tables))
	for _, t := range tables {
		if t.Placeholder > 0 {
			byID[t.Placeholder] = t
		}
	}

	resolved := make(map[int]bool)
	out := make([]models.Block, 0, len(blocks)+len(tables))
	for _, b := range blocks {
		if b.Type == models.BlockParagraph && strings.TrimSpace(b.Text) == models.PendingMarker {
			continue
		}
		if b.Type == models.BlockParagraph || b.Type == models.BlockListItem {
			text, n := stripInlineTokens(b.Text, byID)
			report.Inline += n
			if n > 0 && text == "" {
				continue
			}
			b.Text = text
		}
		if b.Type != models.BlockPlaceholder {
			out = append(out, b)
			continue
		}
		t, ok := byID[b.Placeholder]
		switch {
		case !ok:
			Logger.Warn("dropping unknown placeholder", "id", b.Placeholder)
			report.Unknown++
		case resolved[b.Placeholder]:
			Logger.Warn("dropping duplicate placeholder", "id", b.Placeholder)
			report.Duplicates++
		default:
			resolved[b.Placeholder] = true
			if blk, ok := tableBlock(t); ok {
				out = append(out, blk)
				report.Resolved++
			} else {
				report.Skipped++
			}
		}
	}

	var pending []*models.Table
	for _, t := range tables {
		if !resolved[t.Placeholder] {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return out, report
	}

	groups, untagged := GroupBySection(pending)
	plan := PlanInsertions(out, groups)
	plan.Fallback = append(plan.Fallback, untagged...)
	out, applied := Apply(out, plan)
	report.Inserted += applied.Inserted
	report.Fallback += applied.Fallback
	report.Skipped += applied.Skipped
	Logger.Info("reinserted tables",
		"resolved", report.Resolved, "inserted", report.Inserted, "fallback", report.Fallback)
	return out, report
}

var (
	inlineToken    = regexp.MustCompile(`\b` + models.PlaceholderPrefix + `(\d+)\b`)
	emptyBrackets  = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	spaceRun       = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforeEnd = regexp.MustCompile(`[ \t]+([.,;:!?)])`)
)

// stripInlineTokens removes placeholder tokens of known tables that the rewriter
// left inside running text. Tokens of unknown ids are kept.
func stripInlineTokens(s string, known map[int]*models.Table) (string, int) {
	if !strings.Contains(s, models.PlaceholderPrefix) {
		return s, 0
	}
	removed := 0
	s = inlineToken.ReplaceAllStringFunc(s, func(tok string) string {
		n, err := strconv.Atoi(strings.TrimPrefix(tok, models.PlaceholderPrefix))
		if err != nil || known[n] == nil {
			return tok
		}
		removed++
		return ""
	})
	if removed == 0 {
		return s, 0
	}
	s = emptyBrackets.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	s = spaceBeforeEnd.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s), removed
}

// GroupBySection groups tables by section tag. Groups are ordered by the first
// appearance of their tag; tables without a tag are returned separately.
func GroupBySection(tables []*models.Table) ([]Group, []*models.Table) {
	var groups []Group
	var untagged []*models.Table
	index := make(map[string]int)
	for _, t := range tables {
		tag := strings.TrimSpace(t.SectionTag)
		if tag == "" {
			untagged = append(untagged, t)
			continue
		}
		i, ok := index[tag]
		if !ok {
			i = len(groups)
			index[tag] = i
			groups = append(groups, Group{Tag: tag})
		}
		groups[i].Tables = append(groups[i].Tables, t)
	}
	return groups, untagged
}

// PlanInsertions claims, for each group in order, the first unclaimed heading
// that matches its tag. The group goes in front of the next heading of the same
// or a higher level, or at the end of the document. Groups without a heading go
// to the fallback bucket.
func PlanInsertions(blocks []models.Block, groups []Group) Plan {
	var plan Plan
	claimed := make(map[int]bool)
	for _, g := range groups {
		h := -1
		for i, b := range blocks {
			if b.IsHeading() && !claimed[i] && HeadingsMatch(g.Tag, b.Text) {
				h = i
				break
			}
		}
		if h < 0 {
			Logger.Debug("no heading matches section", "section", g.Tag, "tables", len(g.Tables))
			plan.Fallback = append(plan.Fallback, g.Tables...)
			continue
		}
		claimed[h] = true
		plan.Insertions = append(plan.Insertions, Insertion{Position: sectionEnd(blocks, h), Heading: h, Group: g})
	}
	return plan
}

func sectionEnd(blocks []models.Block, h int) int {
	level := blocks[h].Level
	for i := h + 1; i < len(blocks); i++ {
		if blocks[i].IsHeading() && blocks[i].Level <= level {
			return i
		}
	}
	return len(blocks)
}

// Apply performs a plan. Insertions are applied from the bottom of the document
// up; at equal positions later entries go first so the earlier groups end up in
// front. Fallback tables are appended in placeholder order.
func Apply(blocks []models.Block, plan Plan) ([]models.Block, Report) {
	var report Report
	order := make([]int, len(plan.Insertions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := plan.Insertions[order[a]].Position, plan.Insertions[order[b]].Position
		if pa != pb {
			return pa > pb
		}
		return order[a] > order[b]
	})

	out := append([]models.Block(nil), blocks...)
	for _, i := range order {
		ins := plan.Insertions[i]
		var add []models.Block
		for _, t := range ins.Group.Tables {
			if blk, ok := tableBlock(t); ok {
				add = append(add, blk)
			} else {
				report.Skipped++
			}
		}
		if len(add) == 0 {
			continue
		}
		pos := min(max(ins.Position, 0), len(out))
		out = append(out[:pos], append(add, out[pos:]...)...)
		report.Inserted += len(add)
	}

	fallback := append([]*models.Table(nil), plan.Fallback...)
	sort.SliceStable(fallback, func(a, b int) bool { return fallback[a].Placeholder < fallback[b].Placeholder })
	for _, t := range fallback {
		if blk, ok := tableBlock(t); ok {
			out = append(out, blk)
			report.Fallback++
		} else {
			report.Skipped++
		}
	}
	return out, report
}

func tableBlock(t *models.Table) (models.Block, bool) {
	rows := table.CleanRows(t.Rows)
	if len(rows) == 0 {
		Logger.Warn("skipping table with no content", "page", t.Page, "placeholder", t.Placeholder)
		return models.Block{}, false
	}
	return models.TableBlock(rows), true
}
