package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/models"
	"github.com/schmogen/protocol-converter-mvp/internal/table"
	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

var Logger = logger.GetLogger("markdown")

var headingRe = regexp.MustCompile(`^(#{1,4})\s+(.+)$`)

// Parse reads the rewritten protocol into blocks.
func Parse(md string) []models.Block {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	var blocks []models.Block
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if n, ok := models.ParsePlaceholder(line); ok {
			blocks = append(blocks, models.PlaceholderBlock(n))
			continue
		}
		if strings.HasPrefix(line, "|") {
			j := i
			var run []string
			for j < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[j]), "|") {
				run = append(run, strings.TrimSpace(lines[j]))
				j++
			}
			for _, chunk := range table.SplitBlocks(run) {
				if rows := table.ParseMarkdown(chunk); len(rows) > 0 {
					blocks = append(blocks, models.TableBlock(rows))
				}
			}
			i = j - 1
			continue
		}
		blocks = append(blocks, parseLine(line))
	}
	Logger.Debug("parsed markdown", "lines", len(lines), "blocks", len(blocks))
	return blocks
}

func parseLine(line string) models.Block {
	if m := headingRe.FindStringSubmatch(line); m != nil {
		return models.Heading(len(m[1]), strings.TrimSpace(m[2]))
	}
	// Checklist items keep their "[ ]" box in the text.
	if rest, ok := text.BulletItem(line); ok {
		return models.Bullet(rest)
	}
	if rest, ok := text.NumberedItem(line); ok {
		return models.Numbered(rest)
	}
	return models.Paragraph(line)
}

// Format writes blocks back to markdown. Numbered items are renumbered from 1
// after every heading.
func Format(blocks []models.Block) string {
	var b strings.Builder
	ordinal := 0
	var prev *models.Block
	for i := range blocks {
		blk := &blocks[i]
		if prev != nil {
			if sameList(prev, blk) {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		switch blk.Type {
		case models.BlockHeading:
			ordinal = 0
			b.WriteString(strings.Repeat("#", max(1, min(blk.Level, 4))) + " " + blk.Text)
		case models.BlockListItem:
			if blk.List == models.ListNumbered {
				ordinal++
				fmt.Fprintf(&b, "%d. %s", ordinal, blk.Text)
			} else {
				b.WriteString("- " + blk.Text)
			}
		case models.BlockTable:
			b.WriteString(table.FormatRows(blk.Rows))
		case models.BlockPlaceholder:
			b.WriteString(models.PlaceholderToken(blk.Placeholder))
		default:
			b.WriteString(blk.Text)
		}
		prev = blk
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + "\n"
}

func sameList(a, b *models.Block) bool {
	return a.Type == models.BlockListItem && b.Type == models.BlockListItem && a.List == b.List
}
