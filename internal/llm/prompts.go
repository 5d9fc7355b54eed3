package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/schmogen/protocol-converter-mvp/internal/models"
)

const flagInputLimit = 60_000

const visionPrompt = "This page contains one or more tables. Extract each table you see and return them " +
	"as markdown pipe-formatted tables, one after another, separated by a blank line. Include the header " +
	"row and a separator row of dashes. Return only the markdown tables, nothing else."

var editorRules = []string{
	"Follow the output contract below strictly. Do not add or invent scientific content.",
	"Copy every number, unit, time, temperature and concentration exactly. Write [CHECK] where the source is unclear instead of guessing.",
	"Keep each line of the form " + models.PlaceholderPrefix + "N exactly as written, alone on its own line, at the point where it appears in the input. Never renumber, merge or drop these lines and do not reproduce the tables they stand for.",
	"Use markdown headings of level 1 to 4 for every section heading of the source, with the source wording and in source order. Do not invent headings.",
	"Write procedural steps as numbered items (\"1. text\") and other lists as bullets (\"- text\"). Restart numbering at 1 after every heading.",
	"Every numbered step must be a complete sentence. Rebuild steps that start mid-sentence.",
	"Do not add review checklists, flags, summaries or commentary.",
}

func rewritePrompt(ruleset, cleaned string, limit int) string {
	var sb strings.Builder
	sb.WriteString("You are a careful scientific editor converting an extracted lab protocol into markdown.\n\n")
	for _, r := range editorRules {
		sb.WriteString("- " + r + "\n")
	}
	sb.WriteString("\n--- CONTRACT ---\n")
	sb.WriteString(strings.TrimSpace(ruleset))
	sb.WriteString("\n\n--- INPUT TEXT ---\n")
	sb.WriteString(truncate(cleaned, limit, "\n\n[TRUNCATED: input exceeded MAX_INPUT_CHARS]\n"))
	return sb.String()
}

func flagPrompt(cleaned, protocol string) string {
	return fmt.Sprintf(`You are a scientific QA reviewer. Flag risk, do not rewrite.

Compare the SOURCE TEXT extracted from a PDF with the GENERATED PROTOCOL and return a markdown report with these sections:

## Critical Parameters Checklist (from the protocol)
Key numeric parameters in the protocol (temperatures, times, volumes, concentrations, rpm/RCF, CO2/O2). Write "MISSING" for absent categories.

## Potential Missing Parameters (compare to source)
Parameters present in the source that are missing or unclear in the protocol. Cite only what the source supports.

## Possible Unsupported Claims
Protocol statements the source does not clearly support, or "None detected".

## Step Order / Omission Risks
Suspected omitted or reordered steps, or "None detected".

Be conservative, label uncertain items "[CHECK]" and use short bullet points.

--- SOURCE TEXT ---
%s

--- GENERATED PROTOCOL ---
%s`,
		truncate(cleaned, flagInputLimit, "\n\n[TRUNCATED]\n"),
		truncate(protocol, flagInputLimit, "\n\n[TRUNCATED]\n"))
}

// truncate cuts s to limit runes and appends note when anything was cut.
func truncate(s string, limit int, note string) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	Logger.Warn("input truncated", "runes", utf8.RuneCountInString(s), "limit", limit)
	return string([]rune(s)[:limit]) + note
}
