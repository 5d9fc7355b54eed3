package text

import (
	"regexp"
	"strings"
)

var (
	hyphenBreak   = regexp.MustCompile(`(\w)-\n(\w)`)
	paragraphGap  = regexp.MustCompile(`\n[ \t]*\n[\s]*`)
	horizontalRun = regexp.MustCompile(`[ \t]+`)
)

// Clean prepares extracted page text for rewriting. Words hyphenated across a line
// break are joined, single line breaks are unwrapped into spaces, blank lines stay
// as paragraph breaks, and runs of spaces are collapsed.
func Clean(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = hyphenBreak.ReplaceAllString(s, "$1$2")

	var paragraphs []string
	for _, para := range paragraphGap.Split(s, -1) {
		para = strings.ReplaceAll(para, "\n", " ")
		para = strings.TrimSpace(horizontalRun.ReplaceAllString(para, " "))
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// CleanPreserving is Clean for text that carries marker lines. Every line for which
// keep returns true survives verbatim as its own paragraph; the text between marker
// lines is cleaned independently.
func CleanPreserving(raw string, keep func(line string) bool) string {
	var parts []string
	var pending []string
	flush := func() {
		if cleaned := Clean(strings.Join(pending, "\n")); cleaned != "" {
			parts = append(parts, cleaned)
		}
		pending = pending[:0]
	}
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if keep(strings.TrimSpace(line)) {
			flush()
			parts = append(parts, strings.TrimSpace(line))
			continue
		}
		pending = append(pending, line)
	}
	flush()
	return strings.Join(parts, "\n\n")
}
