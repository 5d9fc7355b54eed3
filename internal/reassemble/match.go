package reassemble

import (
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

const minSharedRun = 4

// HeadingsMatch reports whether a section tag taken from the source PDF names the
// same section as a heading of the rewritten document. Both are normalized; they
// match when one contains the other or when four consecutive source words appear
// consecutively in the heading.
func HeadingsMatch(src, heading string) bool {
	s, h := text.NormalizeKey(src), text.NormalizeKey(heading)
	if s == "" || h == "" {
		return false
	}
	if strings.Contains(h, s) || strings.Contains(s, h) {
		return true
	}
	sw, hw := text.Words(s), text.Words(h)
	for i := 0; i+minSharedRun <= len(sw); i++ {
		if containsRun(hw, sw[i:i+minSharedRun]) {
			return true
		}
	}
	return false
}

func containsRun(words, run []string) bool {
	for i := 0; i+len(run) <= len(words); i++ {
		match := true
		for k, w := range run {
			if words[i+k] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
