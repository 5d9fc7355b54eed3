package extractor

import (
	"strings"

	"github.com/schmogen/protocol-converter-mvp/internal/text"
)

// lineFilter is one step applied to the text of every extracted line.
type lineFilter func(string) string

// Ligatures are split back into letters. Full NFKC is avoided here because it
// would also fold unit glyphs such as "cm²" and "µL".
var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬆ", "st",
)

var lineFilters = []lineFilter{
	dropBrokenRunes,
	ligatures.Replace,
	text.NormalizeText,
	strings.TrimSpace,
	text.NormalizeBulletPrefix,
}

func cleanLine(s string) string {
	for _, f := range lineFilters {
		if s == "" {
			return ""
		}
		s = f(s)
	}
	return s
}

// dropBrokenRunes removes invalid UTF-8, replacement characters and soft hyphens.
func dropBrokenRunes(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\uFFFD' || r == '\u00AD' {
			return -1
		}
		return r
	}, s)
}
