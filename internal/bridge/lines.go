package bridge

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/schmogen/protocol-converter-mvp/internal/geometry"
)

// RawLine is a run of chars sharing a baseline with no large horizontal gap.
// Chars[CharStart : CharStart+CharCount] are its chars in left-to-right order.
type RawLine struct {
	BBox                 geometry.Rect
	CharStart, CharCount int
}

const (
	lineYTolRatio  = 0.5
	columnGapRatio = 2.5
	spaceGapRatio  = 0.25
)

// BuildLines groups chars into lines and returns the chars reordered so that every
// line is a contiguous slice.
func BuildLines(chars []RawChar) ([]RawChar, []RawLine) {
	if len(chars) == 0 {
		return nil, nil
	}
	sorted := make([]RawChar, len(chars))
	copy(sorted, chars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.Y1 < sorted[j].BBox.Y1
	})

	// Bands of chars whose baselines agree within half a font size.
	var bands [][]RawChar
	var bandBase float64
	for _, ch := range sorted {
		tol := math.Max(ch.Size*lineYTolRatio, 1.0)
		if len(bands) == 0 || math.Abs(ch.BBox.Y1-bandBase) > tol {
			bands = append(bands, []RawChar{ch})
			bandBase = ch.BBox.Y1
			continue
		}
		bands[len(bands)-1] = append(bands[len(bands)-1], ch)
	}

	out := make([]RawChar, 0, len(chars))
	var lines []RawLine
	for _, band := range bands {
		sort.SliceStable(band, func(i, j int) bool { return band[i].BBox.X0 < band[j].BBox.X0 })
		start := 0
		for i := 1; i <= len(band); i++ {
			if i < len(band) {
				gap := band[i].BBox.X0 - band[i-1].BBox.X1
				if gap <= math.Max(band[i-1].Size, band[i].Size)*columnGapRatio {
					continue
				}
			}
			line := RawLine{CharStart: len(out), CharCount: i - start}
			for _, ch := range band[start:i] {
				line.BBox = line.BBox.Union(ch.BBox)
				out = append(out, ch)
			}
			if strings.TrimSpace(LineText(out[line.CharStart:])) != "" {
				lines = append(lines, line)
			} else {
				out = out[:line.CharStart]
			}
			start = i
		}
	}
	return out, lines
}

// LineText joins chars that are already in reading order, inserting a space where
// the gap between glyphs is wider than a quarter of the font size.
func LineText(chars []RawChar) string {
	var b strings.Builder
	prevX1, havePrev, prevSpace := 0.0, false, false
	for _, ch := range chars {
		if ch.Codepoint == 0 || ch.Codepoint == 0xFEFF {
			continue
		}
		if unicode.IsSpace(ch.Codepoint) {
			b.WriteByte(' ')
			prevX1, havePrev, prevSpace = ch.BBox.X1, true, true
			continue
		}
		if havePrev && !prevSpace && ch.BBox.X0-prevX1 > math.Max(ch.Size*spaceGapRatio, 1.0) {
			b.WriteByte(' ')
		}
		b.WriteRune(ch.Codepoint)
		prevX1, havePrev, prevSpace = ch.BBox.X1, true, false
	}
	return collapseSpaces(strings.TrimSpace(b.String()))
}

func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// LineChars returns the chars of a line.
func (raw *RawPageData) LineChars(l RawLine) []RawChar {
	return raw.Chars[l.CharStart : l.CharStart+l.CharCount]
}
