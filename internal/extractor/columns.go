package extractor

import (
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// minColumnShare is the minimum fraction of a page's glyphs each side of a
// gutter must hold. Guards against mistaking an indented margin note for a
// second column.
const minColumnShare = 0.15

// DetectColumns analyses glyph geometry for a vertical gutter: a glyph-free
// horizontal gap of at least GutterMinWidth points whose centre lies within
// GutterCenterBand of the page centre. Pages with such a gutter are
// two-column; everything else is treated as single-column.
func DetectColumns(glyphs []Glyph, pageWidth float64, cfg config.ExtractorConfig) domain.ColumnLayout {
	single := domain.ColumnLayout{Columns: 1}
	if len(glyphs) < 8 || pageWidth <= 0 {
		return single
	}

	type span struct{ start, end float64 }
	spans := make([]span, 0, len(glyphs))
	for _, g := range glyphs {
		end := g.X + g.W
		if end <= g.X {
			end = g.X + 1
		}
		spans = append(spans, span{g.X, end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	lo := pageWidth * (0.5 - cfg.GutterCenterBand)
	hi := pageWidth * (0.5 + cfg.GutterCenterBand)

	var (
		boundary float64
		bestGap  float64
	)
	maxEnd := spans[0].end
	for _, s := range spans[1:] {
		gap := s.start - maxEnd
		centre := maxEnd + gap/2
		if gap >= cfg.GutterMinWidth && gap > bestGap && centre >= lo && centre <= hi {
			bestGap = gap
			boundary = centre
		}
		if s.end > maxEnd {
			maxEnd = s.end
		}
	}
	if bestGap == 0 {
		return single
	}

	left := 0
	for _, g := range glyphs {
		if g.X+g.W/2 < boundary {
			left++
		}
	}
	share := float64(left) / float64(len(glyphs))
	if share < minColumnShare || share > 1-minColumnShare {
		return single
	}

	return domain.ColumnLayout{Columns: 2, Boundaries: []float64{boundary}}
}

// AssembleText orders glyphs into reading order and joins them into lines.
// For two-column pages the left column is emitted first, each column
// top-to-bottom, so sentences are never interleaved across the gutter.
func AssembleText(glyphs []Glyph, layout domain.ColumnLayout) string {
	if len(glyphs) == 0 {
		return ""
	}
	if layout.Columns < 2 || len(layout.Boundaries) == 0 {
		return assembleLines(glyphs)
	}

	boundary := layout.Boundaries[0]
	var left, right []Glyph
	for _, g := range glyphs {
		if g.X+g.W/2 < boundary {
			left = append(left, g)
		} else {
			right = append(right, g)
		}
	}

	parts := make([]string, 0, 2)
	if s := assembleLines(left); s != "" {
		parts = append(parts, s)
	}
	if s := assembleLines(right); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// assembleLines groups glyphs into baseline rows (top-to-bottom, PDF y axis
// points up) and joins fragments left-to-right, inserting spaces at
// word-sized horizontal gaps.
func assembleLines(glyphs []Glyph) string {
	if len(glyphs) == 0 {
		return ""
	}

	sorted := make([]Glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var (
		lines []string
		row   []Glyph
		rowY  float64
	)
	flush := func() {
		if len(row) == 0 {
			return
		}
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		var b strings.Builder
		for i, g := range row {
			if i > 0 {
				prev := row[i-1]
				gap := g.X - (prev.X + prev.W)
				if gap > wordGapThreshold(prev) && !endsWithSpace(b.String()) {
					b.WriteByte(' ')
				}
			}
			b.WriteString(g.S)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
		row = row[:0]
	}

	for _, g := range sorted {
		if len(row) == 0 {
			rowY = g.Y
			row = append(row, g)
			continue
		}
		tolerance := g.FontSize * 0.5
		if tolerance < 2 {
			tolerance = 2
		}
		if rowY-g.Y > tolerance {
			flush()
			rowY = g.Y
		}
		row = append(row, g)
	}
	flush()

	return strings.Join(lines, "\n")
}

func wordGapThreshold(g Glyph) float64 {
	if g.FontSize > 0 {
		return g.FontSize * 0.25
	}
	return 1.5
}

func endsWithSpace(s string) bool {
	return s != "" && s[len(s)-1] == ' '
}

// scriptRatio returns the share of recognisable-script runes (Arabic or
// Latin letters and digits) among non-space runes. Garbled extraction -
// wrong encodings, dingbat soup - scores low and fails the gate.
func scriptRatio(text string) float64 {
	var total, script int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Arabic, r),
			unicode.Is(unicode.Latin, r),
			unicode.IsDigit(r):
			script++
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			// Punctuation and math symbols are neutral: count the rune
			// but credit half so formula-dense pages still pass.
			script++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(script) / float64(total)
}
