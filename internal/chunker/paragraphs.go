package chunker

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// line is one physical text line with its source page number.
type line struct {
	text string
	page int
}

// paragraph is a reconstructed logical paragraph spanning one or more lines.
type paragraph struct {
	text      string
	startPage int
	endPage   int
}

// splitLines flattens extracted pages into a line stream, skipping
// unextractable pages and blank lines.
func splitLines(pages []domain.Page) []line {
	var lines []line
	for _, p := range pages {
		if p.Unextractable() {
			continue
		}
		for _, raw := range strings.Split(p.Text, "\n") {
			text := strings.TrimSpace(raw)
			if text == "" {
				continue
			}
			lines = append(lines, line{text: text, page: p.Number})
		}
	}
	return lines
}

// reconstructParagraphs merges lines broken by OCR or column splits back
// into paragraphs. A line lacking terminal punctuation merges with its
// successor when the successor starts in continuation form, including
// across a page boundary when the pages are adjacent.
func reconstructParagraphs(lines []line) []paragraph {
	var paras []paragraph
	var cur *paragraph

	for i, l := range lines {
		if cur == nil {
			paras = append(paras, paragraph{text: l.text, startPage: l.page, endPage: l.page})
			cur = &paras[len(paras)-1]
		} else {
			cur.text += " " + l.text
			cur.endPage = l.page
		}

		if endsTerminal(l.text) || i+1 >= len(lines) {
			cur = nil
			continue
		}
		next := lines[i+1]
		if !continuationStart(next.text) || next.page-l.page > 1 {
			cur = nil
		}
	}
	return paras
}

// endsTerminal reports whether the line ends a sentence. Trailing closing
// quotes and brackets are looked through.
func endsTerminal(s string) bool {
	runes := []rune(strings.TrimRight(s, " \t"))
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case '"', '\'', ')', ']', '»', '”':
			continue
		case '.', '!', '?', ':', ';', '…', '؟', '؛', '۔':
			return true
		default:
			return false
		}
	}
	return false
}

// continuationStart reports whether the line reads as the continuation of a
// broken sentence. Lowercase Latin counts; Arabic has no case, so any Arabic
// letter counts. Digits, uppercase and list bullets start fresh paragraphs.
func continuationStart(s string) bool {
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			return true
		case unicode.Is(unicode.Arabic, r):
			return true
		default:
			return false
		}
	}
	return false
}
