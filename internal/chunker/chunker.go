// Package chunker reconstructs paragraphs from extracted curriculum pages,
// segments them along the document's unit/chapter/lesson hierarchy, and
// emits bounded retrieval chunks tagged with their ancestor path.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// Chunker segments pages for one curriculum language.
type Chunker struct {
	cfg     config.ChunkerConfig
	markers *markerSet
}

// New creates a chunker from size bounds and a language's marker rules.
func New(cfg config.ChunkerConfig, rules []config.MarkerRule) (*Chunker, error) {
	markers, err := compileMarkers(rules)
	if err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg, markers: markers}, nil
}

// Set holds one compiled chunker per configured language.
type Set struct {
	byLanguage map[string]*Chunker
}

// NewSet compiles a chunker for every configured language.
func NewSet(cfg config.ChunkerConfig, langs map[string]config.LanguageConfig) (*Set, error) {
	set := &Set{byLanguage: make(map[string]*Chunker, len(langs))}
	for key, lang := range langs {
		c, err := New(cfg, lang.Markers)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", key, err)
		}
		set.byLanguage[key] = c
	}
	return set, nil
}

// ForLanguage returns the chunker for a language key, falling back to "en".
func (s *Set) ForLanguage(lang string) *Chunker {
	if c, ok := s.byLanguage[lang]; ok {
		return c
	}
	return s.byLanguage["en"]
}

// Segment builds the hierarchy tree for a document's pages and emits its
// chunks in document order. Unextractable pages are skipped; text before the
// first marker lands in an untitled fallback node. Every chunk's text stays
// within a single root-level node.
func (c *Chunker) Segment(pages []domain.Page, docID, subject string) (*domain.HierarchyTree, []domain.Chunk) {
	builder := newTreeBuilder()
	builder.build(splitLines(pages), c.markers)

	var chunks []domain.Chunk
	position := 0
	// Arena order is document order, so walking it emits depth-first.
	for _, node := range builder.tree.Nodes {
		span := builder.spans[node.ID]
		if len(span) == 0 {
			continue
		}
		path := builder.tree.Path(node.ID)
		for _, text := range c.pack(reconstructParagraphs(span)) {
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.New().String(),
				DocumentID: docID,
				Subject:    subject,
				Path:       path,
				Text:       text,
				Position:   position,
				Status:     domain.ChunkPending,
			})
			position++
		}
	}
	return builder.tree, chunks
}

// unit is one packable piece of a span: a whole paragraph, or a sentence
// once its paragraph had to be broken up.
type unit struct {
	text      string
	paraStart bool
	whole     bool
}

// pack joins paragraphs into chunk texts within the configured bounds, and
// every chunk except the span's final one satisfies both bounds. Breaks land
// on paragraph boundaries where possible and sentence ends otherwise; when a
// chunk is still under the minimum and the next sentence cannot fit, the
// sentence is cut mid-word to fill the chunk rather than flushing it short.
func (c *Chunker) pack(paras []paragraph) []string {
	units := make([]unit, 0, len(paras))
	for _, p := range paras {
		units = append(units, unit{text: p.text, paraStart: true, whole: true})
	}

	var out []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for i := 0; i < len(units); {
		u := units[i]
		n := runeLen(u.text)
		sep := ""
		if curLen > 0 {
			sep = " "
			if u.paraStart {
				sep = "\n\n"
			}
		}

		if curLen+runeLen(sep)+n <= c.cfg.MaxChars {
			cur.WriteString(sep)
			cur.WriteString(u.text)
			curLen += runeLen(sep) + n
			i++
			continue
		}

		// The unit does not fit. A chunk that already meets the minimum
		// closes on this boundary; otherwise break the paragraph into
		// sentences and borrow from them.
		if curLen >= c.cfg.MinChars {
			flush()
			continue
		}
		if u.whole {
			if sentences := splitSentences(u.text); len(sentences) > 1 {
				repl := make([]unit, len(sentences))
				for j, s := range sentences {
					repl[j] = unit{text: s, paraStart: j == 0 && u.paraStart}
				}
				units = append(units[:i], append(repl, units[i+1:]...)...)
				continue
			}
			units[i].whole = false
			continue
		}

		head, tail := cutToFill(u.text,
			c.cfg.MaxChars-curLen-runeLen(sep),
			c.cfg.MinChars-curLen-runeLen(sep))
		cur.WriteString(sep)
		cur.WriteString(head)
		curLen += runeLen(sep) + runeLen(head)
		flush()
		units[i].text = tail
		units[i].paraStart = false
		if tail == "" {
			i++
		}
	}
	flush()
	return out
}

// cutToFill slices text so that the head fills the rest of the current
// chunk: at the last space inside the window that still leaves at least
// need runes, or mid-word at the window edge when no such space exists.
func cutToFill(text string, window, need int) (head, tail string) {
	runes := []rune(text)
	if need < 1 {
		need = 1
	}
	cut := window
	for i := window; i > need; i-- {
		if unicode.IsSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}
	head = strings.TrimSpace(string(runes[:cut]))
	tail = strings.TrimSpace(string(runes[cut:]))
	return head, tail
}

// splitSentences breaks text at terminal punctuation followed by a space.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminalRune(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		s := strings.TrimSpace(string(runes[start : i+1]))
		if s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminalRune(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '؟', '۔':
		return true
	}
	return false
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
