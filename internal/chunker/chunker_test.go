package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

func newTestChunker(t *testing.T, lang string) *Chunker {
	t.Helper()
	cfg := config.Default()
	set, err := NewSet(cfg.Chunker, cfg.Languages)
	require.NoError(t, err)
	return set.ForLanguage(lang)
}

func textLayerPage(number int, text string) domain.Page {
	return domain.Page{Number: number, Method: domain.MethodTextLayer, Text: text}
}

func ocrPage(number int, text string) domain.Page {
	return domain.Page{Number: number, Method: domain.MethodOCR, Text: text}
}

func TestSegment_SingleChapterAcrossPages(t *testing.T) {
	c := newTestChunker(t, "en")
	pages := []domain.Page{
		textLayerPage(1, "Chapter 1\nElectric current is the flow of charge through a conductor."),
		ocrPage(2, "Resistance opposes that flow and converts energy to heat."),
	}

	tree, chunks := c.Segment(pages, "doc-1", "physics")

	require.Len(t, tree.Nodes, 1)
	node := tree.Nodes[0]
	assert.Equal(t, "Chapter 1", node.Title)
	assert.Equal(t, 1, node.Level)
	assert.Equal(t, domain.RootNodeID, node.ParentID)
	assert.Equal(t, 1, node.StartPage)
	assert.Equal(t, 2, node.EndPage)

	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, []string{"Chapter 1"}, ch.Path)
		assert.Equal(t, "doc-1", ch.DocumentID)
		assert.Equal(t, "physics", ch.Subject)
		assert.Equal(t, domain.ChunkPending, ch.Status)
		assert.NotEmpty(t, ch.ID)
	}
}

func TestSegment_LeadingTextBecomesFallbackNode(t *testing.T) {
	c := newTestChunker(t, "en")
	pages := []domain.Page{
		textLayerPage(1, "This preface text has no heading above it.\nChapter 1\nThe chapter body follows."),
	}

	tree, chunks := c.Segment(pages, "doc-1", "physics")

	require.Len(t, tree.Nodes, 2)
	fallback := tree.Nodes[0]
	assert.Empty(t, fallback.Title)
	assert.Equal(t, 1, fallback.Level)
	assert.Equal(t, domain.RootNodeID, fallback.ParentID)

	chapter := tree.Nodes[1]
	assert.Equal(t, "Chapter 1", chapter.Title)
	assert.Equal(t, 1, chapter.Level)
	assert.Equal(t, domain.RootNodeID, chapter.ParentID)

	// The preface is preserved, its path empty since fallback has no title.
	require.Len(t, chunks, 2)
	assert.Empty(t, chunks[0].Path)
	assert.Contains(t, chunks[0].Text, "preface")
	assert.Equal(t, []string{"Chapter 1"}, chunks[1].Path)
}

func TestSegment_NestedHierarchy(t *testing.T) {
	c := newTestChunker(t, "en")
	pages := []domain.Page{
		textLayerPage(1, strings.Join([]string{
			"Unit 1",
			"Chapter 1",
			"Lesson 1",
			"First lesson body.",
			"Lesson 2",
			"Second lesson body.",
			"Chapter 2",
			"Second chapter body.",
		}, "\n")),
	}

	tree, chunks := c.Segment(pages, "doc-1", "physics")

	require.Len(t, tree.Nodes, 5)
	unit := tree.Nodes[0]
	assert.Equal(t, "Unit 1", unit.Title)
	assert.Equal(t, 1, unit.Level)
	assert.Equal(t, []int{1, 4}, unit.ChildIDs)

	chapter1 := tree.Nodes[1]
	assert.Equal(t, 2, chapter1.Level)
	assert.Equal(t, unit.ID, chapter1.ParentID)
	assert.Equal(t, []int{2, 3}, chapter1.ChildIDs)

	lesson2 := tree.Nodes[3]
	assert.Equal(t, "Lesson 2", lesson2.Title)
	assert.Equal(t, 3, lesson2.Level)

	chapter2 := tree.Nodes[4]
	assert.Equal(t, "Chapter 2", chapter2.Title)
	assert.Equal(t, 2, chapter2.Level)
	assert.Equal(t, unit.ID, chapter2.ParentID)

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"Unit 1", "Chapter 1", "Lesson 1"}, chunks[0].Path)
	assert.Equal(t, []string{"Unit 1", "Chapter 1", "Lesson 2"}, chunks[1].Path)
	assert.Equal(t, []string{"Unit 1", "Chapter 2"}, chunks[2].Path)
}

func TestSegment_NumberedHeadingsNestUnderActive(t *testing.T) {
	c := newTestChunker(t, "en")
	pages := []domain.Page{
		textLayerPage(1, strings.Join([]string{
			"Chapter 1",
			"Section 1",
			"Section body text here.",
		}, "\n")),
	}

	tree, _ := c.Segment(pages, "doc-1", "physics")

	require.Len(t, tree.Nodes, 2)
	section := tree.Nodes[1]
	assert.Equal(t, "Section 1", section.Title)
	assert.Equal(t, tree.Nodes[0].ID, section.ParentID)
	assert.Equal(t, 2, section.Level)
}

func TestSegment_ArabicMarkers(t *testing.T) {
	c := newTestChunker(t, "ar")
	pages := []domain.Page{
		textLayerPage(1, strings.Join([]string{
			"الباب الأول",
			"الفصل الأول",
			"الدرس الأول",
			"التيار الكهربائي هو تدفق الشحنات في الموصل.",
		}, "\n")),
	}

	tree, chunks := c.Segment(pages, "doc-1", "physics")

	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, "الباب الأول", tree.Nodes[0].Title)
	assert.Equal(t, 1, tree.Nodes[0].Level)
	assert.Equal(t, 2, tree.Nodes[1].Level)
	assert.Equal(t, 3, tree.Nodes[2].Level)

	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"الباب الأول", "الفصل الأول", "الدرس الأول"}, chunks[0].Path)
}

func TestSegment_UnextractablePagesSkipped(t *testing.T) {
	c := newTestChunker(t, "en")
	pages := []domain.Page{
		textLayerPage(1, "Chapter 1\nBody on the first page."),
		{Number: 2, Method: domain.MethodUnextractable},
		textLayerPage(3, "Body on the third page."),
	}

	tree, chunks := c.Segment(pages, "doc-1", "physics")

	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, 3, tree.Nodes[0].EndPage)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "first page")
	assert.Contains(t, chunks[0].Text, "third page")
}

func TestSegment_EmptyDocument(t *testing.T) {
	c := newTestChunker(t, "en")
	tree, chunks := c.Segment(nil, "doc-1", "physics")
	assert.Empty(t, tree.Nodes)
	assert.Empty(t, chunks)
}

func TestSegment_PositionsAreMonotonic(t *testing.T) {
	c := newTestChunker(t, "en")
	pages := []domain.Page{
		textLayerPage(1, "Chapter 1\nFirst body.\n\nChapter 2\nSecond body.\n\nChapter 3\nThird body."),
	}

	_, chunks := c.Segment(pages, "doc-1", "physics")
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Position)
	}
}

func TestSegment_ChunksNeverCrossTopLevelNodes(t *testing.T) {
	cfg := config.Default()
	// Generous bounds so merging across chapters would be possible by size.
	cfg.Chunker.MinChars = 200
	cfg.Chunker.MaxChars = 2000
	set, err := NewSet(cfg.Chunker, cfg.Languages)
	require.NoError(t, err)
	c := set.ForLanguage("en")

	pages := []domain.Page{
		textLayerPage(1, "Chapter 1\nShort body one.\nChapter 2\nShort body two."),
	}

	_, chunks := c.Segment(pages, "doc-1", "physics")

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"Chapter 1"}, chunks[0].Path)
	assert.NotContains(t, chunks[0].Text, "two")
	assert.Equal(t, []string{"Chapter 2"}, chunks[1].Path)
}

func TestSegment_ShortLeafStillEmitted(t *testing.T) {
	c := newTestChunker(t, "en")
	pages := []domain.Page{
		textLayerPage(1, "Chapter 1\nTiny."),
	}

	_, chunks := c.Segment(pages, "doc-1", "physics")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Tiny.", chunks[0].Text)
	assert.Less(t, chunks[0].Length(), config.Default().Chunker.MinChars)
}

func TestSegment_ShortParagraphBorrowsFromNext(t *testing.T) {
	c := newTestChunker(t, "en")
	long := strings.TrimSpace(strings.Repeat("Electric current heats the filament wire. ", 14))
	pages := []domain.Page{
		textLayerPage(1, "Chapter 1\nOhm stated a law.\n"+long),
	}

	_, chunks := c.Segment(pages, "doc-1", "physics")

	require.Greater(t, len(chunks), 1)
	first := chunks[0]
	assert.True(t, strings.HasPrefix(first.Text, "Ohm stated a law."))
	assert.GreaterOrEqual(t, first.Length(), c.cfg.MinChars)
	assert.LessOrEqual(t, first.Length(), c.cfg.MaxChars)
}

func TestSegment_NonFinalChunksWithinBounds(t *testing.T) {
	c := newTestChunker(t, "en")
	long := strings.TrimSpace(strings.Repeat("Heat flows from the hotter body to the colder one. ", 12))
	pages := []domain.Page{
		textLayerPage(1, strings.Join([]string{
			"Chapter 1",
			"Heat moves in three ways.",
			long,
			"Conduction needs contact.",
			long,
			"Radiation needs no medium.",
		}, "\n")),
	}

	_, chunks := c.Segment(pages, "doc-1", "physics")

	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.Length(), c.cfg.MaxChars, "chunk %d", i)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, ch.Length(), c.cfg.MinChars, "chunk %d", i)
		}
	}
}

func TestSegment_OversizedSentenceCutWithinBounds(t *testing.T) {
	c := newTestChunker(t, "en")
	sentence := strings.TrimSpace(strings.Repeat("thermal equilibrium ", 45)) + "."
	pages := []domain.Page{
		textLayerPage(1, "Chapter 1\n"+sentence),
	}

	_, chunks := c.Segment(pages, "doc-1", "physics")

	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.Length(), c.cfg.MaxChars, "chunk %d", i)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, ch.Length(), c.cfg.MinChars, "chunk %d", i)
		}
	}
}

func TestNewSet_BadPatternFails(t *testing.T) {
	_, err := NewSet(config.Default().Chunker, map[string]config.LanguageConfig{
		"en": {Markers: []config.MarkerRule{{Class: "unit", Pattern: "(["}}},
	})
	assert.Error(t, err)
}

func TestNewSet_UnknownClassFails(t *testing.T) {
	_, err := NewSet(config.Default().Chunker, map[string]config.LanguageConfig{
		"en": {Markers: []config.MarkerRule{{Class: "volume", Pattern: "^Volume"}}},
	})
	assert.Error(t, err)
}
