package extractor

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// pdfSource adapts a ledongthuc/pdf reader to PageSource.
type pdfSource struct {
	file   *os.File
	reader *pdf.Reader
}

// OpenPDF opens the PDF at path for page-by-page glyph extraction.
func OpenPDF(path string) (PageSource, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &pdfSource{file: f, reader: r}, nil
}

func (s *pdfSource) NumPages() int {
	return s.reader.NumPage()
}

// PageGlyphs reads positioned text fragments from the page's content
// stream. The underlying library panics on malformed content streams, so
// the call is fenced with recover; a damaged page degrades to the OCR path
// instead of killing the batch.
func (s *pdfSource) PageGlyphs(number int) (glyphs []Glyph, width, height float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			glyphs, err = nil, fmt.Errorf("malformed page content: %v", r)
		}
	}()

	p := s.reader.Page(number)
	if p.V.IsNull() {
		return nil, 0, 0, fmt.Errorf("page %d missing", number)
	}

	width, height = mediaBoxSize(p)

	content := p.Content()
	glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		glyphs = append(glyphs, Glyph{
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
			S:        t.S,
		})
	}
	return glyphs, width, height, nil
}

func (s *pdfSource) Close() error {
	return s.file.Close()
}

// mediaBoxSize resolves the page media box, walking up the page tree for
// inherited values. Falls back to A4 when absent.
func mediaBoxSize(p pdf.Page) (width, height float64) {
	width, height = 595, 842

	v := p.V
	for !v.IsNull() {
		box := v.Key("MediaBox")
		if !box.IsNull() && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return width, height
}
