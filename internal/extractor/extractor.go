// Package extractor turns PDF pages into raw text with page-level
// accounting. It prefers the PDF text layer and falls back to OCR when the
// layer is missing or garbled, so no page is silently dropped: every page
// ends up extracted by one method or flagged unextractable.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/muallim-cli/internal/logger"
)

// Glyph is one positioned text fragment from a page's text layer.
// Coordinates are PDF page points with the origin at the bottom left.
type Glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

// PageSource yields per-page glyph geometry for one document.
type PageSource interface {
	// NumPages returns the page count.
	NumPages() int

	// PageGlyphs returns the glyphs and media box of the 1-based page.
	PageGlyphs(number int) (glyphs []Glyph, width, height float64, err error)

	// Close releases the underlying file.
	Close() error
}

// Extractor decides between text-layer extraction and OCR per page.
type Extractor struct {
	cfg config.ExtractorConfig
	ocr driven.OCREngine
}

// New creates an extractor. ocr may be nil; pages whose text layer fails
// the quality gate are then unextractable.
func New(cfg config.ExtractorConfig, ocr driven.OCREngine) *Extractor {
	return &Extractor{cfg: cfg, ocr: ocr}
}

// ExtractDocument extracts every page of the PDF at path, in page order.
// ocrLang is the OCR language hint for the document's subject. Page-local
// failures never abort the document: the affected page is flagged
// unextractable and processing continues.
func (e *Extractor) ExtractDocument(ctx context.Context, path, ocrLang string) ([]domain.Page, error) {
	src, err := OpenPDF(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer src.Close()

	return e.ExtractPages(ctx, src, path, ocrLang)
}

// ExtractPages runs the per-page decision loop over an open source.
func (e *Extractor) ExtractPages(ctx context.Context, src PageSource, path, ocrLang string) ([]domain.Page, error) {
	total := src.NumPages()
	pages := make([]domain.Page, 0, total)

	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, e.extractPage(ctx, src, path, n, ocrLang))
	}
	return pages, nil
}

// extractPage applies the two-tier strategy to one page.
func (e *Extractor) extractPage(ctx context.Context, src PageSource, path string, number int, ocrLang string) domain.Page {
	page := domain.Page{Number: number, Layout: domain.ColumnLayout{Columns: 1}}

	glyphs, width, height, err := src.PageGlyphs(number)
	if err != nil {
		logger.Warn("Page %d of %s: text layer unreadable: %v", number, path, err)
	} else {
		layout := DetectColumns(glyphs, width, e.cfg)
		text := AssembleText(glyphs, layout)
		if e.textLayerOK(text, width, height) {
			page.Method = domain.MethodTextLayer
			page.Text = text
			page.Layout = layout
			return page
		}
		logger.Debug("Page %d of %s: text layer below quality gate, trying OCR", number, path)
	}

	text, err := e.runOCR(ctx, path, number, ocrLang)
	if err != nil {
		logger.Warn("Page %d of %s: OCR failed: %v", number, path, err)
		page.Method = domain.MethodUnextractable
		return page
	}
	if !e.ocrOK(text) {
		logger.Warn("Page %d of %s: OCR output below quality gate, flagging for review", number, path)
		page.Method = domain.MethodUnextractable
		return page
	}

	page.Method = domain.MethodOCR
	page.Text = text
	return page
}

// runOCR invokes the external engine with the configured timeout.
// A timeout marks the page unextractable rather than blocking the batch.
func (e *Extractor) runOCR(ctx context.Context, path string, number int, lang string) (string, error) {
	if e.ocr == nil || !e.ocr.Available() {
		return "", domain.ErrOCRUnavailable
	}

	ocrCtx, cancel := context.WithTimeout(ctx, e.cfg.OCRTimeout)
	defer cancel()

	return e.ocr.Recognize(ocrCtx, path, number, lang)
}

// textLayerOK gates text-layer output on character density per page area
// and on the share of recognisable-script runes.
func (e *Extractor) textLayerOK(text string, width, height float64) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	area := width * height
	if area <= 0 {
		area = 595 * 842 // A4 fallback
	}

	chars := 0
	for _, r := range trimmed {
		if r != ' ' && r != '\n' && r != '\t' {
			chars++
		}
	}

	density := float64(chars) / (area / 1000.0)
	if density < e.cfg.MinCharDensity {
		return false
	}
	return scriptRatio(trimmed) >= e.cfg.MinScriptRatio
}

// ocrOK gates OCR output on a character floor and script ratio; density is
// meaningless for OCR since the engine normalises layout itself.
func (e *Extractor) ocrOK(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < e.cfg.MinOCRChars {
		return false
	}
	return scriptRatio(trimmed) >= e.cfg.MinScriptRatio
}
