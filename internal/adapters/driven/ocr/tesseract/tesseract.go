// Package tesseract provides an OCR engine adapter shelling out to the
// Tesseract CLI. Tesseract cannot read PDFs directly, so each page is first
// rendered to a PNG with pdftoppm (Poppler) and the image is recognised.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// Default settings.
const (
	// DefaultDPI is the render resolution passed to pdftoppm.
	DefaultDPI = 300

	// DefaultLang is the Tesseract language hint when none is configured.
	DefaultLang = "eng"

	tesseractBin = "tesseract"
	pdftoppmBin  = "pdftoppm"
)

// Engine recognises page text by rendering with pdftoppm and running the
// tesseract binary. Both tools must be on PATH; Available reports whether
// they are.
type Engine struct {
	dpi int
}

// NewEngine creates a Tesseract OCR engine.
func NewEngine() *Engine {
	return &Engine{dpi: DefaultDPI}
}

// Available reports whether both pdftoppm and tesseract are on PATH.
func (e *Engine) Available() bool {
	if _, err := exec.LookPath(pdftoppmBin); err != nil {
		return false
	}
	if _, err := exec.LookPath(tesseractBin); err != nil {
		return false
	}
	return true
}

// Recognize renders the given page of the PDF and returns the recognised
// text. The caller bounds the call with a context deadline; on expiry both
// child processes are killed and the context error is returned.
func (e *Engine) Recognize(ctx context.Context, pdfPath string, pageNumber int, lang string) (string, error) {
	if pageNumber < 1 {
		return "", fmt.Errorf("ocr: invalid page number %d", pageNumber)
	}
	if lang == "" {
		lang = DefaultLang
	}

	tmpDir, err := os.MkdirTemp("", "muallim-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imagePath, err := e.renderPage(ctx, pdfPath, pageNumber, tmpDir)
	if err != nil {
		return "", err
	}

	return e.recognizeImage(ctx, imagePath, lang)
}

// renderPage renders a single PDF page to a PNG and returns its path.
func (e *Engine) renderPage(ctx context.Context, pdfPath string, pageNumber int, tmpDir string) (string, error) {
	page := strconv.Itoa(pageNumber)
	prefix := filepath.Join(tmpDir, "page")

	cmd := exec.CommandContext(ctx, pdftoppmBin,
		"-png",
		"-r", strconv.Itoa(e.dpi),
		"-f", page,
		"-l", page,
		pdfPath, prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ocr: render page %d: %w: %s", pageNumber, err, strings.TrimSpace(stderr.String()))
	}

	// pdftoppm zero-pads the page number in the output name depending on
	// the document's page count, so glob rather than reconstruct it.
	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("ocr: no image produced for page %d of %s", pageNumber, pdfPath)
	}
	return matches[0], nil
}

// recognizeImage runs tesseract over a rendered page image.
func (e *Engine) recognizeImage(ctx context.Context, imagePath, lang string) (string, error) {
	cmd := exec.CommandContext(ctx, tesseractBin,
		imagePath, "stdout",
		"-l", lang,
		"--psm", "3",
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ocr: tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(out.String()), nil
}
