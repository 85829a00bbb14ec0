package domain

import "time"

// ExtractionMethod records how a page's text was obtained.
type ExtractionMethod string

const (
	// MethodTextLayer means the PDF text layer was good enough to use directly.
	MethodTextLayer ExtractionMethod = "text-layer"

	// MethodOCR means the page was rendered and run through the OCR engine.
	MethodOCR ExtractionMethod = "ocr"

	// MethodUnextractable means both the text layer and OCR failed the
	// quality gate. The page is flagged for manual review and skipped.
	MethodUnextractable ExtractionMethod = "unextractable"
)

// Document represents one source PDF belonging to a subject.
// A document is immutable once ingested; re-ingesting the same source
// replaces it wholesale.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Subject is the curriculum subject partition (e.g. "physics").
	Subject string

	// Title is the human-readable title, derived from the file name.
	Title string

	// SourcePath is the path of the source PDF.
	SourcePath string

	// Pages is the ordered page sequence as extracted.
	Pages []Page

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// ColumnLayout describes the detected vertical column bands of a page.
type ColumnLayout struct {
	// Columns is the number of detected column bands (1 for single-column).
	Columns int

	// Boundaries holds the x positions separating adjacent columns,
	// in page coordinates. Empty for single-column pages.
	Boundaries []float64
}

// Page is one PDF page after extraction. Never mutated after creation.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Method records which extraction path produced Text.
	Method ExtractionMethod

	// Text is the raw extracted text, before cleaning.
	Text string

	// Layout is the detected column layout.
	Layout ColumnLayout
}

// Unextractable reports whether the page failed both extraction methods.
func (p Page) Unextractable() bool {
	return p.Method == MethodUnextractable
}
