package driven

import "context"

// OCREngine recognises text on a rendered PDF page. It is an external
// collaborator treated as a black box; callers bound every call with a
// context timeout, and a timeout marks the page unextractable rather than
// blocking the batch.
type OCREngine interface {
	// Recognize renders the given page of the PDF and returns the
	// recognised text. lang is an engine-specific language hint
	// (e.g. "ara+eng").
	Recognize(ctx context.Context, pdfPath string, pageNumber int, lang string) (string, error)

	// Available reports whether the engine can run on this host.
	Available() bool
}
