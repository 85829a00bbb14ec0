package driving

import "context"

// IngestOptions configures a batch ingestion run.
type IngestOptions struct {
	// Concurrency bounds the number of documents processed in parallel.
	// Pages within one document are always processed sequentially.
	Concurrency int

	// Subjects restricts ingestion to the named subjects. Empty = all
	// subject directories found under the root.
	Subjects []string
}

// DocumentReport is the per-document outcome of an ingestion run.
type DocumentReport struct {
	// SourcePath is the ingested PDF.
	SourcePath string

	// Subject is the subject partition the document landed in.
	Subject string

	// Pages is the total page count.
	Pages int

	// UnextractablePages lists page numbers flagged for manual review.
	UnextractablePages []int

	// Chunks is the number of committed chunks.
	Chunks int

	// FailedChunks is the number of chunks whose index writes exhausted
	// retries.
	FailedChunks int

	// Err is non-nil when the document failed outright.
	Err error
}

// Succeeded reports whether the document ingested completely.
func (r DocumentReport) Succeeded() bool {
	return r.Err == nil && r.FailedChunks == 0
}

// IngestReport aggregates an ingestion batch.
type IngestReport struct {
	Documents []DocumentReport
}

// Counts returns the number of fully ingested and failed/incomplete documents.
func (r *IngestReport) Counts() (succeeded, failed int) {
	for _, d := range r.Documents {
		if d.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// UnextractablePages returns the total count of flagged pages in the batch.
func (r *IngestReport) UnextractablePages() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.UnextractablePages)
	}
	return n
}

// Ingestor runs the document-processing pipeline over a directory tree
// organised by subject: <root>/<subject>/*.pdf.
type Ingestor interface {
	// IngestDir processes every PDF under the subject directories of root.
	// Page- and document-local failures are contained and reported in the
	// returned report; only total unavailability of the index services is
	// returned as an error.
	IngestDir(ctx context.Context, root string, opts IngestOptions) (*IngestReport, error)

	// IngestFile processes a single PDF into the given subject.
	IngestFile(ctx context.Context, path, subject string) (DocumentReport, error)
}
