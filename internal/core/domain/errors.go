package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnextractablePage indicates a page failed both the text-layer and
	// OCR quality gates. Recorded per page and non-fatal to the batch.
	ErrUnextractablePage = errors.New("page unextractable")

	// ErrIndexWrite indicates a dense or sparse index upsert failed.
	// Retryable with bounded backoff; exhausted retries mark the owning
	// document's ingestion incomplete.
	ErrIndexWrite = errors.New("index write failed")

	// ErrIngestIncomplete indicates a document's ingestion finished with
	// failed chunks or pages. Reported, never silently partial.
	ErrIngestIncomplete = errors.New("ingestion incomplete")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. Dense/semantic search is disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSparseIndexUnavailable indicates the lexical index is not
	// configured. BM25/keyword search is disabled.
	ErrSparseIndexUnavailable = errors.New("sparse index unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured. Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRetrievalUnavailable indicates both search legs failed for a
	// query. Unlike single-leg degradation this is a hard failure.
	ErrRetrievalUnavailable = errors.New("both search methods unavailable")

	// ErrGenerationUnavailable indicates the generation service is not
	// configured. The ask flow is disabled; search still works.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrOCRUnavailable indicates no OCR engine is configured. Pages
	// without a usable text layer become unextractable.
	ErrOCRUnavailable = errors.New("OCR engine unavailable")

	// ErrUnknownSubject indicates a subject outside the configured set.
	ErrUnknownSubject = errors.New("unknown subject")
)
