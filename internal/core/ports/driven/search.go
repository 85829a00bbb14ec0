package driven

import (
	"context"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// SparseIndex provides lexical (BM25) search operations, partitioned by
// subject. May be embedded in-process; the retriever treats it as a
// service that can be temporarily unavailable.
type SparseIndex interface {
	// Index adds or updates a chunk in the lexical index.
	Index(ctx context.Context, chunk domain.Chunk) error

	// Delete removes a chunk from the index.
	Delete(ctx context.Context, chunkID string) error

	// DeleteDocument removes all of a document's chunks from the index.
	DeleteDocument(ctx context.Context, documentID string) error

	// Search ranks committed chunks of the subject partition against the
	// query, best first, up to limit results.
	Search(ctx context.Context, query, subject string, limit int) ([]SearchHit, error)

	// Close releases resources.
	Close() error
}

// SearchHit represents a sparse search result.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the BM25-style relevance score (higher is better).
	Score float64
}
