package driven

import "context"

// VectorIndex provides semantic similarity search operations, partitioned
// by subject. Entries are keyed by chunk ID and never exist without a
// backing chunk row; the storage layer enforces the referential invariant.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for the given chunk.
	Upsert(ctx context.Context, chunkID, subject string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, chunkID string) error

	// DeleteDocument removes all of a document's vectors from the index.
	DeleteDocument(ctx context.Context, documentID string) error

	// Search finds the k nearest committed neighbours to the query vector
	// within the subject partition.
	Search(ctx context.Context, query []float32, subject string, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
