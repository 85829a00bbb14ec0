package driven

import (
	"context"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// DocumentStore persists documents, their page accounting and their chunks.
type DocumentStore interface {
	// SaveDocument stores a document and its pages.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document (with pages) by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// FindBySource returns the document previously ingested from the
	// given source path within a subject, or ErrNotFound.
	FindBySource(ctx context.Context, subject, sourcePath string) (*domain.Document, error)

	// DeleteDocument removes a document, its pages and its chunks.
	// Index halves referencing the chunks must be removed by the caller
	// before the chunk rows disappear.
	DeleteDocument(ctx context.Context, id string) error

	// SaveChunks stores chunks with status pending.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// SetChunkStatus transitions the given chunks to a new status.
	SetChunkStatus(ctx context.Context, chunkIDs []string, status domain.ChunkStatus) error

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListDocuments returns documents for a subject, newest first.
	ListDocuments(ctx context.Context, subject string) ([]domain.Document, error)

	// Stats returns per-subject document and committed-chunk counts.
	Stats(ctx context.Context) ([]domain.SubjectStats, error)

	// Close releases resources.
	Close() error
}
