package domain

// ChunkStatus tracks a chunk's dual-index commit state.
// A chunk becomes visible to queries only once both its dense and sparse
// index halves have been written.
type ChunkStatus string

const (
	// ChunkPending means the chunk row exists but at least one index half
	// has not been written yet.
	ChunkPending ChunkStatus = "pending"

	// ChunkCommitted means both index halves are written; the chunk is
	// visible to queries.
	ChunkCommitted ChunkStatus = "committed"

	// ChunkFailed means index writes exhausted their retries. The owning
	// document's ingestion is reported incomplete.
	ChunkFailed ChunkStatus = "failed"
)

// Chunk is the atomic retrieval unit: a bounded span of cleaned text with
// its materialised hierarchy path. Created once by the structural chunker,
// immutable thereafter, deleted only by re-ingestion of its document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Subject is the subject partition, copied from the document so index
	// partitioning never needs a join.
	Subject string

	// Path is the ancestor hierarchy titles, root to leaf.
	Path []string

	// Text is the cleaned chunk text.
	Text string

	// Position is the ordinal position within the document.
	Position int

	// Status is the dual-index commit state.
	Status ChunkStatus
}

// Length returns the chunk text length in runes. Size bounds are rune
// counts so Arabic text is not penalised by UTF-8 byte width.
func (c Chunk) Length() int {
	n := 0
	for range c.Text {
		n++
	}
	return n
}
