package domain

// RankAbsent marks a chunk that did not appear in one of the two ranked
// lists during fusion. Absent lists contribute zero to the fused score.
const RankAbsent = 0

// RankedResult is one fused retrieval hit. Ephemeral; lives for one query.
type RankedResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DenseRank is the 1-based rank in the dense (vector) list,
	// or RankAbsent if the chunk was not returned by the dense leg.
	DenseRank int

	// SparseRank is the 1-based rank in the sparse (BM25) list,
	// or RankAbsent if the chunk was not returned by the sparse leg.
	SparseRank int

	// Score is the reciprocal-rank-fusion score.
	Score float64
}

// minRank returns the better (lower) of the result's individual ranks,
// ignoring absent lists.
func (r RankedResult) minRank() int {
	switch {
	case r.DenseRank == RankAbsent:
		return r.SparseRank
	case r.SparseRank == RankAbsent:
		return r.DenseRank
	case r.DenseRank < r.SparseRank:
		return r.DenseRank
	default:
		return r.SparseRank
	}
}

// Less orders fused results: higher score first, then better minimum
// individual rank, then chunk ID for determinism.
func (r RankedResult) Less(other RankedResult) bool {
	if r.Score != other.Score {
		return r.Score > other.Score
	}
	if a, b := r.minRank(), other.minRank(); a != b {
		return a < b
	}
	return r.ChunkID < other.ChunkID
}

// RetrievedChunk is a ranked result hydrated with its chunk.
type RetrievedChunk struct {
	Chunk  Chunk
	Result RankedResult
}

// RetrievalResponse is the ordered answer to one query.
type RetrievalResponse struct {
	// Results is ordered by fused score, best first, length <= top_k.
	Results []RetrievedChunk

	// Degraded is true when one search leg was unavailable and the
	// ranking came from the surviving leg alone.
	Degraded bool

	// DegradedLeg names the failed leg ("dense" or "sparse") when
	// Degraded is true.
	DegradedLeg string
}

// SubjectStats summarises the indexed content of one subject partition.
type SubjectStats struct {
	Subject   string
	Documents int
	Chunks    int
}
