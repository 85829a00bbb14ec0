package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

type vectorEntry struct {
	subject   string
	embedding []float32
}

// VectorIndex is an in-memory brute-force cosine similarity index. When
// built with a DocumentStore it only surfaces committed chunks.
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string]vectorEntry
	docs    *DocumentStore
}

// NewVectorIndex creates an in-memory vector index. docs may be nil, in
// which case every upserted vector is visible.
func NewVectorIndex(docs *DocumentStore) *VectorIndex {
	return &VectorIndex{
		entries: make(map[string]vectorEntry),
		docs:    docs,
	}
}

// Upsert inserts or replaces the vector for a chunk.
func (v *VectorIndex) Upsert(_ context.Context, chunkID, subject string, embedding []float32) error {
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[chunkID] = vectorEntry{subject: subject, embedding: vec}
	return nil
}

// Delete removes a vector.
func (v *VectorIndex) Delete(_ context.Context, chunkID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.entries, chunkID)
	return nil
}

// DeleteDocument removes all of a document's vectors.
func (v *VectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if v.docs == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for id := range v.entries {
		chunk, err := v.docs.GetChunk(ctx, id)
		if err == nil && chunk.DocumentID == documentID {
			delete(v.entries, id)
		}
	}
	return nil
}

// Search finds the k nearest committed neighbours within the subject.
func (v *VectorIndex) Search(ctx context.Context, query []float32, subject string, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var hits []driven.VectorHit
	for id, e := range v.entries {
		if e.subject != subject || !v.visible(ctx, id) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    id,
			Similarity: cosineSimilarity(query, e.embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close is a no-op for the in-memory index.
func (v *VectorIndex) Close() error {
	return nil
}

func (v *VectorIndex) visible(ctx context.Context, chunkID string) bool {
	if v.docs == nil {
		return true
	}
	chunk, err := v.docs.GetChunk(ctx, chunkID)
	return err == nil && chunk.Status == domain.ChunkCommitted
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// 0 when either has no magnitude or the lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
