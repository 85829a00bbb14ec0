package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex on a plain vectors table with
// brute-force cosine scoring. Curriculum collections are tens of thousands
// of chunks per subject at most; a linear scan over one subject partition
// is well inside interactive latency and keeps the index in the same
// transactional domain as the chunk rows.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert inserts or replaces the vector for a chunk.
func (v *vectorIndex) Upsert(ctx context.Context, chunkID, subject string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for chunk %s", domain.ErrInvalidInput, chunkID)
	}
	_, err := v.store.db.ExecContext(ctx, `
		INSERT INTO vectors (chunk_id, subject, embedding)
		VALUES (?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			subject = excluded.subject,
			embedding = excluded.embedding
	`, chunkID, subject, encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("%w: vector upsert: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Delete removes a vector from the index.
func (v *vectorIndex) Delete(ctx context.Context, chunkID string) error {
	_, err := v.store.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE chunk_id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("deleting vector: %w", err)
	}
	return nil
}

// DeleteDocument removes all of a document's vectors. Must run while the
// chunk rows still exist.
func (v *vectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := v.store.db.ExecContext(ctx, `
		DELETE FROM vectors WHERE chunk_id IN
			(SELECT id FROM chunks WHERE document_id = ?)
	`, documentID)
	if err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return nil
}

// Search finds the k nearest committed neighbours within the subject.
func (v *vectorIndex) Search(ctx context.Context, query []float32, subject string, k int) ([]driven.VectorHit, error) {
	if len(query) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.embedding
		FROM vectors v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.subject = ? AND c.status = 'committed'
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("loading vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var chunkID string
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		embedding, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding vector for chunk %s: %w", chunkID, err)
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    chunkID,
			Similarity: cosineSimilarity(query, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
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

// Close is a no-op; the shared Store owns the connection.
func (v *vectorIndex) Close() error {
	return nil
}

// encodeVector packs float32 values little-endian, 4 bytes each.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// 0 when the lengths differ or either has no magnitude.
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
