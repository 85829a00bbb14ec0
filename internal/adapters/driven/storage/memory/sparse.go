package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
)

// Ensure SparseIndex implements the interface.
var _ driven.SparseIndex = (*SparseIndex)(nil)

type sparseEntry struct {
	documentID string
	subject    string
	terms      map[string]int
	length     int
}

// SparseIndex is an in-memory lexical index scoring by term overlap. Not a
// real BM25, but rank-faithful enough for tests. When built with a
// DocumentStore it only surfaces committed chunks, mirroring the SQLite
// adapter's visibility rule.
type SparseIndex struct {
	mu      sync.RWMutex
	entries map[string]sparseEntry
	docs    *DocumentStore
}

// NewSparseIndex creates an in-memory sparse index. docs may be nil, in
// which case every indexed chunk is visible.
func NewSparseIndex(docs *DocumentStore) *SparseIndex {
	return &SparseIndex{
		entries: make(map[string]sparseEntry),
		docs:    docs,
	}
}

// Index adds or updates a chunk.
func (s *SparseIndex) Index(_ context.Context, chunk domain.Chunk) error {
	terms := map[string]int{}
	tokens := tokenize(chunk.Text)
	for _, tok := range tokens {
		terms[tok]++
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[chunk.ID] = sparseEntry{
		documentID: chunk.DocumentID,
		subject:    chunk.Subject,
		terms:      terms,
		length:     len(tokens),
	}
	return nil
}

// Delete removes a chunk from the index.
func (s *SparseIndex) Delete(_ context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chunkID)
	return nil
}

// DeleteDocument removes all of a document's chunks.
func (s *SparseIndex) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.documentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

// Search scores the subject's committed chunks by query term overlap.
func (s *SparseIndex) Search(ctx context.Context, query, subject string, limit int) ([]driven.SearchHit, error) {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.SearchHit
	for id, e := range s.entries {
		if e.subject != subject || !s.visible(ctx, id) {
			continue
		}
		score := 0.0
		for _, term := range queryTerms {
			if n := e.terms[term]; n > 0 {
				score += float64(n) / float64(e.length)
			}
		}
		if score > 0 {
			hits = append(hits, driven.SearchHit{ChunkID: id, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close is a no-op for the in-memory index.
func (s *SparseIndex) Close() error {
	return nil
}

func (s *SparseIndex) visible(ctx context.Context, chunkID string) bool {
	if s.docs == nil {
		return true
	}
	chunk, err := s.docs.GetChunk(ctx, chunkID)
	return err == nil && chunk.Status == domain.ChunkCommitted
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
