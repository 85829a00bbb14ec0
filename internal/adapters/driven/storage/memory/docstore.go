// Package memory provides in-memory implementations of the storage ports,
// used by tests and available as a throwaway backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
	}
}

// SaveDocument stores or updates a document with its pages.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindBySource retrieves the document ingested from a source path.
func (s *DocumentStore) FindBySource(_ context.Context, subject, sourcePath string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.documents {
		if doc.Subject == subject && doc.SourcePath == sourcePath {
			d := doc
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	for chunkID, chunk := range s.chunks {
		if chunk.DocumentID == id {
			delete(s.chunks, chunkID)
		}
	}
	return nil
}

// SaveChunks stores chunks.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// SetChunkStatus transitions the given chunks to a new status.
func (s *DocumentStore) SetChunkStatus(_ context.Context, chunkIDs []string, status domain.ChunkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range chunkIDs {
		chunk, ok := s.chunks[id]
		if !ok {
			return domain.ErrNotFound
		}
		chunk.Status = status
		s.chunks[id] = chunk
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// ListDocuments returns a subject's documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, subject string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range s.documents {
		if doc.Subject == subject {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

// Stats returns per-subject document and committed-chunk counts.
func (s *DocumentStore) Stats(_ context.Context) ([]domain.SubjectStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySubject := map[string]*domain.SubjectStats{}
	get := func(subject string) *domain.SubjectStats {
		if st, ok := bySubject[subject]; ok {
			return st
		}
		st := &domain.SubjectStats{Subject: subject}
		bySubject[subject] = st
		return st
	}

	for _, doc := range s.documents {
		get(doc.Subject).Documents++
	}
	for _, chunk := range s.chunks {
		if chunk.Status == domain.ChunkCommitted {
			get(chunk.Subject).Chunks++
		}
	}

	stats := make([]domain.SubjectStats, 0, len(bySubject))
	for _, st := range bySubject {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Subject < stats[j].Subject
	})
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *DocumentStore) Close() error {
	return nil
}
