package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/muallim-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// RetrievalService answers queries with hybrid dense + sparse retrieval
// fused by reciprocal rank.
type RetrievalService struct {
	docStore driven.DocumentStore
	sparse   driven.SparseIndex
	vector   driven.VectorIndex
	embedder driven.EmbeddingService
	subjects map[string]config.SubjectConfig
	cfg      config.RetrievalConfig
}

// NewRetrievalService creates a new retrieval service. The sparse index,
// vector index and embedder may each be nil; a missing leg degrades queries
// to the surviving leg.
func NewRetrievalService(
	docStore driven.DocumentStore,
	sparse driven.SparseIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	subjects map[string]config.SubjectConfig,
	cfg config.RetrievalConfig,
) *RetrievalService {
	return &RetrievalService{
		docStore: docStore,
		sparse:   sparse,
		vector:   vector,
		embedder: embedder,
		subjects: subjects,
		cfg:      cfg,
	}
}

// Search runs both legs in parallel within the subject partition, fuses the
// rankings and hydrates the top results.
func (s *RetrievalService) Search(
	ctx context.Context, query, subject string, topK int,
) (*domain.RetrievalResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if _, ok := s.subjects[subject]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubject, subject)
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	logger.Section("Query Execution")
	logger.Debug("Query: %q, subject: %s, top_k: %d", query, subject, topK)

	var (
		wg         sync.WaitGroup
		denseHits  []driven.VectorHit
		sparseHits []driven.SearchHit
		denseErr   error
		sparseErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		denseHits, denseErr = s.denseSearch(ctx, query, subject)
	}()
	go func() {
		defer wg.Done()
		sparseHits, sparseErr = s.sparseSearch(ctx, query, subject)
	}()
	wg.Wait()

	if denseErr != nil && sparseErr != nil {
		logger.Warn("Both search legs failed: dense=%v, sparse=%v", denseErr, sparseErr)
		return nil, fmt.Errorf("%w: dense: %v; sparse: %v",
			domain.ErrRetrievalUnavailable, denseErr, sparseErr)
	}

	resp := &domain.RetrievalResponse{}
	switch {
	case denseErr != nil:
		logger.Warn("Dense leg failed, degrading to sparse only: %v", denseErr)
		resp.Degraded = true
		resp.DegradedLeg = "dense"
	case sparseErr != nil:
		logger.Warn("Sparse leg failed, degrading to dense only: %v", sparseErr)
		resp.Degraded = true
		resp.DegradedLeg = "sparse"
	}

	fused := fuseRankings(denseHits, sparseHits, s.cfg.RRFKappa)
	logger.Debug("Fused candidates: %d (dense=%d, sparse=%d)",
		len(fused), len(denseHits), len(sparseHits))

	if len(fused) > topK {
		fused = fused[:topK]
	}

	results, err := s.hydrate(ctx, fused)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}
	resp.Results = results

	logger.Info("Final results: %d, degraded: %t", len(results), resp.Degraded)
	return resp, nil
}

// denseSearch embeds the query and searches the vector index.
func (s *RetrievalService) denseSearch(ctx context.Context, query, subject string) ([]driven.VectorHit, error) {
	if s.vector == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vector.Search(ctx, embedding, subject, s.cfg.KDense)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

// sparseSearch runs the lexical leg.
func (s *RetrievalService) sparseSearch(ctx context.Context, query, subject string) ([]driven.SearchHit, error) {
	if s.sparse == nil {
		return nil, domain.ErrSparseIndexUnavailable
	}

	hits, err := s.sparse.Search(ctx, query, subject, s.cfg.KSparse)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}
	return hits, nil
}

// fuseRankings merges the two ranked lists by reciprocal rank fusion:
// score = sum over lists of 1/(kappa+rank). A chunk in one list only gets
// that list's contribution. Ties break on the better individual rank, then
// chunk ID, so results are deterministic across runs.
func fuseRankings(dense []driven.VectorHit, sparse []driven.SearchHit, kappa int) []domain.RankedResult {
	byID := map[string]*domain.RankedResult{}

	get := func(chunkID string) *domain.RankedResult {
		if r, ok := byID[chunkID]; ok {
			return r
		}
		r := &domain.RankedResult{ChunkID: chunkID}
		byID[chunkID] = r
		return r
	}

	for i, hit := range dense {
		r := get(hit.ChunkID)
		r.DenseRank = i + 1
		r.Score += 1.0 / float64(kappa+r.DenseRank)
	}
	for i, hit := range sparse {
		r := get(hit.ChunkID)
		r.SparseRank = i + 1
		r.Score += 1.0 / float64(kappa+r.SparseRank)
	}

	fused := make([]domain.RankedResult, 0, len(byID))
	for _, r := range byID {
		fused = append(fused, *r)
	}
	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Less(fused[j])
	})
	return fused
}

// hydrate loads the chunk rows for the fused ranking. A chunk deleted
// between ranking and hydration is skipped, not fatal.
func (s *RetrievalService) hydrate(ctx context.Context, fused []domain.RankedResult) ([]domain.RetrievedChunk, error) {
	results := make([]domain.RetrievedChunk, 0, len(fused))
	for _, r := range fused {
		chunk, err := s.docStore.GetChunk(ctx, r.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Chunk %s vanished during hydration, skipping", r.ChunkID)
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", r.ChunkID, err)
		}
		results = append(results, domain.RetrievedChunk{Chunk: *chunk, Result: r})
	}
	return results, nil
}
