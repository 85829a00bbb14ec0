package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/muallim-cli/internal/chunker"
	"github.com/custodia-labs/muallim-cli/internal/cleaner"
	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/muallim-cli/internal/logger"
)

// maxRetryBackoff caps the exponential backoff between index retries.
const maxRetryBackoff = 5 * time.Second

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// PageExtractor produces the extracted page sequence for one PDF.
type PageExtractor interface {
	ExtractDocument(ctx context.Context, path, ocrLang string) ([]domain.Page, error)
}

// IngestService runs the document pipeline: extract, clean, segment, embed
// and dual-index. Documents are processed in parallel; pages within one
// document stay sequential because paragraph reconstruction reads across
// page boundaries.
type IngestService struct {
	extractor PageExtractor
	cleaners  *cleaner.Set
	chunkers  *chunker.Set
	embedder  driven.EmbeddingService
	docStore  driven.DocumentStore
	vector    driven.VectorIndex
	sparse    driven.SparseIndex
	subjects  map[string]config.SubjectConfig
	cfg       config.IngestConfig
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	extractor PageExtractor,
	cleaners *cleaner.Set,
	chunkers *chunker.Set,
	embedder driven.EmbeddingService,
	docStore driven.DocumentStore,
	vector driven.VectorIndex,
	sparse driven.SparseIndex,
	subjects map[string]config.SubjectConfig,
	cfg config.IngestConfig,
) *IngestService {
	return &IngestService{
		extractor: extractor,
		cleaners:  cleaners,
		chunkers:  chunkers,
		embedder:  embedder,
		docStore:  docStore,
		vector:    vector,
		sparse:    sparse,
		subjects:  subjects,
		cfg:       cfg,
	}
}

type ingestJob struct {
	path    string
	subject string
}

// IngestDir walks <root>/<subject>/*.pdf and ingests every document with a
// bounded worker pool. Per-document failures land in the report, not in the
// returned error.
func (s *IngestService) IngestDir(
	ctx context.Context, root string, opts driving.IngestOptions,
) (*driving.IngestReport, error) {
	if s.sparse == nil && (s.embedder == nil || s.vector == nil) {
		return nil, domain.ErrRetrievalUnavailable
	}

	jobs, err := s.collectJobs(root, opts.Subjects)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = s.cfg.Concurrency
	}
	if concurrency > len(jobs) && len(jobs) > 0 {
		concurrency = len(jobs)
	}

	logger.Section("Ingestion")
	logger.Info("Ingesting %d documents with %d workers", len(jobs), concurrency)

	jobCh := make(chan ingestJob)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports []driving.DocumentReport
	)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				report := s.ingestOne(ctx, job.path, job.subject)
				mu.Lock()
				reports = append(reports, report)
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		select {
		case jobCh <- job:
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobCh)
	wg.Wait()

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].SourcePath < reports[j].SourcePath
	})
	return &driving.IngestReport{Documents: reports}, nil
}

// IngestFile processes a single PDF into the given subject.
func (s *IngestService) IngestFile(ctx context.Context, path, subject string) (driving.DocumentReport, error) {
	if _, ok := s.subjects[subject]; !ok {
		return driving.DocumentReport{}, fmt.Errorf("%w: %q", domain.ErrUnknownSubject, subject)
	}
	report := s.ingestOne(ctx, path, subject)
	return report, nil
}

// collectJobs finds the PDFs under root's subject directories. A subject
// filter naming an unconfigured subject is an error; an unconfigured
// directory on disk without a filter is skipped with a warning.
func (s *IngestService) collectJobs(root string, filter []string) ([]ingestJob, error) {
	wanted := map[string]bool{}
	for _, sub := range filter {
		if _, ok := s.subjects[sub]; !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubject, sub)
		}
		wanted[sub] = true
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read ingest root: %w", err)
	}

	var jobs []ingestJob
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		subject := entry.Name()
		if len(wanted) > 0 && !wanted[subject] {
			continue
		}
		if _, ok := s.subjects[subject]; !ok {
			logger.Warn("Skipping directory %q: not a configured subject", subject)
			continue
		}

		files, err := os.ReadDir(filepath.Join(root, subject))
		if err != nil {
			return nil, fmt.Errorf("read subject dir %q: %w", subject, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".pdf") {
				continue
			}
			jobs = append(jobs, ingestJob{
				path:    filepath.Join(root, subject, f.Name()),
				subject: subject,
			})
		}
	}
	return jobs, nil
}

// ingestOne runs the full pipeline for one document. All failures are
// folded into the report.
func (s *IngestService) ingestOne(ctx context.Context, path, subject string) driving.DocumentReport {
	report := driving.DocumentReport{SourcePath: path, Subject: subject}
	subCfg := s.subjects[subject]

	logger.Info("Ingesting %s (subject: %s)", path, subject)

	pages, err := s.extractor.ExtractDocument(ctx, path, subCfg.OCRLanguage)
	if err != nil {
		report.Err = fmt.Errorf("extract: %w", err)
		return report
	}
	report.Pages = len(pages)

	// The stored document keeps the raw extracted text; only the copy
	// handed to the chunker is cleaned.
	profile := s.cleaners.ForSubject(subject)
	cleaned := make([]domain.Page, len(pages))
	copy(cleaned, pages)
	for i := range cleaned {
		if cleaned[i].Unextractable() {
			report.UnextractablePages = append(report.UnextractablePages, cleaned[i].Number)
			continue
		}
		cleaned[i].Text = profile.Clean(cleaned[i].Text)
	}
	if len(report.UnextractablePages) > 0 {
		logger.Warn("%s: %d pages unextractable, flagged for review",
			path, len(report.UnextractablePages))
	}

	if err := s.replacePrevious(ctx, path, subject); err != nil {
		report.Err = fmt.Errorf("replace previous ingest: %w", err)
		return report
	}

	doc := &domain.Document{
		ID:         uuid.New().String(),
		Subject:    subject,
		Title:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourcePath: path,
		Pages:      pages,
		CreatedAt:  time.Now().UTC(),
	}
	_, chunks := s.chunkers.ForLanguage(subCfg.Language).Segment(cleaned, doc.ID, subject)

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		report.Err = fmt.Errorf("save document: %w", err)
		return report
	}
	if len(chunks) == 0 {
		logger.Warn("%s: no chunks produced", path)
		return report
	}
	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		report.Err = fmt.Errorf("save chunks: %w", err)
		return report
	}

	committed, failed := s.indexChunks(ctx, chunks)
	report.Chunks = len(committed)
	report.FailedChunks = len(failed)

	if len(committed) > 0 {
		if err := s.docStore.SetChunkStatus(ctx, committed, domain.ChunkCommitted); err != nil {
			report.Err = fmt.Errorf("commit chunks: %w", err)
			return report
		}
	}
	if len(failed) > 0 {
		if err := s.docStore.SetChunkStatus(ctx, failed, domain.ChunkFailed); err != nil {
			report.Err = fmt.Errorf("mark failed chunks: %w", err)
			return report
		}
		report.Err = fmt.Errorf("%w: %d of %d chunks failed indexing",
			domain.ErrIngestIncomplete, len(failed), len(chunks))
	}

	logger.Info("%s: %d chunks committed, %d failed", path, len(committed), len(failed))
	return report
}

// replacePrevious removes an earlier ingest of the same source, index
// halves first so no index entry ever outlives its chunk row.
func (s *IngestService) replacePrevious(ctx context.Context, path, subject string) error {
	prev, err := s.docStore.FindBySource(ctx, subject, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Replacing previous ingest of %s (document %s)", path, prev.ID)
	if s.vector != nil {
		if err := s.vector.DeleteDocument(ctx, prev.ID); err != nil {
			return fmt.Errorf("delete vectors: %w", err)
		}
	}
	if s.sparse != nil {
		if err := s.sparse.DeleteDocument(ctx, prev.ID); err != nil {
			return fmt.Errorf("delete sparse entries: %w", err)
		}
	}
	return s.docStore.DeleteDocument(ctx, prev.ID)
}

// indexChunks writes both index halves for every chunk and splits the IDs
// into committed and failed. The dense half embeds the whole batch up
// front; a chunk commits only when every enabled half is written.
func (s *IngestService) indexChunks(ctx context.Context, chunks []domain.Chunk) (committed, failed []string) {
	denseEnabled := s.embedder != nil && s.vector != nil

	var embeddings [][]float32
	embedFailed := false
	if denseEnabled {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		err := s.withRetry(ctx, "embed chunk batch", func() error {
			var embErr error
			embeddings, embErr = s.embedder.EmbedBatch(ctx, texts)
			return embErr
		})
		if err != nil {
			logger.Warn("Embedding failed after retries: %v", err)
			embedFailed = true
		}
	}

	for i, ch := range chunks {
		if ctx.Err() != nil {
			for _, rest := range chunks[i:] {
				failed = append(failed, rest.ID)
			}
			return committed, failed
		}

		ok := true
		if denseEnabled {
			if embedFailed {
				ok = false
			} else {
				chunkID, embedding := ch.ID, embeddings[i]
				err := s.withRetry(ctx, "dense index write", func() error {
					return s.vector.Upsert(ctx, chunkID, ch.Subject, embedding)
				})
				if err != nil {
					logger.Warn("Dense index write failed for chunk %s: %v", ch.ID, err)
					ok = false
				}
			}
		}
		if ok && s.sparse != nil {
			chunk := ch
			err := s.withRetry(ctx, "sparse index write", func() error {
				return s.sparse.Index(ctx, chunk)
			})
			if err != nil {
				logger.Warn("Sparse index write failed for chunk %s: %v", ch.ID, err)
				ok = false
			}
		}

		if ok {
			committed = append(committed, ch.ID)
		} else {
			failed = append(failed, ch.ID)
		}
	}
	return committed, failed
}

// withRetry runs fn with capped exponential backoff.
func (s *IngestService) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := s.cfg.IndexRetryBackoff
	var err error
	for attempt := 1; attempt <= s.cfg.IndexRetryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == s.cfg.IndexRetryAttempts {
			break
		}
		logger.Debug("%s failed (attempt %d/%d), retrying in %s: %v",
			op, attempt, s.cfg.IndexRetryAttempts, backoff, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrIndexWrite, op, err)
}
