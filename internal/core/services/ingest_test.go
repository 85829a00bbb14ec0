package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/muallim-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/muallim-cli/internal/chunker"
	"github.com/custodia-labs/muallim-cli/internal/cleaner"
	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
)

// mockExtractor implements PageExtractor for testing.
type mockExtractor struct {
	pages map[string][]domain.Page
	err   error
}

func (m *mockExtractor) ExtractDocument(_ context.Context, path, _ string) ([]domain.Page, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.pages[path], nil
}

// failingSparse wraps the memory index and fails the first n Index calls.
type failingSparse struct {
	*memory.SparseIndex
	failures int
}

func (f *failingSparse) Index(ctx context.Context, chunk domain.Chunk) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("index write refused")
	}
	return f.SparseIndex.Index(ctx, chunk)
}

type ingestFixture struct {
	store   *memory.DocumentStore
	vector  *memory.VectorIndex
	sparse  *memory.SparseIndex
	extract *mockExtractor
	svc     *IngestService
}

func newIngestFixture(t *testing.T, extract *mockExtractor) *ingestFixture {
	t.Helper()
	cfg := config.Default()
	cfg.Ingest.IndexRetryBackoff = time.Millisecond

	cleaners, err := cleaner.NewSet(cfg)
	require.NoError(t, err)
	chunkers, err := chunker.NewSet(cfg.Chunker, cfg.Languages)
	require.NoError(t, err)

	store := memory.NewDocumentStore()
	vector := memory.NewVectorIndex(store)
	sparse := memory.NewSparseIndex(store)

	svc := NewIngestService(extract, cleaners, chunkers,
		&mockEmbedder{embedding: []float32{1, 0, 0}},
		store, vector, sparse, cfg.Subjects, cfg.Ingest)

	return &ingestFixture{store: store, vector: vector, sparse: sparse, extract: extract, svc: svc}
}

func physicsPages() []domain.Page {
	return []domain.Page{
		{Number: 1, Method: domain.MethodTextLayer,
			Text: "Chapter 1\nElectric current is the flow of electric charge through a conductor."},
		{Number: 2, Method: domain.MethodOCR,
			Text: "Resistance opposes the flow of current and converts electrical energy to heat."},
	}
}

func TestIngestFile_CommitsChunks(t *testing.T) {
	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		"/books/physics/currents.pdf": physicsPages(),
	}})

	report, err := fx.svc.IngestFile(context.Background(), "/books/physics/currents.pdf", "physics")
	require.NoError(t, err)

	assert.True(t, report.Succeeded())
	assert.Equal(t, 2, report.Pages)
	assert.Empty(t, report.UnextractablePages)
	assert.Positive(t, report.Chunks)
	assert.Zero(t, report.FailedChunks)

	// The committed chunks are query-visible with their hierarchy path.
	docs, err := fx.store.ListDocuments(context.Background(), "physics")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "currents", docs[0].Title)

	hits, err := fx.sparse.Search(context.Background(), "electric current", "physics", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	chunk, err := fx.store.GetChunk(context.Background(), hits[0].ChunkID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkCommitted, chunk.Status)
	assert.Equal(t, []string{"Chapter 1"}, chunk.Path)
}

func TestIngestFile_StoresRawPageText(t *testing.T) {
	raw := "Chapter 1\n42\nElectric current is the flow of electric charge through a conductor."
	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		"/books/physics/currents.pdf": {
			{Number: 1, Method: domain.MethodTextLayer, Text: raw},
		},
	}})

	report, err := fx.svc.IngestFile(context.Background(), "/books/physics/currents.pdf", "physics")
	require.NoError(t, err)
	require.True(t, report.Succeeded())

	// The persisted page keeps the extractor output verbatim; the page
	// number line is cleaned away only in the chunk text.
	doc, err := fx.store.FindBySource(context.Background(), "physics", "/books/physics/currents.pdf")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, raw, doc.Pages[0].Text)

	hits, err := fx.sparse.Search(context.Background(), "electric current", "physics", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		chunk, err := fx.store.GetChunk(context.Background(), hit.ChunkID)
		require.NoError(t, err)
		assert.NotContains(t, chunk.Text, "42")
	}
}

func TestIngestFile_UnknownSubject(t *testing.T) {
	fx := newIngestFixture(t, &mockExtractor{})

	_, err := fx.svc.IngestFile(context.Background(), "/books/alchemy/gold.pdf", "alchemy")
	assert.ErrorIs(t, err, domain.ErrUnknownSubject)
}

func TestIngestFile_ExtractionFailureReported(t *testing.T) {
	fx := newIngestFixture(t, &mockExtractor{err: errors.New("file corrupt")})

	report, err := fx.svc.IngestFile(context.Background(), "/books/physics/bad.pdf", "physics")
	require.NoError(t, err)
	assert.False(t, report.Succeeded())
	assert.ErrorContains(t, report.Err, "file corrupt")
}

func TestIngestFile_UnextractablePagesFlagged(t *testing.T) {
	pages := physicsPages()
	pages = append(pages, domain.Page{Number: 3, Method: domain.MethodUnextractable})
	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		"/books/physics/scan.pdf": pages,
	}})

	report, err := fx.svc.IngestFile(context.Background(), "/books/physics/scan.pdf", "physics")
	require.NoError(t, err)

	assert.Equal(t, []int{3}, report.UnextractablePages)
	assert.True(t, report.Succeeded(), "unextractable pages are flagged, not fatal")
}

func TestIngestFile_IndexFailureMarksChunksFailed(t *testing.T) {
	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		"/books/physics/currents.pdf": physicsPages(),
	}})
	// Enough refusals to exhaust every retry of the first chunk.
	sparse := &failingSparse{
		SparseIndex: fx.sparse,
		failures:    config.Default().Ingest.IndexRetryAttempts,
	}
	fx.svc.sparse = sparse

	report, err := fx.svc.IngestFile(context.Background(), "/books/physics/currents.pdf", "physics")
	require.NoError(t, err)

	assert.False(t, report.Succeeded())
	assert.Positive(t, report.FailedChunks)
	assert.ErrorIs(t, report.Err, domain.ErrIngestIncomplete)
}

func TestIngestFile_RetrySucceedsWithinBudget(t *testing.T) {
	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		"/books/physics/currents.pdf": physicsPages(),
	}})
	// One transient refusal, then healthy. Must commit everything.
	fx.svc.sparse = &failingSparse{SparseIndex: fx.sparse, failures: 1}

	report, err := fx.svc.IngestFile(context.Background(), "/books/physics/currents.pdf", "physics")
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
}

func TestIngestFile_ReingestReplacesDocument(t *testing.T) {
	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		"/books/physics/currents.pdf": physicsPages(),
	}})

	ctx := context.Background()
	_, err := fx.svc.IngestFile(ctx, "/books/physics/currents.pdf", "physics")
	require.NoError(t, err)
	_, err = fx.svc.IngestFile(ctx, "/books/physics/currents.pdf", "physics")
	require.NoError(t, err)

	docs, err := fx.store.ListDocuments(ctx, "physics")
	require.NoError(t, err)
	assert.Len(t, docs, 1, "re-ingesting the same source must replace, not duplicate")

	stats, err := fx.store.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Documents)
}

func TestIngestDir_WalksSubjectDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "physics"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "chemistry"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "physics", "currents.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "chemistry", "acids.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "physics", "notes.txt"), []byte("x"), 0o644))

	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		filepath.Join(root, "physics", "currents.pdf"): physicsPages(),
		filepath.Join(root, "chemistry", "acids.pdf"):  physicsPages(),
	}})

	report, err := fx.svc.IngestDir(context.Background(), root, driving.IngestOptions{Concurrency: 2})
	require.NoError(t, err)

	require.Len(t, report.Documents, 2)
	succeeded, failed := report.Counts()
	assert.Equal(t, 2, succeeded)
	assert.Zero(t, failed)
}

func TestIngestDir_SubjectFilter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "physics"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "chemistry"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "physics", "a.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "chemistry", "b.pdf"), []byte("%PDF"), 0o644))

	fx := newIngestFixture(t, &mockExtractor{pages: map[string][]domain.Page{
		filepath.Join(root, "physics", "a.pdf"): physicsPages(),
	}})

	report, err := fx.svc.IngestDir(context.Background(), root,
		driving.IngestOptions{Subjects: []string{"physics"}})
	require.NoError(t, err)

	require.Len(t, report.Documents, 1)
	assert.Equal(t, "physics", report.Documents[0].Subject)
}

func TestIngestDir_UnknownSubjectFilter(t *testing.T) {
	fx := newIngestFixture(t, &mockExtractor{})

	_, err := fx.svc.IngestDir(context.Background(), t.TempDir(),
		driving.IngestOptions{Subjects: []string{"astrology"}})
	assert.ErrorIs(t, err, domain.ErrUnknownSubject)
}

func TestIngestDir_UnconfiguredDirectorySkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "astrology"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "astrology", "stars.pdf"), []byte("%PDF"), 0o644))

	fx := newIngestFixture(t, &mockExtractor{})

	report, err := fx.svc.IngestDir(context.Background(), root, driving.IngestOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Documents)
}
