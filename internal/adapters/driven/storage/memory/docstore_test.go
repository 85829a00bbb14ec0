package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

func testDocument(id, subject, source string) *domain.Document {
	return &domain.Document{
		ID:         id,
		Subject:    subject,
		Title:      "Currents",
		SourcePath: source,
		Pages: []domain.Page{
			{Number: 1, Method: domain.MethodTextLayer, Text: "page one"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func testChunk(id, docID, subject string, status domain.ChunkStatus) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: docID,
		Subject:    subject,
		Path:       []string{"Chapter 1"},
		Text:       "electric current",
		Status:     status,
	}
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := testDocument("d1", "physics", "/p/a.pdf")
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Currents", got.Title)
	assert.Len(t, got.Pages, 1)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_FindBySource(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("d1", "physics", "/p/a.pdf")))

	got, err := store.FindBySource(ctx, "physics", "/p/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.ID)

	_, err = store.FindBySource(ctx, "chemistry", "/p/a.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ChunkStatus(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("d1", "physics", "/p/a.pdf")))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		testChunk("c1", "d1", "physics", domain.ChunkPending),
		testChunk("c2", "d1", "physics", domain.ChunkPending),
	}))

	require.NoError(t, store.SetChunkStatus(ctx, []string{"c1", "c2"}, domain.ChunkCommitted))

	c1, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkCommitted, c1.Status)

	err = store.SetChunkStatus(ctx, []string{"missing"}, domain.ChunkFailed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteCascadesChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("d1", "physics", "/p/a.pdf")))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		testChunk("c1", "d1", "physics", domain.ChunkCommitted),
	}))

	require.NoError(t, store.DeleteDocument(ctx, "d1"))

	_, err := store.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.DeleteDocument(ctx, "d1"), domain.ErrNotFound)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	older := testDocument("d1", "physics", "/p/a.pdf")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testDocument("d2", "physics", "/p/b.pdf")

	require.NoError(t, store.SaveDocument(ctx, older))
	require.NoError(t, store.SaveDocument(ctx, newer))

	list, err := store.ListDocuments(ctx, "physics")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d2", list[0].ID)
	assert.Equal(t, "d1", list[1].ID)
}

func TestDocumentStore_StatsCommittedOnly(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("d1", "physics", "/p/a.pdf")))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		testChunk("c1", "d1", "physics", domain.ChunkCommitted),
		testChunk("c2", "d1", "physics", domain.ChunkPending),
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "physics", stats[0].Subject)
	assert.Equal(t, 1, stats[0].Documents)
	assert.Equal(t, 1, stats[0].Chunks)
}

func TestDocumentStore_ConcurrentAccess(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			doc := testDocument(id, "physics", "/p/"+id+".pdf")
			_ = store.SaveDocument(ctx, doc)
			_, _ = store.ListDocuments(ctx, "physics")
		}(i)
	}
	wg.Wait()

	list, err := store.ListDocuments(ctx, "physics")
	require.NoError(t, err)
	assert.Len(t, list, 8)
}
