package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores a document and its pages in one transaction.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, subject, title, source_path, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			title = excluded.title,
			source_path = excluded.source_path,
			created_at = excluded.created_at
	`, doc.ID, doc.Subject, doc.Title, doc.SourcePath, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("clearing pages: %w", err)
	}
	for _, page := range doc.Pages {
		boundaries, err := json.Marshal(page.Layout.Boundaries)
		if err != nil {
			return fmt.Errorf("marshalling page boundaries: %w", err)
		}
		columns := page.Layout.Columns
		if columns == 0 {
			columns = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pages (document_id, number, method, text, columns, boundaries)
			VALUES (?, ?, ?, ?, ?, ?)
		`, doc.ID, page.Number, string(page.Method), page.Text, columns, string(boundaries))
		if err != nil {
			return fmt.Errorf("saving page %d: %w", page.Number, err)
		}
	}

	return tx.Commit()
}

// GetDocument retrieves a document with its pages.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, subject, title, source_path, created_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}

	pages, err := s.loadPages(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Pages = pages
	return doc, nil
}

// FindBySource retrieves the document ingested from a source path.
func (s *documentStore) FindBySource(ctx context.Context, subject, sourcePath string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, subject, title, source_path, created_at
		FROM documents WHERE subject = ? AND source_path = ?
	`, subject, sourcePath)
	return scanDocument(row)
}

// DeleteDocument removes a document; pages, chunks and vectors follow by
// cascade. FTS entries are the sparse index's concern.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveChunks stores chunks in one transaction.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		path, err := json.Marshal(chunk.Path)
		if err != nil {
			return fmt.Errorf("marshalling chunk path: %w", err)
		}
		status := chunk.Status
		if status == "" {
			status = domain.ChunkPending
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, subject, path, text, position, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				document_id = excluded.document_id,
				subject = excluded.subject,
				path = excluded.path,
				text = excluded.text,
				position = excluded.position,
				status = excluded.status
		`, chunk.ID, chunk.DocumentID, chunk.Subject, string(path),
			chunk.Text, chunk.Position, string(status))
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// SetChunkStatus transitions the given chunks to a new status.
func (s *documentStore) SetChunkStatus(ctx context.Context, chunkIDs []string, status domain.ChunkStatus) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(chunkIDs)+1)
	args = append(args, string(status))
	for _, id := range chunkIDs {
		args = append(args, id)
	}

	res, err := s.store.db.ExecContext(ctx,
		"UPDATE chunks SET status = ? WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("updating chunk status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n != int64(len(chunkIDs)) {
		return fmt.Errorf("%w: %d of %d chunks", domain.ErrNotFound, int64(len(chunkIDs))-n, len(chunkIDs))
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, subject, path, text, position, status
		FROM chunks WHERE id = ?
	`, id)

	var chunk domain.Chunk
	var path, status string
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Subject,
		&path, &chunk.Text, &chunk.Position, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	if err := json.Unmarshal([]byte(path), &chunk.Path); err != nil {
		return nil, fmt.Errorf("unmarshalling chunk path: %w", err)
	}
	chunk.Status = domain.ChunkStatus(status)
	return &chunk, nil
}

// ListDocuments returns a subject's documents, newest first, without pages.
func (s *documentStore) ListDocuments(ctx context.Context, subject string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, subject, title, source_path, created_at
		FROM documents WHERE subject = ?
		ORDER BY created_at DESC, id
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Stats returns per-subject document and committed-chunk counts.
func (s *documentStore) Stats(ctx context.Context) ([]domain.SubjectStats, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.subject,
		       COUNT(DISTINCT d.id),
		       COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id AND c.status = 'committed'
		GROUP BY d.subject
		ORDER BY d.subject
	`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.SubjectStats
	for rows.Next() {
		var st domain.SubjectStats
		if err := rows.Scan(&st.Subject, &st.Documents, &st.Chunks); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Close is a no-op; the shared Store owns the connection.
func (s *documentStore) Close() error {
	return nil
}

func (s *documentStore) loadPages(ctx context.Context, documentID string) ([]domain.Page, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT number, method, text, columns, boundaries
		FROM pages WHERE document_id = ?
		ORDER BY number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var page domain.Page
		var method, boundaries string
		if err := rows.Scan(&page.Number, &method, &page.Text,
			&page.Layout.Columns, &boundaries); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		page.Method = domain.ExtractionMethod(method)
		if err := json.Unmarshal([]byte(boundaries), &page.Layout.Boundaries); err != nil {
			return nil, fmt.Errorf("unmarshalling page boundaries: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Subject, &doc.Title,
		&doc.SourcePath, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}
