package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
)

// sparseIndex implements driven.SparseIndex on an FTS5 table. Subject
// partitioning and the committed-only visibility rule come from joining the
// chunks table, so a pending or failed chunk can never surface in results.
type sparseIndex struct {
	store *Store
}

var _ driven.SparseIndex = (*sparseIndex)(nil)

// Index adds or updates a chunk in the lexical index.
func (s *sparseIndex) Index(ctx context.Context, chunk domain.Chunk) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chunk_fts WHERE chunk_id = ?", chunk.ID); err != nil {
		return fmt.Errorf("clearing fts entry: %w", err)
	}
	if _, err := s.store.db.ExecContext(ctx,
		"INSERT INTO chunk_fts (text, chunk_id) VALUES (?, ?)",
		chunk.Text, chunk.ID); err != nil {
		return fmt.Errorf("%w: fts insert: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Delete removes a chunk from the index.
func (s *sparseIndex) Delete(ctx context.Context, chunkID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chunk_fts WHERE chunk_id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("deleting fts entry: %w", err)
	}
	return nil
}

// DeleteDocument removes all of a document's chunks from the index. Must
// run while the chunk rows still exist.
func (s *sparseIndex) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM chunk_fts WHERE chunk_id IN
			(SELECT id FROM chunks WHERE document_id = ?)
	`, documentID)
	if err != nil {
		return fmt.Errorf("deleting fts entries: %w", err)
	}
	return nil
}

// Search ranks committed chunks of the subject with bm25, best first.
func (s *sparseIndex) Search(ctx context.Context, query, subject string, limit int) ([]driven.SearchHit, error) {
	match := ftsQuery(query)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT f.chunk_id, bm25(chunk_fts)
		FROM chunk_fts f
		JOIN chunks c ON c.id = f.chunk_id
		WHERE chunk_fts MATCH ? AND c.subject = ? AND c.status = 'committed'
		ORDER BY bm25(chunk_fts)
		LIMIT ?
	`, match, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		var hit driven.SearchHit
		var rank float64
		if err := rows.Scan(&hit.ChunkID, &rank); err != nil {
			return nil, fmt.Errorf("scanning fts hit: %w", err)
		}
		// bm25() returns lower-is-better; flip so callers see
		// higher-is-better like every other score in the system.
		hit.Score = -rank
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Close is a no-op; the shared Store owns the connection.
func (s *sparseIndex) Close() error {
	return nil
}

// ftsQuery converts free text into a safe FTS5 OR query. FTS5 operators and
// punctuation in user input would otherwise be parsed as query syntax.
func ftsQuery(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}
