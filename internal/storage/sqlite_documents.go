package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperjump/lectern/internal/models"
)

const documentColumns = `id, scope, filename, content, generation, chunk_count, summary, uploaded_by, uploaded_at`

// GetDocument returns the document stored under filename in scope.
func (s *SQLiteStorage) GetDocument(ctx context.Context, scope models.Scope, filename string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE scope = ? AND filename = ?`,
		scope.Key(), filename)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document %q", models.ErrNotFound, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the documents of scope, most recently uploaded first.
// Content is not loaded.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, scope models.Scope) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope, filename, '', generation, chunk_count, summary, uploaded_by, uploaded_at
		FROM documents WHERE scope = ?
		ORDER BY uploaded_at DESC, filename ASC
	`, scope.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ReplaceDocument writes doc and chunks atomically. See DocumentStore.
func (s *SQLiteStorage) ReplaceDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prev int64
	err = tx.QueryRowContext(ctx, `SELECT generation FROM documents WHERE id = ?`, doc.ID).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read generation: %w", err)
	}
	doc.Generation = prev + 1
	doc.ChunkCount = len(chunks)
	doc.Summary = ""
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			generation = excluded.generation,
			chunk_count = excluded.chunk_count,
			summary = NULL,
			uploaded_by = excluded.uploaded_by,
			uploaded_at = excluded.uploaded_at
	`, doc.ID, doc.Scope.Key(), doc.Filename, doc.Content, doc.Generation, doc.ChunkCount,
		doc.UploadedBy, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (id, document_id, scope, filename, content, chunk_index, generation, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		chunk.DocumentID = doc.ID
		chunk.Scope = doc.Scope
		chunk.Filename = doc.Filename
		chunk.Generation = doc.Generation
		chunk.ID = models.ChunkID(doc.ID, doc.Generation, chunk.ChunkIndex)
		chunk.IndexedAt = doc.UploadedAt
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, doc.Scope.Key(), chunk.Filename,
			chunk.Content, chunk.ChunkIndex, chunk.Generation, chunk.IndexedAt); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// DeleteDocument removes the document and its chunks and returns what was removed.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, scope models.Scope, filename string) (*models.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE scope = ? AND filename = ?`,
		scope.Key(), filename)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document %q", models.ErrNotFound, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return doc, nil
}

// GetChunksByScope returns every chunk of the current generation of every document in scope.
func (s *SQLiteStorage) GetChunksByScope(ctx context.Context, scope models.Scope) ([]*models.DocumentChunk, error) {
	return s.queryChunks(ctx, `
		SELECT c.id, c.document_id, c.scope, c.filename, c.content, c.chunk_index, c.generation, c.indexed_at
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id AND d.generation = c.generation
		WHERE c.scope = ?
		ORDER BY c.document_id, c.chunk_index
	`, scope.Key())
}

func (s *SQLiteStorage) queryChunks(ctx context.Context, query string, args ...interface{}) ([]*models.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]*models.DocumentChunk, 0)
	for rows.Next() {
		var (
			chunk    models.DocumentChunk
			scopeKey string
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &scopeKey, &chunk.Filename, &chunk.Content,
			&chunk.ChunkIndex, &chunk.Generation, &chunk.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		scope, err := models.ParseScope(scopeKey)
		if err != nil {
			return nil, err
		}
		chunk.Scope = scope
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// SetSummary stores a summary for the given generation of a document.
func (s *SQLiteStorage) SetSummary(ctx context.Context, docID string, generation int64, summary string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET summary = ? WHERE id = ? AND generation = ?`,
		summary, docID, generation)
	if err != nil {
		return false, fmt.Errorf("failed to store summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to store summary: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc      models.Document
		scopeKey string
		summary  sql.NullString
	)
	if err := row.Scan(&doc.ID, &scopeKey, &doc.Filename, &doc.Content, &doc.Generation,
		&doc.ChunkCount, &summary, &doc.UploadedBy, &doc.UploadedAt); err != nil {
		return nil, err
	}
	scope, err := models.ParseScope(scopeKey)
	if err != nil {
		return nil, err
	}
	doc.Scope = scope
	doc.Summary = summary.String
	return &doc, nil
}
