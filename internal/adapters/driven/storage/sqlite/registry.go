package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
)

// documentRegistry implements driven.DocumentRegistry on the shared database.
type documentRegistry struct {
	store *Store
}

var _ driven.DocumentRegistry = (*documentRegistry)(nil)

// Save stores or updates a document record. Timestamps are stored as RFC 3339.
func (r *documentRegistry) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document with empty ID", domain.ErrInvalidInput)
	}

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata for %s: %w", doc.ID, err)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, filename, title, doc_type, content, chunk_count, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename    = excluded.filename,
			title       = excluded.title,
			doc_type    = excluded.doc_type,
			content     = excluded.content,
			chunk_count = excluded.chunk_count,
			metadata    = excluded.metadata,
			updated_at  = excluded.updated_at
	`,
		doc.ID, doc.Filename, doc.Title, doc.Type.String(), doc.Content,
		doc.ChunkCount, string(metaJSON),
		doc.CreatedAt.Format(time.RFC3339), doc.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// Get retrieves a document by ID.
func (r *documentRegistry) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, filename, title, doc_type, content, chunk_count, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return doc, nil
}

// List returns documents sorted newest first.
func (r *documentRegistry) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, filename, title, doc_type, content, chunk_count, metadata, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Delete removes a document record.
func (r *documentRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the number of registered documents.
func (r *documentRegistry) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// Reset removes every document record.
func (r *documentRegistry) Reset(ctx context.Context) error {
	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("resetting document registry: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, metaJSON, createdAt, updatedAt string

	if err := s.Scan(
		&doc.ID, &doc.Filename, &doc.Title, &docType, &doc.Content,
		&doc.ChunkCount, &metaJSON, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	doc.Type = domain.DocumentType(docType)
	if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}

	var err error
	if doc.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &doc, nil
}
