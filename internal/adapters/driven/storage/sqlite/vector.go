package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex with a brute-force scan over
// BLOB-encoded embeddings. Exact nearest-neighbour search is fine at the
// corpus sizes a personal knowledge base reaches; an ANN structure would
// only pay off orders of magnitude later.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Add appends entries in one batch, upserting on ID collisions.
// All embeddings must share one dimension, and that dimension must match
// whatever the index already holds.
func (v *vectorIndex) Add(ctx context.Context, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	dim := len(entries[0].Embedding)
	if dim == 0 {
		return fmt.Errorf("%w: entry %s has an empty embedding", domain.ErrInvalidInput, entries[0].ID)
	}
	for _, e := range entries {
		if len(e.Embedding) != dim {
			return &domain.DimensionMismatchError{Expected: dim, Actual: len(e.Embedding)}
		}
	}

	detected, err := v.DetectDimension(ctx)
	if err != nil {
		return err
	}
	if detected != 0 && detected != dim {
		return &domain.DimensionMismatchError{Expected: detected, Actual: dim}
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO vector_entries
			(id, document_id, doc_type, chunk_index, dimension, embedding, text, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		metaJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", e.ID, err)
		}

		docID, _ := e.Metadata["document_id"].(string)
		docType, _ := e.Metadata["doc_type"].(string)
		chunkIndex := metadataInt(e.Metadata, "chunk_index")

		if _, err := stmt.ExecContext(ctx,
			e.ID, docID, docType, chunkIndex, dim,
			float32SliceToBytes(e.Embedding), e.Text, string(metaJSON),
		); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entries: %w", err)
	}
	return nil
}

// Query returns up to k nearest entries by Euclidean distance, best-first,
// with similarity = 1/(1+distance).
func (v *vectorIndex) Query(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	detected, err := v.DetectDimension(ctx)
	if err != nil {
		return nil, err
	}
	if detected == 0 {
		return nil, nil
	}
	if len(embedding) != detected {
		return nil, &domain.DimensionMismatchError{Expected: detected, Actual: len(embedding)}
	}

	where, args := buildFilter(filter)
	query := "SELECT id, embedding, text, metadata FROM vector_entries" + where

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var entry driven.VectorEntry
		var blob []byte
		var metaJSON string
		if err := rows.Scan(&entry.ID, &blob, &entry.Text, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entry.Embedding = bytesToFloat32Slice(blob)
		if err := json.Unmarshal([]byte(metaJSON), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", entry.ID, err)
		}

		dist := euclideanDistance(embedding, entry.Embedding)
		hits = append(hits, driven.VectorHit{
			Entry:      entry,
			Distance:   dist,
			Similarity: 1 / (1 + dist),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Get returns entries matching the given IDs. Embeddings are omitted.
func (v *vectorIndex) Get(ctx context.Context, ids []string) ([]driven.VectorEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := v.store.db.QueryContext(ctx,
		"SELECT id, text, metadata FROM vector_entries WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("fetching entries: %w", err)
	}
	defer rows.Close()

	var entries []driven.VectorEntry
	for rows.Next() {
		var entry driven.VectorEntry
		var metaJSON string
		if err := rows.Scan(&entry.ID, &entry.Text, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteByFilter removes entries matching the filter and reports the count.
func (v *vectorIndex) DeleteByFilter(ctx context.Context, filter domain.Filter) (int, error) {
	where, args := buildFilter(filter)
	if where == "" {
		return 0, fmt.Errorf("%w: refusing to delete without a filter (use Reset)", domain.ErrInvalidInput)
	}

	res, err := v.store.db.ExecContext(ctx, "DELETE FROM vector_entries"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted entries: %w", err)
	}
	return int(n), nil
}

// Scan pages through all entries in a stable order. Embeddings are omitted.
func (v *vectorIndex) Scan(ctx context.Context, limit, offset int) ([]driven.VectorEntry, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT id, text, metadata FROM vector_entries
		ORDER BY document_id, chunk_index
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("scanning entries: %w", err)
	}
	defer rows.Close()

	var entries []driven.VectorEntry
	for rows.Next() {
		var entry driven.VectorEntry
		var metaJSON string
		if err := rows.Scan(&entry.ID, &entry.Text, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the total number of entries.
func (v *vectorIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vector_entries").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// Reset wipes all entries.
func (v *vectorIndex) Reset(ctx context.Context) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM vector_entries"); err != nil {
		return fmt.Errorf("resetting vector index: %w", err)
	}
	return nil
}

// DetectDimension inspects any stored embedding's length.
// Returns 0 when the index is empty.
func (v *vectorIndex) DetectDimension(ctx context.Context) (int, error) {
	var dim int
	err := v.store.db.QueryRowContext(ctx, "SELECT dimension FROM vector_entries LIMIT 1").Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("detecting dimension: %w", err)
	}
	return dim, nil
}

// Close releases resources. The underlying database is shared with the
// document registry and closed by the owning Store.
func (v *vectorIndex) Close() error {
	return nil
}

// buildFilter translates a metadata filter into a WHERE clause.
// document_id and doc_type hit dedicated columns; other keys match against
// the metadata JSON.
func buildFilter(filter domain.Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	// Deterministic clause order for stable query plans and tests
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for _, key := range keys {
		switch key {
		case "document_id":
			clauses = append(clauses, "document_id = ?")
			args = append(args, filter[key])
		case "doc_type":
			clauses = append(clauses, "doc_type = ?")
			args = append(args, filter[key])
		default:
			clauses = append(clauses, "json_extract(metadata, ?) = ?")
			args = append(args, "$."+key, filter[key])
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// euclideanDistance computes the L2 distance between two vectors.
func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// metadataInt reads an int-valued metadata key regardless of whether it
// arrived as int, int64 or float64 (JSON round-trips produce float64).
func metadataInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
