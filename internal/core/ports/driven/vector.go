package driven

import (
	"context"

	"github.com/custodia-labs/tome/internal/core/domain"
)

// VectorEntry is one row in the vector index.
type VectorEntry struct {
	// ID is the entry identifier, "{documentID}_chunk_{index}".
	ID string

	// Embedding is the stored vector. Every entry in one index generation
	// has an embedding of identical length.
	Embedding []float32

	// Text is the chunk content.
	Text string

	// Metadata carries document_id, filename, doc_type, chunk_index,
	// char offsets and token count.
	Metadata map[string]any
}

// VectorHit is a nearest-neighbour result.
type VectorHit struct {
	// Entry is the matched row.
	Entry VectorEntry

	// Distance is the raw distance to the query (lower is more similar).
	Distance float64

	// Similarity is the bounded score 1/(1+Distance), higher is better.
	Similarity float64
}

// VectorIndex is a persistent store of (id, vector, text, metadata) entries
// supporting nearest-neighbour retrieval.
//
// All entries in one logical index share a single embedding dimension.
// Add rejects mixed dimensions with *domain.DimensionMismatchError rather
// than tolerating them, and Query re-raises a wrong-sized query vector the
// same way so callers can distinguish it from generic storage failures.
// Add on an existing ID upserts (last write wins).
type VectorIndex interface {
	// Add appends entries in one batch.
	Add(ctx context.Context, entries []VectorEntry) error

	// Query returns up to k nearest entries, ordered best-first.
	Query(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]VectorHit, error)

	// Get returns the entries matching the given IDs, without embeddings
	// necessarily populated. Unknown IDs are simply absent.
	Get(ctx context.Context, ids []string) ([]VectorEntry, error)

	// DeleteByFilter removes entries matching the filter and reports the
	// number removed.
	DeleteByFilter(ctx context.Context, filter domain.Filter) (int, error)

	// Scan pages through all entries (embeddings omitted). Used to build
	// the keyword index over the full corpus.
	Scan(ctx context.Context, limit, offset int) ([]VectorEntry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int, error)

	// Reset wipes all entries.
	Reset(ctx context.Context) error

	// DetectDimension inspects any stored embedding's length.
	// Returns 0 when the index is empty.
	DetectDimension(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// ValidateDimension fails with *domain.DimensionMismatchError when the
// index already holds entries of a different dimension than expected.
// Call it at initialisation, before the first write with a newly
// configured provider; continuing past a mismatch silently corrupts
// similarity ordering.
func ValidateDimension(ctx context.Context, index VectorIndex, expected int) error {
	detected, err := index.DetectDimension(ctx)
	if err != nil {
		return err
	}
	if detected != 0 && detected != expected {
		return &domain.DimensionMismatchError{Expected: detected, Actual: expected}
	}
	return nil
}
