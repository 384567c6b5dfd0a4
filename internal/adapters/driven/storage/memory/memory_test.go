package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
)

func entry(id, docID string, embedding []float32) driven.VectorEntry {
	return driven.VectorEntry{
		ID:        id,
		Embedding: embedding,
		Text:      "text for " + id,
		Metadata:  map[string]any{"document_id": docID},
	}
}

func TestVectorIndexQueryOrdering(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []driven.VectorEntry{
		entry("c1", "doc_a", []float32{1, 0}),
		entry("c2", "doc_a", []float32{0, 1}),
		entry("c3", "doc_b", []float32{0.9, 0.1}),
	}))

	hits, err := idx.Query(ctx, []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "c1", hits[0].Entry.ID)
	assert.Equal(t, "c3", hits[1].Entry.ID)
	assert.Equal(t, "c2", hits[2].Entry.ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}

func TestVectorIndexDimensionEnforcement(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []driven.VectorEntry{entry("c1", "doc_a", []float32{1, 0, 0})}))

	var mismatch *domain.DimensionMismatchError
	err := idx.Add(ctx, []driven.VectorEntry{entry("c2", "doc_a", []float32{1, 0})})
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Expected)

	_, err = idx.Query(ctx, []float32{1, 0}, 1, nil)
	assert.ErrorAs(t, err, &mismatch)
}

func TestVectorIndexDeleteByFilter(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []driven.VectorEntry{
		entry("c1", "doc_a", []float32{1}),
		entry("c2", "doc_a", []float32{2}),
		entry("c3", "doc_b", []float32{3}),
	}))

	deleted, err := idx.DeleteByFilter(ctx, domain.Filter{"document_id": "doc_a"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = idx.DeleteByFilter(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndexScanInsertionOrder(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []driven.VectorEntry{
		entry("c1", "doc_a", []float32{1}),
		entry("c2", "doc_a", []float32{2}),
		entry("c3", "doc_a", []float32{3}),
	}))

	page, err := idx.Scan(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c2", page[0].ID)
	assert.Equal(t, "c3", page[1].ID)
}

func TestDocumentRegistryLifecycle(t *testing.T) {
	reg := NewDocumentRegistry()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc_abc", Filename: "a.txt", Type: domain.DocumentTypeText}
	require.NoError(t, reg.Save(ctx, doc))

	got, err := reg.Get(ctx, "doc_abc")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Filename)
	assert.False(t, got.CreatedAt.IsZero())

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, reg.Delete(ctx, "doc_abc"))
	_, err = reg.Get(ctx, "doc_abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, reg.Delete(ctx, "doc_abc"), domain.ErrNotFound)
}

func TestDocumentRegistryReset(t *testing.T) {
	reg := NewDocumentRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, &domain.Document{ID: "doc_a", Filename: "a.txt"}))
	require.NoError(t, reg.Save(ctx, &domain.Document{ID: "doc_b", Filename: "b.txt"}))
	require.NoError(t, reg.Reset(ctx))

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
