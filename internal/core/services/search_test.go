package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tome/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/keyword"
)

// seedIndex loads entries with pinned embeddings straight into the index,
// bypassing ingestion, so tests control distances exactly.
func seedIndex(t *testing.T, idx *memory.VectorIndex, entries ...driven.VectorEntry) {
	t.Helper()
	require.NoError(t, idx.Add(context.Background(), entries))
}

func chunkEntry(id, docID, text string, embedding []float32) driven.VectorEntry {
	return driven.VectorEntry{
		ID:        id,
		Embedding: embedding,
		Text:      text,
		Metadata: map[string]any{
			"document_id": docID,
			"filename":    docID + ".txt",
			"chunk_index": 0,
		},
	}
}

func TestSemanticSearchOrdering(t *testing.T) {
	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["query"] = []float32{1, 0}

	seedIndex(t, idx,
		chunkEntry("near", "doc_a", "closest text", []float32{1, 0}),
		chunkEntry("mid", "doc_b", "middling text", []float32{0.5, 0.5}),
		chunkEntry("far", "doc_c", "distant text", []float32{0, 1}),
	)

	svc := NewSearchService(idx, embedder, nil)
	results, err := svc.SemanticSearch(context.Background(), "query", domain.SearchOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "near", results[0].ChunkID)
	assert.Equal(t, "mid", results[1].ChunkID)
	assert.Equal(t, "far", results[2].ChunkID)

	assert.InDelta(t, 1.0, results[0].Score, 1e-9, "zero distance converts to similarity 1")
	assert.Equal(t, results[0].SemanticScore, results[0].Score)
	assert.Equal(t, "doc_a", results[0].DocumentID)
	assert.Equal(t, "doc_a.txt", results[0].Filename)
}

func TestSemanticSearchScoreThreshold(t *testing.T) {
	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["query"] = []float32{1, 0}

	seedIndex(t, idx,
		chunkEntry("near", "doc_a", "closest", []float32{1, 0}),
		chunkEntry("far", "doc_b", "distant", []float32{-5, 5}),
	)

	svc := NewSearchService(idx, embedder, nil)
	results, err := svc.SemanticSearch(context.Background(), "query",
		domain.SearchOptions{Limit: 10, ScoreThreshold: 0.5})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].ChunkID)
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	svc := NewSearchService(memory.NewVectorIndex(), newMockEmbedder(2), nil)

	results, err := svc.SemanticSearch(context.Background(), "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSemanticSearchNoEmbedder(t *testing.T) {
	svc := NewSearchService(memory.NewVectorIndex(), nil, nil)

	_, err := svc.SemanticSearch(context.Background(), "query", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestHybridSearchFusesScores(t *testing.T) {
	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["kubernetes"] = []float32{1, 0}

	// "semantic" sits at the query vector but shares no terms with it;
	// "keyword" mentions the term but sits far away in vector space.
	seedIndex(t, idx,
		chunkEntry("semantic", "doc_a", "container orchestration platform", []float32{1, 0}),
		chunkEntry("keyword", "doc_b", "kubernetes kubernetes kubernetes", []float32{0, 1}),
	)

	svc := NewSearchService(idx, embedder, nil)
	results, err := svc.HybridSearch(context.Background(), "kubernetes",
		domain.SearchOptions{Limit: 10, SemanticWeight: 0.7})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		switch r.ChunkID {
		case "semantic":
			assert.Positive(t, r.SemanticScore)
			assert.Zero(t, r.KeywordScore)
		case "keyword":
			assert.Positive(t, r.KeywordScore)
		}
		assert.InDelta(t, r.SemanticScore*0.7+r.KeywordScore*0.3, r.Score, 1e-9)
	}
}

func TestHybridSearchWeightOneMatchesSemantic(t *testing.T) {
	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["query terms"] = []float32{1, 0}

	seedIndex(t, idx,
		chunkEntry("c1", "doc_a", "query terms appear here", []float32{0.9, 0.1}),
		chunkEntry("c2", "doc_b", "unrelated content", []float32{1, 0}),
		chunkEntry("c3", "doc_c", "more query terms", []float32{0, 1}),
	)

	svc := NewSearchService(idx, embedder, nil)
	ctx := context.Background()

	semantic, err := svc.SemanticSearch(ctx, "query terms", domain.SearchOptions{Limit: 3})
	require.NoError(t, err)

	hybrid, err := svc.HybridSearch(ctx, "query terms",
		domain.SearchOptions{Limit: 3, SemanticWeight: 1.0})
	require.NoError(t, err)

	require.Len(t, hybrid, len(semantic))
	for i := range semantic {
		assert.Equal(t, semantic[i].ChunkID, hybrid[i].ChunkID,
			"weight 1.0 must reproduce the semantic ranking")
		assert.InDelta(t, semantic[i].Score, hybrid[i].Score, 1e-9)
	}
}

func TestHybridSearchWeightZeroMatchesKeyword(t *testing.T) {
	ids := []string{"c1", "c2", "c3"}
	texts := []string{
		"walrus walrus beach walrus",
		"a walrus rests on the beach",
		"nothing relevant here",
	}

	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["walrus beach"] = []float32{1, 0}

	seedIndex(t, idx,
		chunkEntry(ids[0], "doc_a", texts[0], []float32{0, 1}),
		chunkEntry(ids[1], "doc_b", texts[1], []float32{1, 0}),
		chunkEntry(ids[2], "doc_c", texts[2], []float32{0.9, 0.1}),
	)

	expected := keyword.NewIndex(ids, texts).Search("walrus beach", 10)
	require.NotEmpty(t, expected)

	svc := NewSearchService(idx, embedder, nil)
	ctx := context.Background()

	results, err := svc.HybridSearch(ctx, "walrus beach",
		domain.SearchOptions{Limit: 10, SemanticWeight: 0.0})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), len(expected))

	for i, hit := range expected {
		assert.Equal(t, hit.ID, results[i].ChunkID, "weight 0.0 must reproduce the keyword ranking")
		assert.InDelta(t, hit.Score, results[i].Score, 1e-9)
		assert.InDelta(t, results[i].KeywordScore, results[i].Score, 1e-9,
			"semantic score must not contribute at weight 0.0")
	}

	// Without an embedder the semantic path fails and hybrid degrades to
	// the keyword ranking alone, hydrated from the index.
	svc = NewSearchService(idx, nil, nil)
	results, err = svc.HybridSearch(ctx, "walrus beach",
		domain.SearchOptions{Limit: 10, SemanticWeight: 0.0})
	require.NoError(t, err)
	require.Len(t, results, len(expected))

	for i, hit := range expected {
		assert.Equal(t, hit.ID, results[i].ChunkID)
		assert.NotEmpty(t, results[i].Content, "keyword-only hits must be hydrated")
	}
}

func TestHybridSearchHydratesKeywordOnlyHits(t *testing.T) {
	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["zebra"] = []float32{1, 0}

	// The score threshold drops c3 from the semantic path, so it arrives
	// via the keyword path alone and must be hydrated through index.Get.
	seedIndex(t, idx,
		chunkEntry("c1", "doc_a", "plain filler text", []float32{0.99, 0.01}),
		chunkEntry("c2", "doc_b", "more filler text", []float32{0.98, 0.02}),
		chunkEntry("c3", "doc_c", "the zebra crossed the savanna", []float32{-1, 2}),
	)

	svc := NewSearchService(idx, embedder, nil)
	results, err := svc.HybridSearch(context.Background(), "zebra",
		domain.SearchOptions{Limit: 10, SemanticWeight: 0.5, ScoreThreshold: 0.5})
	require.NoError(t, err)

	var zebra *domain.SearchCandidate
	for i := range results {
		if results[i].ChunkID == "c3" {
			zebra = &results[i]
		}
	}
	require.NotNil(t, zebra, "keyword-only hit must appear in fused results")
	assert.Equal(t, "the zebra crossed the savanna", zebra.Content)
	assert.Equal(t, "doc_c", zebra.DocumentID)
	assert.Positive(t, zebra.KeywordScore)
}

func TestHybridSearchInvalidWeight(t *testing.T) {
	svc := NewSearchService(memory.NewVectorIndex(), newMockEmbedder(2), nil)

	_, err := svc.HybridSearch(context.Background(), "query", domain.SearchOptions{SemanticWeight: 1.5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.HybridSearch(context.Background(), "query", domain.SearchOptions{SemanticWeight: -0.1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHybridSearchRespectsLimit(t *testing.T) {
	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["shared"] = []float32{1, 0}

	seedIndex(t, idx,
		chunkEntry("c1", "doc_a", "shared one", []float32{1, 0}),
		chunkEntry("c2", "doc_b", "shared two", []float32{0.9, 0.1}),
		chunkEntry("c3", "doc_c", "shared three", []float32{0.8, 0.2}),
	)

	svc := NewSearchService(idx, embedder, nil)
	results, err := svc.HybridSearch(context.Background(), "shared",
		domain.SearchOptions{Limit: 2, SemanticWeight: 0.7})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestKeywordIndexInvalidation(t *testing.T) {
	idx := memory.NewVectorIndex()
	embedder := newMockEmbedder(2)
	embedder.vectors["walrus"] = []float32{1, 0}

	svc := NewSearchService(idx, embedder, nil)
	ctx := context.Background()

	// Empty corpus: no hits, and the (empty) keyword index is now cached.
	results, err := svc.HybridSearch(ctx, "walrus", domain.SearchOptions{Limit: 5, SemanticWeight: 0.5})
	require.NoError(t, err)
	assert.Empty(t, results)

	seedIndex(t, idx, chunkEntry("c1", "doc_a", "a walrus on the beach", []float32{0, 1}))

	// Stale until invalidated: the chunk surfaces via the semantic path
	// only, with no keyword contribution.
	results, err = svc.HybridSearch(ctx, "walrus", domain.SearchOptions{Limit: 5, SemanticWeight: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].KeywordScore, "stale keyword index should not see the new chunk")

	svc.InvalidateKeywordIndex()

	results, err = svc.HybridSearch(ctx, "walrus", domain.SearchOptions{Limit: 5, SemanticWeight: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Positive(t, results[0].KeywordScore)
}

func TestSearchFallbackProviderOnExhaustion(t *testing.T) {
	idx := memory.NewVectorIndex()
	primary := newMockEmbedder(2)
	primary.exhausted = true
	fallback := newMockEmbedder(2)
	fallback.vectors["query"] = []float32{1, 0}

	seedIndex(t, idx, chunkEntry("c1", "doc_a", "some text", []float32{1, 0}))

	svc := NewSearchService(idx, primary, fallback)
	results, err := svc.SemanticSearch(context.Background(), "query", domain.SearchOptions{Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Positive(t, fallback.calls)
}

func TestSearchFallbackRejectedOnDimensionConflict(t *testing.T) {
	idx := memory.NewVectorIndex()
	primary := newMockEmbedder(2)
	primary.exhausted = true
	fallback := newMockEmbedder(5)

	seedIndex(t, idx, chunkEntry("c1", "doc_a", "some text", []float32{1, 0}))

	svc := NewSearchService(idx, primary, fallback)
	_, err := svc.SemanticSearch(context.Background(), "query", domain.SearchOptions{Limit: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderExhausted)
	assert.Zero(t, fallback.calls)
}
