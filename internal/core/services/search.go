package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/core/ports/driving"
	"github.com/custodia-labs/tome/internal/keyword"
	"github.com/custodia-labs/tome/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchLimit caps results when the caller does not specify one.
const DefaultSearchLimit = 5

// scanPageSize is the page size used when rebuilding the keyword index
// from the vector index.
const scanPageSize = 1000

// SearchService answers semantic and hybrid queries against the corpus.
//
// The keyword index is built lazily from a full scan of the vector index
// on the first keyword query and cached until invalidated. The fallback
// embedder is optional and consulted once per query, only when the primary
// reports exhaustion.
type SearchService struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	fallback driven.EmbeddingService

	kwMu sync.Mutex
	kw   *keyword.Index
}

// NewSearchService creates a search service. fallback may be nil.
func NewSearchService(
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	fallback driven.EmbeddingService,
) *SearchService {
	return &SearchService{
		index:    index,
		embedder: embedder,
		fallback: fallback,
	}
}

// SemanticSearch retrieves candidates by vector similarity alone.
func (s *SearchService) SemanticSearch(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchCandidate{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	candidates, err := s.semanticCandidates(ctx, query, limit, opts)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].Score = candidates[i].SemanticScore
	}
	return candidates, nil
}

// HybridSearch fuses semantic and keyword retrieval into one ranking.
// Both paths over-fetch 2x the limit so a candidate strong on only one
// path can still reach the final top-k once scores are combined.
func (s *SearchService) HybridSearch(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchCandidate{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	weight := opts.SemanticWeight
	if weight < 0 || weight > 1 {
		return nil, &domain.ValidationError{
			Field:  "semantic_weight",
			Reason: fmt.Errorf("%w: must be in [0, 1], got %g", domain.ErrInvalidInput, weight),
		}
	}

	fetch := limit * 2
	logger.Debug("Hybrid search: query=%q, limit=%d, weight=%.2f", query, limit, weight)

	var semantic []domain.SearchCandidate
	var kwHits []keyword.Hit
	var semErr, kwErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		semantic, semErr = s.semanticCandidates(ctx, query, fetch, opts)
	}()
	go func() {
		defer wg.Done()
		kwHits, kwErr = s.keywordSearch(ctx, query, fetch)
	}()
	wg.Wait()

	// Degrade to single-path results when exactly one side fails.
	if semErr != nil && kwErr != nil {
		return nil, fmt.Errorf("hybrid search: semantic: %w (keyword: %v)", semErr, kwErr)
	}
	if semErr != nil {
		logger.Warn("Semantic path failed, keyword results only: %v", semErr)
	}
	if kwErr != nil {
		logger.Warn("Keyword path failed, semantic results only: %v", kwErr)
	}

	merged, err := s.fuse(ctx, semantic, kwHits, weight)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	logger.Debug("Hybrid search: %d semantic + %d keyword hits, %d returned",
		len(semantic), len(kwHits), len(merged))
	return merged, nil
}

// InvalidateKeywordIndex drops the cached keyword index.
func (s *SearchService) InvalidateKeywordIndex() {
	s.kwMu.Lock()
	defer s.kwMu.Unlock()
	s.kw = nil
}

// semanticCandidates embeds the query and retrieves the k nearest entries,
// applying the score threshold.
func (s *SearchService) semanticCandidates(
	ctx context.Context, query string, k int, opts domain.SearchOptions,
) ([]domain.SearchCandidate, error) {
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Query(ctx, embedding, k, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	candidates := make([]domain.SearchCandidate, 0, len(hits))
	for _, hit := range hits {
		if opts.ScoreThreshold > 0 && hit.Similarity < opts.ScoreThreshold {
			continue
		}
		c := candidateFromEntry(hit.Entry)
		c.SemanticScore = hit.Similarity
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// embedQuery embeds the query with the primary provider, trying the
// fallback once on exhaustion. The fallback is rejected when its dimension
// differs from what the index holds, since its vectors would be
// incomparable with the stored ones.
func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err == nil {
		return embedding, nil
	}
	if !errors.Is(err, domain.ErrProviderExhausted) || s.fallback == nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	detected, dimErr := s.index.DetectDimension(ctx)
	if dimErr != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if detected != 0 && detected != s.fallback.Dimensions() {
		logger.Warn("Fallback provider skipped: produces %d dimensions, index holds %d",
			s.fallback.Dimensions(), detected)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	logger.Info("Primary embedding provider exhausted, trying fallback %s", s.fallback.ModelName())
	embedding, fbErr := s.fallback.Embed(ctx, query)
	if fbErr != nil {
		return nil, fmt.Errorf("embedding query (fallback also failed: %v): %w", fbErr, err)
	}
	return embedding, nil
}

// keywordSearch runs BM25 over the cached keyword index, rebuilding it
// from the vector index when stale.
func (s *SearchService) keywordSearch(ctx context.Context, query string, k int) ([]keyword.Hit, error) {
	idx, err := s.keywordIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("keyword index: %w", err)
	}
	return idx.Search(query, k), nil
}

// keywordIndex returns the cached index, building it when absent.
// Single-flight by mutex: concurrent callers wait for one build.
func (s *SearchService) keywordIndex(ctx context.Context) (*keyword.Index, error) {
	s.kwMu.Lock()
	defer s.kwMu.Unlock()

	if s.kw != nil {
		return s.kw, nil
	}

	logger.Debug("Building keyword index from vector index scan")
	var ids, texts []string
	for offset := 0; ; offset += scanPageSize {
		entries, err := s.index.Scan(ctx, scanPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			ids = append(ids, e.ID)
			texts = append(texts, e.Text)
		}
		if len(entries) < scanPageSize {
			break
		}
	}

	s.kw = keyword.NewIndex(ids, texts)
	logger.Debug("Keyword index built: %d chunks", s.kw.Len())
	return s.kw, nil
}

// fuse unions semantic and keyword candidates by chunk ID and combines
// their scores as semantic*weight + keyword*(1-weight). Keyword-only
// candidates are hydrated from the vector index so they carry content
// and metadata like everyone else.
func (s *SearchService) fuse(
	ctx context.Context,
	semantic []domain.SearchCandidate,
	kwHits []keyword.Hit,
	weight float64,
) ([]domain.SearchCandidate, error) {
	byID := make(map[string]*domain.SearchCandidate, len(semantic)+len(kwHits))
	order := make([]string, 0, len(semantic)+len(kwHits))

	for i := range semantic {
		c := semantic[i]
		byID[c.ChunkID] = &c
		order = append(order, c.ChunkID)
	}

	var missing []string
	for _, hit := range kwHits {
		if c, ok := byID[hit.ID]; ok {
			c.KeywordScore = hit.Score
			continue
		}
		c := domain.SearchCandidate{ChunkID: hit.ID, KeywordScore: hit.Score}
		byID[hit.ID] = &c
		order = append(order, hit.ID)
		missing = append(missing, hit.ID)
	}

	if len(missing) > 0 {
		entries, err := s.index.Get(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("hydrating keyword hits: %w", err)
		}
		for _, entry := range entries {
			if c, ok := byID[entry.ID]; ok {
				hydrated := candidateFromEntry(entry)
				hydrated.KeywordScore = c.KeywordScore
				*c = hydrated
			}
		}
	}

	merged := make([]domain.SearchCandidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		if c.Content == "" && c.SemanticScore == 0 {
			// Keyword hit whose entry vanished between scoring and
			// hydration (concurrent delete). Skip it.
			continue
		}
		c.Score = c.SemanticScore*weight + c.KeywordScore*(1-weight)
		merged = append(merged, *c)
	}
	return merged, nil
}

// candidateFromEntry lifts an index entry into a search candidate using
// the metadata written at ingestion time.
func candidateFromEntry(entry driven.VectorEntry) domain.SearchCandidate {
	c := domain.SearchCandidate{
		ChunkID:  entry.ID,
		Content:  entry.Text,
		Metadata: entry.Metadata,
	}
	if v, ok := entry.Metadata["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := entry.Metadata["filename"].(string); ok {
		c.Filename = v
	}
	c.ChunkIndex = metadataInt(entry.Metadata, "chunk_index")
	return c
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
