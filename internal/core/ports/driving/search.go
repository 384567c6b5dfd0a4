package driving

import (
	"context"

	"github.com/custodia-labs/tome/internal/core/domain"
)

// SearchService answers queries against the indexed corpus.
type SearchService interface {
	// SemanticSearch retrieves candidates by vector similarity alone.
	SemanticSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchCandidate, error)

	// HybridSearch fuses semantic and keyword retrieval into one ranking
	// weighted by opts.SemanticWeight.
	HybridSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchCandidate, error)

	// InvalidateKeywordIndex drops the lazily built keyword index so the
	// next keyword query rebuilds it from the current corpus. Call after
	// bulk ingestion or deletion.
	InvalidateKeywordIndex()
}
