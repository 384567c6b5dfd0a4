package driven

import (
	"context"

	"github.com/custodia-labs/tome/internal/core/domain"
)

// DocumentRegistry is the durable map from document ID to Document record.
// It survives process restarts and serves listing and metadata lookups
// without re-scanning the vector index.
type DocumentRegistry interface {
	// Save stores or updates a document record.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID. Returns domain.ErrNotFound for
	// unknown IDs.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns documents sorted newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)

	// Delete removes a document record. Returns domain.ErrNotFound for
	// unknown IDs.
	Delete(ctx context.Context, id string) error

	// Count returns the number of registered documents.
	Count(ctx context.Context) (int, error)

	// Reset removes every document record.
	Reset(ctx context.Context) error
}
