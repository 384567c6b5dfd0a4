package driving

import (
	"context"

	"github.com/custodia-labs/tome/internal/core/domain"
)

// IngestService orchestrates the parse, chunk, embed, store pipeline.
type IngestService interface {
	// Ingest processes raw document bytes end to end and returns the
	// registered document. Re-ingesting identical bytes under the same
	// filename returns the existing document without re-indexing.
	Ingest(ctx context.Context, content []byte, filename, title string, metadata map[string]any) (*domain.Document, error)

	// Get retrieves a document by ID. Returns domain.ErrNotFound for
	// unknown IDs.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns document records (content omitted) newest first.
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)

	// Delete removes a document and all its index entries. It reports
	// whether the document existed and how many chunks were removed;
	// deleting a missing document is not an error.
	Delete(ctx context.Context, id string) (found bool, chunksDeleted int, err error)

	// Count returns the number of registered documents.
	Count(ctx context.Context) (int, error)

	// ResetAll deletes every document and wipes the vector index,
	// returning the number of documents removed. Used when switching
	// embedding providers, since two dimensions cannot coexist.
	ResetAll(ctx context.Context) (int, error)
}
