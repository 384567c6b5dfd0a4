package driven

import (
	"context"

	"github.com/custodia-labs/tome/internal/core/domain"
)

// PostProcessor transforms document content into chunks, or refines
// chunks produced by an earlier processor in the pipeline.
type PostProcessor interface {
	// Name returns the processor's unique name for config and logging.
	Name() string

	// Process runs on the document. The first processor in a pipeline
	// receives nil chunks and creates them; later processors receive and
	// may modify the chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}
