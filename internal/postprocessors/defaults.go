package postprocessors

import (
	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/postprocessors/chunker"
)

// DefaultPipeline builds the standard ingestion pipeline from chunking
// settings. The settings are validated first; an overlap at or beyond the
// chunk size is rejected rather than silently clamped.
func DefaultPipeline(cfg domain.ChunkingSettings) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)

	return NewPipeline(c), nil
}
