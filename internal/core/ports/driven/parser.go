package driven

import (
	"context"

	"github.com/custodia-labs/tome/internal/core/domain"
)

// Parser extracts plain text from raw document bytes.
// Each parser handles specific filename extensions.
type Parser interface {
	// SupportedExtensions returns lowercase extensions including the dot,
	// e.g. ".txt", ".md".
	SupportedExtensions() []string

	// Type returns the document type this parser produces.
	Type() domain.DocumentType

	// Parse extracts plain text from raw bytes.
	Parse(ctx context.Context, content []byte, filename string) (string, error)
}
