package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tome/internal/core/domain"
)

func TestDefaultRegistryExtensions(t *testing.T) {
	r := NewDefaultRegistry()
	exts := r.Extensions()

	assert.Contains(t, exts, ".txt")
	assert.Contains(t, exts, ".md")
	assert.Contains(t, exts, ".markdown")
	assert.Contains(t, exts, ".log")
}

func TestForFilename(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		filename string
		wantType domain.DocumentType
	}{
		{"notes.txt", domain.DocumentTypeText},
		{"README.md", domain.DocumentTypeMarkdown},
		{"Guide.MARKDOWN", domain.DocumentTypeMarkdown},
		{"server.log", domain.DocumentTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			p, err := r.ForFilename(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, p.Type())
		})
	}
}

func TestForFilenameUnsupported(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.ForFilename("scan.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Contains(t, err.Error(), ".pdf")
	assert.Contains(t, err.Error(), ".txt", "error should list supported extensions")
}

func TestForFilenameNoExtension(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.ForFilename("Makefile")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
