package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentIDDeterministic(t *testing.T) {
	content := []byte("some document content")

	id1 := DocumentID(content, "notes.txt")
	id2 := DocumentID(content, "notes.txt")
	assert.Equal(t, id1, id2)

	assert.Regexp(t, `^doc_[0-9a-f]{12}$`, id1)
}

func TestDocumentIDVariesWithInput(t *testing.T) {
	content := []byte("some document content")

	byFilename := DocumentID(content, "other.txt")
	byContent := DocumentID([]byte("different content"), "notes.txt")
	base := DocumentID(content, "notes.txt")

	assert.NotEqual(t, base, byFilename, "same bytes under another name is a distinct document")
	assert.NotEqual(t, base, byContent)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc_abc123_chunk_0", ChunkID("doc_abc123", 0))
	assert.Equal(t, "doc_abc123_chunk_17", ChunkID("doc_abc123", 17))
}

func TestDocumentTypeIsValid(t *testing.T) {
	assert.True(t, DocumentTypeText.IsValid())
	assert.True(t, DocumentTypeMarkdown.IsValid())
	assert.False(t, DocumentType("pdf").IsValid())
	assert.False(t, DocumentType("").IsValid())
}
