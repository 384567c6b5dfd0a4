package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document represents an ingested document with metadata.
// It is the canonical representation after parsing.
type Document struct {
	// ID is the content-addressed identifier for the document.
	// Identical bytes ingested under the same filename always map to the
	// same ID, which is what makes re-ingestion a no-op.
	ID string

	// Filename is the original filename the document was ingested under.
	Filename string

	// Title is the human-readable title.
	Title string

	// Type is the detected document type.
	Type DocumentType

	// Content is the full text content after parsing.
	// This is the complete document text before chunking.
	Content string

	// ChunkCount is the number of chunks the document was split into.
	ChunkCount int

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// DocumentType identifies the source format of a document.
type DocumentType string

// Supported document types.
const (
	DocumentTypeText     DocumentType = "txt"
	DocumentTypeMarkdown DocumentType = "md"
)

// String returns the string representation.
func (t DocumentType) String() string {
	return string(t)
}

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeText, DocumentTypeMarkdown:
		return true
	default:
		return false
	}
}

// Chunk represents a searchable unit within a document.
// Documents are split into overlapping chunks for granular retrieval.
type Chunk struct {
	// ID is the deterministic chunk identifier: "{documentID}_chunk_{index}".
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Index is the ordinal position within the document, starting at 0.
	Index int

	// StartChar is the chunk's start offset into the normalised text.
	StartChar int

	// EndChar is the chunk's end offset into the normalised text.
	// Windows of adjacent chunks overlap, so the [StartChar, EndChar)
	// ranges of neighbouring chunks share a boundary region.
	EndChar int

	// TokenCount is the estimated token count of the content.
	TokenCount int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// ChunkID builds the deterministic chunk identifier for a document and index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// DocumentID derives the content-addressed document identifier from raw
// bytes and the filename. The filename participates in the hash so the same
// bytes uploaded under a different name produce a distinct document.
func DocumentID(content []byte, filename string) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte(filename))
	return "doc_" + hex.EncodeToString(h.Sum(nil))[:12]
}
