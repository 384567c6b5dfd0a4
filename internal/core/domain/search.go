package domain

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results (default 5).
	Limit int

	// SemanticWeight balances semantic against keyword scores in hybrid
	// search. 1.0 is pure semantic, 0.0 is pure keyword. Default 0.7.
	SemanticWeight float64

	// ScoreThreshold drops semantic candidates scoring below it.
	// Zero disables the floor.
	ScoreThreshold float64

	// Filter restricts candidates by index metadata, e.g.
	// {"document_id": "doc_abc123"} or {"doc_type": "md"}.
	Filter Filter
}

// Filter restricts vector index operations by metadata equality.
// The keys "document_id" and "doc_type" are recognised by every index
// implementation; other keys match against entry metadata.
type Filter map[string]string

// SearchCandidate is the ephemeral result of a single retrieval pass.
// Scores are raw per-method until fusion normalises and combines them;
// candidates are produced fresh per query and never persisted.
type SearchCandidate struct {
	// ChunkID is the matched index entry.
	ChunkID string `json:"chunk_id"`

	// DocumentID is the parent document.
	DocumentID string `json:"document_id"`

	// Filename is the parent document's filename.
	Filename string `json:"filename"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Score is the relevance score. After fusion it is the weighted
	// combination of the semantic and keyword scores, roughly in [0, 1].
	Score float64 `json:"score"`

	// SemanticScore is the similarity-converted vector score, 0 if the
	// candidate was found by the keyword path only.
	SemanticScore float64 `json:"semantic_score"`

	// KeywordScore is the normalised BM25 score, 0 if the candidate was
	// found by the semantic path only.
	KeywordScore float64 `json:"keyword_score"`

	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int `json:"chunk_index"`

	// Metadata carries the index entry metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}
