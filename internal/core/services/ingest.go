package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/core/ports/driving"
	"github.com/custodia-labs/tome/internal/logger"
	"github.com/custodia-labs/tome/internal/parsers"
	"github.com/custodia-labs/tome/internal/postprocessors"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// maxTitleLength bounds the derived title when no explicit title is given.
const maxTitleLength = 80

// KeywordInvalidator is notified when the indexed corpus changes, so a
// cached keyword index can be rebuilt on the next query.
type KeywordInvalidator interface {
	InvalidateKeywordIndex()
}

// IngestService runs the parse, chunk, embed, store pipeline.
//
// Document IDs are content-addressed, so ingesting identical bytes under
// the same filename is a no-op returning the existing record. Concurrent
// ingestions of the same bytes are collapsed through singleflight rather
// than racing on the registry.
type IngestService struct {
	registry driven.DocumentRegistry
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	fallback driven.EmbeddingService
	parsers  *parsers.Registry
	pipeline *postprocessors.Pipeline

	invalidator KeywordInvalidator
	inflight    singleflight.Group
}

// NewIngestService creates an ingest service. fallback may be nil.
func NewIngestService(
	registry driven.DocumentRegistry,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	fallback driven.EmbeddingService,
	parserRegistry *parsers.Registry,
	pipeline *postprocessors.Pipeline,
) *IngestService {
	return &IngestService{
		registry: registry,
		index:    index,
		embedder: embedder,
		fallback: fallback,
		parsers:  parserRegistry,
		pipeline: pipeline,
	}
}

// SetKeywordInvalidator wires the search service's cache invalidation.
func (s *IngestService) SetKeywordInvalidator(inv KeywordInvalidator) {
	s.invalidator = inv
}

// Ingest processes raw document bytes end to end.
func (s *IngestService) Ingest(
	ctx context.Context, content []byte, filename, title string, metadata map[string]any,
) (*domain.Document, error) {
	if len(content) == 0 {
		return nil, &domain.ValidationError{Field: "content", Reason: domain.ErrInvalidInput}
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, &domain.ValidationError{Field: "filename", Reason: domain.ErrInvalidInput}
	}

	docID := domain.DocumentID(content, filename)

	result, err, _ := s.inflight.Do(docID, func() (any, error) {
		return s.ingest(ctx, docID, content, filename, title, metadata)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Document), nil
}

func (s *IngestService) ingest(
	ctx context.Context, docID string, content []byte, filename, title string, metadata map[string]any,
) (*domain.Document, error) {
	logger.Section("Ingestion")
	logger.Debug("Document %s (%s, %d bytes)", docID, filename, len(content))

	// Identical bytes under the same filename hash to the same ID, so an
	// existing record means there is nothing to do.
	if existing, err := s.registry.Get(ctx, docID); err == nil {
		logger.Info("Document %s already indexed, skipping", docID)
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checking registry: %w", err)
	}

	parser, err := s.parsers.ForFilename(filename)
	if err != nil {
		return nil, err
	}

	text, err := parser.Parse(ctx, content, filename)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ValidationError{Field: "content", Reason: domain.ErrNoExtractableText}
	}

	if title == "" {
		title = deriveTitle(text, filename)
	}

	doc := &domain.Document{
		ID:       docID,
		Filename: filename,
		Title:    title,
		Type:     parser.Type(),
		Content:  text,
		Metadata: metadata,
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunking %s: %w", docID, err)
	}
	if len(chunks) == 0 {
		return nil, &domain.ValidationError{Field: "content", Reason: domain.ErrNoExtractableText}
	}
	logger.Debug("Chunked into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := s.embedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := make([]driven.VectorEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = driven.VectorEntry{
			ID:        chunk.ID,
			Embedding: embeddings[i],
			Text:      chunk.Content,
			Metadata: map[string]any{
				"document_id": doc.ID,
				"filename":    doc.Filename,
				"doc_type":    doc.Type.String(),
				"chunk_index": chunk.Index,
				"start_char":  chunk.StartChar,
				"end_char":    chunk.EndChar,
				"token_count": chunk.TokenCount,
			},
		}
	}

	if err := s.index.Add(ctx, entries); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", docID, err)
	}

	doc.ChunkCount = len(chunks)
	if err := s.registry.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("registering %s: %w", docID, err)
	}

	s.invalidate()
	logger.Info("Ingested %s: %d chunks", docID, len(chunks))
	return doc, nil
}

// embedBatch embeds chunk texts with the primary provider, trying the
// fallback once when the primary is exhausted. The fallback is rejected
// when its dimension disagrees with what the index already holds.
func (s *IngestService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		return embeddings, nil
	}
	if !errors.Is(err, domain.ErrProviderExhausted) || s.fallback == nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	detected, dimErr := s.index.DetectDimension(ctx)
	if dimErr != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if detected != 0 && detected != s.fallback.Dimensions() {
		logger.Warn("Fallback provider skipped: produces %d dimensions, index holds %d",
			s.fallback.Dimensions(), detected)
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	logger.Info("Primary embedding provider exhausted, trying fallback %s", s.fallback.ModelName())
	embeddings, fbErr := s.fallback.EmbedBatch(ctx, texts)
	if fbErr != nil {
		return nil, fmt.Errorf("embedding chunks (fallback also failed: %v): %w", fbErr, err)
	}
	return embeddings, nil
}

// Get retrieves a document by ID.
func (s *IngestService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.registry.Get(ctx, id)
}

// List returns document records newest first with content omitted, since
// listings only need metadata and full text can be megabytes.
func (s *IngestService) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	docs, err := s.registry.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Content = ""
	}
	return docs, nil
}

// Delete removes a document and its index entries.
func (s *IngestService) Delete(ctx context.Context, id string) (bool, int, error) {
	if err := s.registry.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}

	deleted, err := s.index.DeleteByFilter(ctx, domain.Filter{"document_id": id})
	if err != nil {
		return true, 0, fmt.Errorf("removing index entries for %s: %w", id, err)
	}

	s.invalidate()
	logger.Info("Deleted document %s: %d chunks removed", id, deleted)
	return true, deleted, nil
}

// Count returns the number of registered documents.
func (s *IngestService) Count(ctx context.Context) (int, error) {
	return s.registry.Count(ctx)
}

// ResetAll wipes the registry and the vector index.
func (s *IngestService) ResetAll(ctx context.Context) (int, error) {
	count, err := s.registry.Count(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("resetting vector index: %w", err)
	}
	if err := s.registry.Reset(ctx); err != nil {
		return 0, fmt.Errorf("resetting registry: %w", err)
	}

	s.invalidate()
	logger.Info("Reset: %d documents removed", count)
	return count, nil
}

func (s *IngestService) invalidate() {
	if s.invalidator != nil {
		s.invalidator.InvalidateKeywordIndex()
	}
}

// deriveTitle picks a title from the document text: the first non-empty
// line, when it is short and reads like a heading. Anything else falls
// back to the filename without its extension.
func deriveTitle(text, filename string) string {
	for _, line := range strings.SplitN(text, "\n", 10) {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line == "" {
			continue
		}
		if len(line) <= maxTitleLength && looksLikeHeading(line) {
			return line
		}
		break
	}

	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// looksLikeHeading accepts short capitalized lines that do not trail off
// into a sentence fragment.
func looksLikeHeading(line string) bool {
	runes := []rune(line)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return false
	}
	last := runes[len(runes)-1]
	return last != ',' && last != ';'
}
