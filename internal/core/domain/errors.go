package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Validation failures are never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document type or extension.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrNoExtractableText indicates parsing produced no usable text.
	ErrNoExtractableText = errors.New("document contains no extractable text")

	// ErrProviderExhausted indicates the embedding provider hit a quota or
	// rate limit. Callers may recover by retrying against a configured
	// fallback provider; the provider itself does not retry past its cap.
	ErrProviderExhausted = errors.New("embedding provider exhausted")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic and hybrid search are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrIndexCorrupt indicates the vector index contents are inconsistent.
	ErrIndexCorrupt = errors.New("vector index corrupt")
)

// DimensionMismatchError reports an embedding whose length disagrees with
// the dimension already stored in the vector index. Mixing dimensions would
// silently corrupt similarity ordering, so this is fatal for the operation
// in progress and is never papered over by truncating or padding vectors.
type DimensionMismatchError struct {
	// Expected is the dimension the index already holds.
	Expected int

	// Actual is the dimension the caller supplied.
	Actual int
}

// Error implements the error interface with a remediation hint.
func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf(
		"embedding dimension mismatch: index holds %d-dimensional vectors, got %d. "+
			"Reset and re-index, or switch back to a %d-dimensional embedding model",
		e.Expected, e.Actual, e.Expected)
}

// ProviderError reports a failure from a named embedding provider.
// It wraps ErrProviderExhausted for quota and rate-limit failures so
// callers can detect the exhaustion class with errors.Is.
type ProviderError struct {
	// Provider is the provider key that failed (e.g. "openai", "ollama").
	Provider string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ValidationError reports rejected ingestion input with the offending field.
// It wraps ErrInvalidInput, ErrUnsupportedType or ErrNoExtractableText.
type ValidationError struct {
	// Field names the rejected input ("content", "filename", "extension").
	Field string

	// Reason is the wrapped sentinel describing the rejection.
	Reason error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Reason)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Reason
}
