package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDimensionMismatchErrorMessage(t *testing.T) {
	err := &DimensionMismatchError{Expected: 768, Actual: 1536}

	assert.Contains(t, err.Error(), "768")
	assert.Contains(t, err.Error(), "1536")
	assert.Contains(t, err.Error(), "Reset", "message should tell the user how to recover")

	var target *DimensionMismatchError
	assert.ErrorAs(t, fmt.Errorf("adding entries: %w", err), &target)
	assert.Equal(t, 768, target.Expected)
}

func TestProviderErrorWrapsExhaustion(t *testing.T) {
	err := &ProviderError{Provider: "openai", Err: fmt.Errorf("rate limited: %w", ErrProviderExhausted)}

	assert.ErrorIs(t, err, ErrProviderExhausted)
	assert.Contains(t, err.Error(), "openai")
}

func TestValidationErrorWrapsSentinel(t *testing.T) {
	err := &ValidationError{Field: "content", Reason: ErrNoExtractableText}

	assert.ErrorIs(t, err, ErrNoExtractableText)
	assert.Contains(t, err.Error(), "content")
	assert.False(t, errors.Is(err, ErrNotFound))
}
