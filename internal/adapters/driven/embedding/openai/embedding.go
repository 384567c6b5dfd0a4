// Package openai provides an embedding service adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// maxBatchSize caps texts per API request. OpenAI accepts up to 2048;
	// 100 keeps individual requests small enough to retry cheaply.
	maxBatchSize = 100

	// maxAttempts caps retries for transient failures.
	maxAttempts = 3

	// requestsPerSecond paces API calls below the default rate limit.
	requestsPerSecond = 3
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL for Azure or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client     *goopenai.Client
	model      string
	dimensions int
	limiter    *rate.Limiter
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536 // Default fallback
		}
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &EmbeddingService{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: dimensions,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// Embed generates a vector embedding for the given text.
// Empty or whitespace-only text yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in input order.
// Requests are chunked to maxBatchSize texts and retried with exponential
// backoff on transient failures; quota and rate-limit exhaustion surfaces
// as domain.ErrProviderExhausted once the retry cap is spent.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Empty texts embed to the zero vector without an API call
	result := make([][]float32, len(texts))
	var pending []string
	var pendingIdx []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			result[i] = make([]float32, s.dimensions)
			continue
		}
		pending = append(pending, text)
		pendingIdx = append(pendingIdx, i)
	}

	for offset := 0; offset < len(pending); offset += maxBatchSize {
		end := offset + maxBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		vectors, err := s.requestEmbeddings(ctx, pending[offset:end])
		if err != nil {
			return nil, err
		}
		for i, vec := range vectors {
			result[pendingIdx[offset+i]] = vec
		}

		if len(pending) > maxBatchSize {
			logger.Debug("OpenAI embeddings: batch %d/%d done",
				offset/maxBatchSize+1, (len(pending)-1)/maxBatchSize+1)
		}
	}

	return result, nil
}

// requestEmbeddings performs one API call with pacing and capped retries.
func (s *EmbeddingService) requestEmbeddings(ctx context.Context, batch []string) ([][]float32, error) {
	req := goopenai.EmbeddingRequest{
		Input: batch,
		Model: goopenai.EmbeddingModel(s.model),
	}
	// Only text-embedding-3-* models accept a dimensions override
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		req.Dimensions = s.dimensions
	}

	var vectors [][]float32

	operation := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return classifyError(err)
		}

		vectors = make([][]float32, len(batch))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(batch) {
				return backoff.Permanent(fmt.Errorf("openai: embedding index %d out of range", item.Index))
			}
			vectors[item.Index] = item.Embedding
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		// A rate limit that survives every retry is exhaustion
		if isRateLimited(err) {
			logger.Warn("OpenAI embeddings exhausted after %d attempts: %v", maxAttempts, err)
			return nil, &domain.ProviderError{
				Provider: string(domain.ProviderOpenAI),
				Err:      fmt.Errorf("%w: %v. Check billing or switch to a local provider", domain.ErrProviderExhausted, err),
			}
		}
		return nil, &domain.ProviderError{Provider: string(domain.ProviderOpenAI), Err: err}
	}

	return vectors, nil
}

// classifyError decides whether an API failure is worth retrying.
// Rate limits and server errors are transient; other API errors are not.
func classifyError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return err
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return err
		}
		return backoff.Permanent(err)
	}
	// Network-level failure, retry
	return err
}

// isRateLimited reports whether the error is a quota or rate-limit failure.
func isRateLimited(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by embedding a short probe.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
