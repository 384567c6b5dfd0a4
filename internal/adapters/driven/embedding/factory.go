// Package embedding provides the embedding provider factory and registry.
package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/tome/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/tome/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/logger"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// cacheKey identifies a distinct provider configuration. The provider
// alone is not enough: the fallback slot may reuse the primary's provider
// with a different model or endpoint and must get its own instance.
type cacheKey struct {
	provider domain.EmbeddingProvider
	model    string
	baseURL  string
}

// Registry builds embedding services from settings and caches one
// instance per configuration, so repeated lookups reuse the same client.
// Reset drops the cache; use it when switching providers at runtime.
type Registry struct {
	mu    sync.Mutex
	cache map[cacheKey]driven.EmbeddingService
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[cacheKey]driven.EmbeddingService),
	}
}

// Get returns the cached service for the settings' configuration, creating
// it on first use. Returns nil service when the provider is not configured.
func (r *Registry) Get(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	key := cacheKey{
		provider: settings.Provider,
		model:    settings.Model,
		baseURL:  settings.BaseURL,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if svc, ok := r.cache[key]; ok {
		return svc, nil
	}

	svc, err := Create(settings)
	if err != nil {
		return nil, err
	}
	if svc != nil {
		logger.Info("Embedding provider ready: %s (%s, %d dimensions)",
			settings.Provider, svc.ModelName(), svc.Dimensions())
		r.cache[key] = svc
	}
	return svc, nil
}

// Reset closes and drops every cached service.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, svc := range r.cache {
		if err := svc.Close(); err != nil {
			logger.Warn("Closing embedding provider %s: %v", key.provider, err)
		}
		delete(r.cache, key)
	}
}

// ProviderInfo describes the active embedding provider.
type ProviderInfo struct {
	Provider  domain.EmbeddingProvider
	Model     string
	Dimension int
}

// Info returns details for every cached provider.
func (r *Registry) Info() []ProviderInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]ProviderInfo, 0, len(r.cache))
	for key, svc := range r.cache {
		infos = append(infos, ProviderInfo{
			Provider:  key.provider,
			Model:     svc.ModelName(),
			Dimension: svc.Dimensions(),
		})
	}
	return infos
}

// Create builds an embedding service from settings without caching.
// Returns nil if the provider is not configured.
func Create(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.ProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.ProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: embedding provider %q",
			domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateAndValidate builds an embedding service and verifies connectivity
// before committing to it. Returns the service, or an error with guidance.
func CreateAndValidate(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := Create(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%v). Check the provider configuration in ~/.tome/config.toml",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}
