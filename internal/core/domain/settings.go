package domain

import "fmt"

const unknownDescription = "Unknown"

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// ProviderOllama runs embedding models locally via Ollama.
	ProviderOllama EmbeddingProvider = "ollama"

	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case ProviderOllama, ProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if the provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == ProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case ProviderOllama:
		return "Ollama (local)"
	case ProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default vector size where the
	// provider supports it. Zero uses the model default.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings holds chunker configuration. Sizes are in tokens;
// the chunker derives character windows at ~4 characters per token.
type ChunkingSettings struct {
	// ChunkSize is the target chunk size in tokens.
	ChunkSize int

	// ChunkOverlap is the overlap between adjacent chunks in tokens.
	ChunkOverlap int
}

// Validate rejects configurations the chunker cannot honour.
func (c ChunkingSettings) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidInput, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap cannot be negative, got %d", ErrInvalidInput, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			ErrInvalidInput, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// SemanticWeight is the default hybrid fusion weight.
	SemanticWeight float64

	// ScoreThreshold is the default semantic score floor.
	ScoreThreshold float64
}

// StorageDriver selects the vector index and registry backend.
type StorageDriver string

// Available storage drivers.
const (
	// StorageSQLite persists the index and registry in a SQLite database.
	StorageSQLite StorageDriver = "sqlite"

	// StorageMemory keeps everything in process memory. Useful for tests
	// and throwaway corpora.
	StorageMemory StorageDriver = "memory"
)

// String returns the string representation.
func (d StorageDriver) String() string {
	return string(d)
}

// IsValid returns true if the driver is recognised.
func (d StorageDriver) IsValid() bool {
	switch d {
	case StorageSQLite, StorageMemory:
		return true
	default:
		return false
	}
}

// StorageSettings holds storage backend configuration.
type StorageSettings struct {
	// Driver selects the backend.
	Driver StorageDriver

	// DataDir is the directory holding persistent state.
	// Empty defaults to ~/.tome/data.
	DataDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds the primary embedding provider settings.
	Embedding EmbeddingSettings

	// Fallback holds the optional fallback embedding provider, tried once
	// when the primary reports exhaustion. Unset means no fallback.
	Fallback EmbeddingSettings

	// Chunking holds chunker settings.
	Chunking ChunkingSettings

	// Search holds search behaviour settings.
	Search SearchSettings

	// Storage holds storage backend settings.
	Storage StorageSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The embedding provider is left unconfigured; users must set it up
// before semantic search and ingestion work.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{},
		Fallback:  EmbeddingSettings{},
		Chunking: ChunkingSettings{
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		Search: SearchSettings{
			SemanticWeight: 0.7,
			ScoreThreshold: 0,
		},
		Storage: StorageSettings{
			Driver: StorageSQLite,
		},
	}
}
