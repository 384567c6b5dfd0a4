// Package file persists application settings as a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/tome/internal/core/domain"
)

// settingsFile is the on-disk TOML shape. It is kept separate from
// domain.AppSettings so the file format can evolve without touching the
// domain types.
type settingsFile struct {
	Embedding embeddingSection `toml:"embedding"`
	Fallback  embeddingSection `toml:"fallback"`
	Chunking  chunkingSection  `toml:"chunking"`
	Search    searchSection    `toml:"search"`
	Storage   storageSection   `toml:"storage"`
}

type embeddingSection struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
}

type chunkingSection struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

type searchSection struct {
	SemanticWeight float64 `toml:"semantic_weight"`
	ScoreThreshold float64 `toml:"score_threshold"`
}

type storageSection struct {
	Driver  string `toml:"driver"`
	DataDir string `toml:"data_dir"`
}

// SettingsStore loads and saves domain.AppSettings from a TOML file.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// NewSettingsStore creates a settings store rooted at configDir.
// If configDir is empty, defaults to ~/.tome.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".tome")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	return &SettingsStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads settings from disk, applying defaults for anything unset.
// A missing file yields the defaults without error.
func (s *SettingsStore) Load() (domain.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := domain.DefaultAppSettings()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return applyEnvOverrides(settings), nil
	}
	if err != nil {
		return settings, fmt.Errorf("reading config file: %w", err)
	}

	var f settingsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return settings, fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	mergeEmbedding(&settings.Embedding, f.Embedding)
	mergeEmbedding(&settings.Fallback, f.Fallback)
	if f.Chunking.ChunkSize > 0 {
		settings.Chunking.ChunkSize = f.Chunking.ChunkSize
	}
	if f.Chunking.ChunkOverlap > 0 {
		settings.Chunking.ChunkOverlap = f.Chunking.ChunkOverlap
	}
	if f.Search.SemanticWeight > 0 {
		settings.Search.SemanticWeight = f.Search.SemanticWeight
	}
	if f.Search.ScoreThreshold > 0 {
		settings.Search.ScoreThreshold = f.Search.ScoreThreshold
	}
	if f.Storage.Driver != "" {
		settings.Storage.Driver = domain.StorageDriver(f.Storage.Driver)
	}
	if f.Storage.DataDir != "" {
		settings.Storage.DataDir = f.Storage.DataDir
	}

	return applyEnvOverrides(settings), nil
}

// Save persists settings to disk with restricted permissions. API keys go
// in the file, so it must not be group or world readable.
func (s *SettingsStore) Save(settings domain.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := settingsFile{
		Embedding: embeddingToSection(settings.Embedding),
		Fallback:  embeddingToSection(settings.Fallback),
		Chunking: chunkingSection{
			ChunkSize:    settings.Chunking.ChunkSize,
			ChunkOverlap: settings.Chunking.ChunkOverlap,
		},
		Search: searchSection{
			SemanticWeight: settings.Search.SemanticWeight,
			ScoreThreshold: settings.Search.ScoreThreshold,
		},
		Storage: storageSection{
			Driver:  settings.Storage.Driver.String(),
			DataDir: settings.Storage.DataDir,
		},
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", s.filePath, err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

func mergeEmbedding(dst *domain.EmbeddingSettings, src embeddingSection) {
	if src.Provider != "" {
		dst.Provider = domain.EmbeddingProvider(src.Provider)
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Dimensions > 0 {
		dst.Dimensions = src.Dimensions
	}
}

func embeddingToSection(e domain.EmbeddingSettings) embeddingSection {
	return embeddingSection{
		Provider:   e.Provider.String(),
		Model:      e.Model,
		BaseURL:    e.BaseURL,
		APIKey:     e.APIKey,
		Dimensions: e.Dimensions,
	}
}

// applyEnvOverrides lets environment variables win over file contents so
// API keys can stay out of the config file entirely.
func applyEnvOverrides(settings domain.AppSettings) domain.AppSettings {
	if key := os.Getenv("TOME_OPENAI_API_KEY"); key != "" {
		settings.Embedding.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && settings.Embedding.Provider == domain.ProviderOpenAI {
		settings.Embedding.APIKey = key
	}
	if url := os.Getenv("TOME_OLLAMA_URL"); url != "" && settings.Embedding.Provider == domain.ProviderOllama {
		settings.Embedding.BaseURL = url
	}
	if dir := os.Getenv("TOME_DATA_DIR"); dir != "" {
		settings.Storage.DataDir = dir
	}
	return settings
}
