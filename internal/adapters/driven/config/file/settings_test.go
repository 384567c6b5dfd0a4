package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tome/internal/core/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 512, settings.Chunking.ChunkSize)
	assert.Equal(t, domain.StorageSQLite, settings.Storage.Driver)
	assert.False(t, settings.Embedding.IsConfigured())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.ProviderOllama,
		Model:    "all-minilm",
		BaseURL:  "http://localhost:11434",
	}
	settings.Chunking.ChunkSize = 256
	settings.Search.SemanticWeight = 0.9

	require.NoError(t, store.Save(settings))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderOllama, loaded.Embedding.Provider)
	assert.Equal(t, "all-minilm", loaded.Embedding.Model)
	assert.Equal(t, 256, loaded.Chunking.ChunkSize)
	assert.InDelta(t, 0.9, loaded.Search.SemanticWeight, 1e-9)
}

func TestSaveRestrictsPermissions(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.ProviderOpenAI,
		APIKey:   "sk-secret",
	}
	require.NoError(t, store.Save(settings))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config holds API keys")
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chunking]\nchunk_size = 128\n"), 0600))

	store, err := NewSettingsStore(dir)
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 128, settings.Chunking.ChunkSize)
	assert.Equal(t, 50, settings.Chunking.ChunkOverlap, "unset keys keep defaults")
	assert.InDelta(t, 0.7, settings.Search.SemanticWeight, 1e-9)
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("TOME_OPENAI_API_KEY", "sk-from-env")

	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", settings.Embedding.APIKey)
}
