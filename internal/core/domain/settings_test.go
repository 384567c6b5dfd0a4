package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkingSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkingSettings
		wantErr bool
	}{
		{"defaults", ChunkingSettings{ChunkSize: 512, ChunkOverlap: 50}, false},
		{"zero overlap", ChunkingSettings{ChunkSize: 100, ChunkOverlap: 0}, false},
		{"zero size", ChunkingSettings{ChunkSize: 0, ChunkOverlap: 0}, true},
		{"negative overlap", ChunkingSettings{ChunkSize: 100, ChunkOverlap: -1}, true},
		{"overlap equals size", ChunkingSettings{ChunkSize: 100, ChunkOverlap: 100}, true},
		{"overlap exceeds size", ChunkingSettings{ChunkSize: 100, ChunkOverlap: 150}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmbeddingSettingsIsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: "mystery"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: ProviderOpenAI}.IsConfigured(), "openai needs a key")

	assert.True(t, EmbeddingSettings{Provider: ProviderOllama}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: ProviderOpenAI, APIKey: "sk-test"}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 512, s.Chunking.ChunkSize)
	assert.Equal(t, 50, s.Chunking.ChunkOverlap)
	assert.NoError(t, s.Chunking.Validate())
	assert.InDelta(t, 0.7, s.Search.SemanticWeight, 1e-9)
	assert.Equal(t, StorageSQLite, s.Storage.Driver)
	assert.False(t, s.Embedding.IsConfigured())
}
