// Package cli implements the cobra command surface.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/tome/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tome/internal/adapters/driven/embedding"
	"github.com/custodia-labs/tome/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tome/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
	"github.com/custodia-labs/tome/internal/core/services"
	"github.com/custodia-labs/tome/internal/logger"
	"github.com/custodia-labs/tome/internal/parsers"
	"github.com/custodia-labs/tome/internal/postprocessors"
)

// version is set by Execute from the build.
var version = "dev"

var verbose bool

// Wired during PersistentPreRunE and shared by all commands.
var (
	settings      domain.AppSettings
	settingsStore *configfile.SettingsStore
	providers     *embedding.Registry
	vectorIndex   driven.VectorIndex
	docRegistry   driven.DocumentRegistry
	ingestService *services.IngestService
	searchService *services.SearchService
	store         *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "tome",
	Short: "Local document indexing and hybrid search",
	Long: `Tome ingests plain text and markdown documents into a local index
and retrieves them with hybrid semantic + keyword search.`,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI with the given build version.
func Execute(v string) error {
	version = v
	defer shutdown()
	return rootCmd.Execute()
}

// initApp loads configuration and wires storage and services.
// Embedding providers are constructed lazily; an unconfigured provider
// leaves semantic search disabled but keeps the rest of the CLI working.
func initApp(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	// Optional: API keys from a local .env during development.
	_ = godotenv.Load()

	var err error
	settingsStore, err = configfile.NewSettingsStore("")
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	settings, err = settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	switch settings.Storage.Driver {
	case domain.StorageMemory:
		vectorIndex = memory.NewVectorIndex()
		docRegistry = memory.NewDocumentRegistry()
	case domain.StorageSQLite, "":
		store, err = sqlite.NewStore(settings.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		vectorIndex = store.VectorIndex()
		docRegistry = store.DocumentRegistry()
	default:
		return fmt.Errorf("%w: storage driver %q", domain.ErrUnsupportedType, settings.Storage.Driver)
	}

	providers = embedding.NewRegistry()
	embedder, err := providers.Get(settings.Embedding)
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	fallback, err := providers.Get(settings.Fallback)
	if err != nil {
		logger.Warn("Fallback embedding provider unavailable: %v", err)
	}

	// A provider whose dimension disagrees with the stored index would
	// corrupt similarity ordering, so refuse to start with the mismatch.
	// The reset command is exempt: it is the documented way out.
	if embedder != nil && cmd.Name() != "reset" {
		if err := driven.ValidateDimension(cmd.Context(), vectorIndex, embedder.Dimensions()); err != nil {
			return fmt.Errorf("%w\nRun 'tome reset' to re-index with the current provider", err)
		}
	}

	pipeline, err := postprocessors.DefaultPipeline(settings.Chunking)
	if err != nil {
		return fmt.Errorf("building chunking pipeline: %w", err)
	}

	searchService = services.NewSearchService(vectorIndex, embedder, fallback)
	ingestService = services.NewIngestService(
		docRegistry, vectorIndex, embedder, fallback,
		parsers.NewDefaultRegistry(), pipeline,
	)
	ingestService.SetKeywordInvalidator(searchService)

	return nil
}

func shutdown() {
	if providers != nil {
		providers.Reset()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("Closing storage: %v", err)
		}
	}
}
