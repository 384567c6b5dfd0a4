package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tome/internal/adapters/driven/embedding"
	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
)

var (
	providerModel      string
	providerBaseURL    string
	providerAPIKey     string
	providerDimensions int
	providerFallback   bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change configuration",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetProviderCmd = &cobra.Command{
	Use:   "set-provider [ollama|openai]",
	Short: "Configure the embedding provider",
	Long: `Configures and validates an embedding provider. The provider is pinged
and its dimension checked against the existing index before saving; a
dimension change requires 'tome reset' first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSetProvider,
}

func init() {
	settingsSetProviderCmd.Flags().StringVarP(&providerModel, "model", "m", "", "embedding model name")
	settingsSetProviderCmd.Flags().StringVar(&providerBaseURL, "base-url", "", "API endpoint override")
	settingsSetProviderCmd.Flags().StringVar(&providerAPIKey, "api-key", "", "API key (OpenAI)")
	settingsSetProviderCmd.Flags().IntVar(&providerDimensions, "dimensions", 0, "vector size override")
	settingsSetProviderCmd.Flags().BoolVar(&providerFallback, "fallback", false, "configure the fallback slot instead of the primary")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetProviderCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	cmd.Printf("Config file: %s\n\n", settingsStore.Path())

	printProvider(cmd, "Embedding", settings.Embedding)
	printProvider(cmd, "Fallback", settings.Fallback)

	cmd.Printf("Chunking:\n")
	cmd.Printf("  Chunk size:    %d tokens\n", settings.Chunking.ChunkSize)
	cmd.Printf("  Chunk overlap: %d tokens\n\n", settings.Chunking.ChunkOverlap)

	cmd.Printf("Search:\n")
	cmd.Printf("  Semantic weight: %.2f\n", settings.Search.SemanticWeight)
	cmd.Printf("  Score threshold: %.2f\n\n", settings.Search.ScoreThreshold)

	cmd.Printf("Storage:\n")
	cmd.Printf("  Driver: %s\n", settings.Storage.Driver)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}

	if infos := providers.Info(); len(infos) > 0 {
		cmd.Println("\nActive providers:")
		for _, info := range infos {
			cmd.Printf("  %s: %s (%d dimensions)\n", info.Provider, info.Model, info.Dimension)
		}
	}

	if dim, err := vectorIndex.DetectDimension(context.Background()); err == nil && dim > 0 {
		cmd.Printf("\nIndex dimension: %d\n", dim)
	}
	return nil
}

func printProvider(cmd *cobra.Command, label string, e domain.EmbeddingSettings) {
	cmd.Printf("%s provider:\n", label)
	if !e.Provider.IsValid() {
		cmd.Printf("  (not configured)\n\n")
		return
	}
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	if e.Model != "" {
		cmd.Printf("  Model:    %s\n", e.Model)
	}
	if e.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", e.BaseURL)
	}
	if e.Provider.RequiresAPIKey() {
		configured := "not set"
		if e.APIKey != "" {
			configured = "set"
		}
		cmd.Printf("  API key:  %s\n", configured)
	}
	cmd.Println()
}

func runSettingsSetProvider(cmd *cobra.Command, args []string) error {
	provider := domain.EmbeddingProvider(args[0])
	if !provider.IsValid() {
		return fmt.Errorf("%w: provider %q (available: %s, %s)",
			domain.ErrUnsupportedType, args[0], domain.ProviderOllama, domain.ProviderOpenAI)
	}

	candidate := domain.EmbeddingSettings{
		Provider:   provider,
		Model:      providerModel,
		BaseURL:    providerBaseURL,
		APIKey:     providerAPIKey,
		Dimensions: providerDimensions,
	}
	if provider.RequiresAPIKey() && candidate.APIKey == "" {
		return errors.New("openai requires --api-key (or OPENAI_API_KEY in the environment)")
	}

	svc, err := embedding.CreateAndValidate(candidate)
	if err != nil {
		return err
	}
	defer svc.Close()

	// A provider whose dimension disagrees with the stored index would
	// corrupt similarity ordering. Catch it here, not at first ingest.
	if err := driven.ValidateDimension(context.Background(), vectorIndex, svc.Dimensions()); err != nil {
		return fmt.Errorf("%w\nRun 'tome reset' to re-index with the new provider", err)
	}

	if providerFallback {
		settings.Fallback = candidate
	} else {
		settings.Embedding = candidate
	}
	if err := settingsStore.Save(settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	slot := "primary"
	if providerFallback {
		slot = "fallback"
	}
	cmd.Printf("Configured %s provider %s (%s, %d dimensions).\n",
		slot, provider, svc.ModelName(), svc.Dimensions())
	return nil
}
