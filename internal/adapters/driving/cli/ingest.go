package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tome/internal/core/domain"
)

var ingestTitle string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents into the index",
	Long: `Parses, chunks, embeds and indexes the given files.
Re-ingesting an unchanged file is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (single file only)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestTitle != "" && len(args) > 1 {
		return errors.New("--title applies to a single file")
	}

	ctx := context.Background()
	failed := 0

	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("Skipping %s: %v\n", path, err)
			failed++
			continue
		}

		doc, err := ingestService.Ingest(ctx, content, filepath.Base(path), ingestTitle, nil)
		if err != nil {
			if errors.Is(err, domain.ErrEmbeddingUnavailable) {
				return fmt.Errorf("no embedding provider configured: run 'tome settings set-provider' first")
			}
			cmd.PrintErrf("Failed to ingest %s: %v\n", path, err)
			failed++
			continue
		}

		cmd.Printf("Ingested %s (%s): %d chunks\n", doc.ID, doc.Title, doc.ChunkCount)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
