package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every document and wipe the index",
	Long: `Removes all documents and vector entries. Required when switching to an
embedding model with a different dimension, since the index holds vectors
of a single dimension.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !resetForce {
		cmd.Print("This deletes all indexed documents. Continue? [y/N]: ")
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "y" && answer != "Y" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	count, err := ingestService.ResetAll(context.Background())
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	cmd.Printf("Removed %d documents.\n", count)
	return nil
}
