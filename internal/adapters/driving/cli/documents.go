package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tome/internal/core/domain"
)

var (
	documentsLimit   int
	documentsOffset  int
	documentsContent bool
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage indexed documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsListCmd.Flags().IntVarP(&documentsLimit, "limit", "n", 50, "maximum number of documents")
	documentsListCmd.Flags().IntVar(&documentsOffset, "offset", 0, "pagination offset")
	documentsShowCmd.Flags().BoolVar(&documentsContent, "content", false, "print the full document text")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsShowCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	docs, err := ingestService.List(ctx, documentsLimit, documentsOffset)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:   %s\n", docs[i].Title)
		cmd.Printf("    File:    %s (%s)\n", docs[i].Filename, docs[i].Type)
		cmd.Printf("    Chunks:  %d\n", docs[i].ChunkCount)
		cmd.Printf("    Created: %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	total, err := ingestService.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}
	cmd.Printf("Total: %d documents\n", total)
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	doc, err := ingestService.Get(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %s not found", args[0])
		}
		return fmt.Errorf("getting document: %w", err)
	}

	if documentsContent {
		cmd.Println(doc.Content)
		return nil
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Type:     %s\n", doc.Type)
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(doc.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		for k, v := range doc.Metadata {
			cmd.Printf("    %s: %v\n", k, v)
		}
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	found, chunks, err := ingestService.Delete(ctx, args[0])
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if !found {
		cmd.Printf("Document %s was not indexed.\n", args[0])
		return nil
	}

	cmd.Printf("Deleted %s: %d chunks removed.\n", args[0], chunks)
	return nil
}
