package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tome/internal/core/domain"
)

var (
	searchLimit     int
	searchWeight    float64
	searchThreshold float64
	searchSemantic  bool
	searchDocType   string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs hybrid search across all indexed documents, fusing semantic
(vector) and keyword (BM25) scores. Use --semantic for vector-only search.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().Float64VarP(&searchWeight, "weight", "w", -1, "semantic weight in [0,1] (1 = pure semantic)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", -1, "minimum semantic score")
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "semantic search only, skip the keyword path")
	searchCmd.Flags().StringVar(&searchDocType, "type", "", "restrict to a document type (txt, md)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	opts := domain.SearchOptions{
		Limit:          searchLimit,
		SemanticWeight: settings.Search.SemanticWeight,
		ScoreThreshold: settings.Search.ScoreThreshold,
	}
	if searchWeight >= 0 {
		opts.SemanticWeight = searchWeight
	}
	if searchThreshold >= 0 {
		opts.ScoreThreshold = searchThreshold
	}
	if searchDocType != "" {
		opts.Filter = domain.Filter{"doc_type": searchDocType}
	}

	var results []domain.SearchCandidate
	var err error
	if searchSemantic {
		results, err = searchService.SemanticSearch(ctx, query, opts)
	} else {
		results, err = searchService.HybridSearch(ctx, query, opts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (chunk %d)  score %.3f (sem %.3f, key %.3f)\n",
			i+1, r.Filename, r.ChunkIndex, r.Score, r.SemanticScore, r.KeywordScore)
		cmd.Printf("      %s\n\n", snippet(r.Content))
	}
	return nil
}

// snippet returns the first line of content, truncated.
func snippet(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if len(line) > 160 {
		line = line[:160] + "..."
	}
	return line
}
