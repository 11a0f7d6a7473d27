// internal/commands/query.go
package pdfrag

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/services"
)

// queryCmd implements 'query', a one-shot question against the index.
var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer one question from the indexed documents",
	Long: `The 'query' command embeds the question, retrieves the closest chunks and asks the
LLM to answer from them. Without an LLM credential only the sources are shown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		noGenerate, _ := cmd.Flags().GetBool("no-generate")
		preview, _ := cmd.Flags().GetInt("preview")
		return withServices(cmd, func(ctx context.Context, s *services.Services) error {
			_, err := rag.RunQueryCommand(ctx, cmd.OutOrStdout(), s.Retriever, s.Generator, args, rag.QueryOptions{
				TopK:       topK,
				NoGenerate: noGenerate,
				Debug:      DebugEnabled(),
				Preview:    preview,
			})
			return err
		})
	},
}

func init() {
	queryCmd.Flags().Int("top-k", 0, "number of chunks to retrieve (0 = config value)")
	queryCmd.Flags().Bool("no-generate", false, "only retrieve; skip the LLM call")
	queryCmd.Flags().Int("preview", 200, "characters of each source chunk to print")
	rootCmd.AddCommand(queryCmd)
}
