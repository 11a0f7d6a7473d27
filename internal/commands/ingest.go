// internal/commands/ingest.go
package pdfrag

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/pdfrag/internal/services"
)

// ingestCmd implements 'ingest', the prepare-data flow: extract, chunk,
// embed, ensure the index and upsert.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract, chunk and embed the PDF folder and load it into the vector index",
	Long: `The 'ingest' command reads every PDF in the configured folder, splits the text into
overlapping chunks, embeds them and upserts the vectors into the index namespace.
Chunks and embeddings are cached on disk and reused unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return withServices(cmd, func(ctx context.Context, s *services.Services) error {
			out := cmd.OutOrStdout()
			step := color.New(color.FgCyan)
			s.Ingestor.Status = func(msg string) { step.Fprintln(out, msg) }
			report, err := s.Ingestor.Run(ctx, s.IngestOptions(force))
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "Ingested %d chunks into %s/%s (%d upserted, chunk cache: %v, embedding cache: %v) in %s\n",
				report.Chunks, s.Config.IndexName, s.Config.Namespace, report.Upserted,
				report.ChunksFromCache, report.EmbeddingsFromCache, report.Duration)
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().Bool("force", false, "ignore the chunk and embedding caches and rebuild them")
	rootCmd.AddCommand(ingestCmd)
}
