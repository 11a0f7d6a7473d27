// internal/commands/index.go
package pdfrag

import (
	"context"
	"fmt"
	"io"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/pdfrag/internal/services"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

// indexCmd groups the vector index management commands.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

// indexEnsureCmd creates the configured index when missing and checks its spec otherwise.
var indexEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the configured index if needed and verify its dimension and metric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services.Services) error {
			spec := vectorindex.SpecFromConfig(s.Config)
			fmt.Fprintf(cmd.OutOrStdout(), "Index %s is ready (dimension %d, metric %s, backend %s)\n",
				spec.Name, spec.Dimension, spec.Metric, s.Config.VectorStore.Backend)
			return nil
		})
	},
}

// indexStatsCmd prints the record count of the configured namespace.
var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the record count of the configured namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services.Services) error {
			stats, err := s.Index.Stats(ctx, s.Config.Namespace)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), stats, DebugEnabled())
			return nil
		})
	},
}

func printStats(w io.Writer, stats vectorindex.Stats, debug bool) {
	if debug {
		pp.Fprintln(w, stats)
		return
	}
	fmt.Fprintf(w, "Index:     %s\n", stats.Index)
	fmt.Fprintf(w, "Namespace: %s\n", stats.Namespace)
	fmt.Fprintf(w, "Dimension: %d\n", stats.Dimension)
	fmt.Fprintf(w, "Metric:    %s\n", stats.Metric)
	fmt.Fprintf(w, "Records:   %d\n", stats.Count)
}

func init() {
	indexCmd.AddCommand(indexEnsureCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}
