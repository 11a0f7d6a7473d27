// internal/commands/serve.go
package pdfrag

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/pdfrag/internal/server"
	"github.com/mwiater/pdfrag/internal/services"
)

// serveCmd implements 'serve', the HTTP query API with Prometheus metrics.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Long:  `The 'serve' command exposes POST /query, GET /healthz and GET /metrics until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		return withServices(cmd, func(ctx context.Context, s *services.Services) error {
			if addr == "" {
				addr = s.Config.Server.Addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s/%s on %s\n", s.Config.IndexName, s.Config.Namespace, addr)
			return server.New(s.Retriever, s.Generator, s.Metrics).Run(ctx, addr)
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
