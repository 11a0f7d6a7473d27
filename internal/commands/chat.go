// internal/commands/chat.go
package pdfrag

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/services"
	"github.com/mwiater/pdfrag/internal/tui"
)

// runChat is a function alias to tui.Run so tests can avoid starting a terminal program.
var runChat = tui.Run

// chatCmd represents the 'chat' command, which starts an interactive session.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question-answering session",
	Long:  `The 'chat' command opens a terminal UI for asking repeated questions about the indexed documents.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		logging.SetQuiet(true)
		if err := logging.Init(cfg.LogFilePath()); err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, s *services.Services) error {
			header := tui.Header{Index: cfg.IndexName, Namespace: cfg.Namespace, TopK: cfg.TopK}
			if s.Generator.Available() {
				header.Model = cfg.LLM.Model
			}
			ask := func(ctx context.Context, question string) (rag.Answer, error) {
				return rag.Ask(ctx, s.Retriever, s.Generator, question, 0)
			}
			return runChat(ctx, ask, header)
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
