// internal/commands/evaluate.go
package pdfrag

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/pdfrag/internal/evaluation"
	"github.com/mwiater/pdfrag/internal/services"
)

// evaluateCmd implements 'evaluate', which scores the pipeline over a test-question file.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score retrieval and answer quality over the test questions",
	Long: `The 'evaluate' command runs every test question through the query path and records
precision@k, similarity, answer relevance, faithfulness and, when enabled, LLM judge
ratings. The report is written as JSON even when the run stops early.
With --question a single ad-hoc question is evaluated and printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, _ := cmd.Flags().GetString("questions")
		output, _ := cmd.Flags().GetString("output")
		single, _ := cmd.Flags().GetString("question")
		noJudge, _ := cmd.Flags().GetBool("no-judge")

		return withServices(cmd, func(ctx context.Context, s *services.Services) error {
			if questions == "" {
				questions = s.Config.Evaluation.QuestionsPath
			}
			if output == "" {
				output = s.Config.Evaluation.OutputPath
			}
			e, err := s.Evaluator(noJudge)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if q := strings.TrimSpace(single); q != "" {
				res, err := e.Evaluate(ctx, evaluation.TestQuestion{ID: evaluation.QuestionID{Value: "quick"}, Question: q})
				if err != nil {
					return err
				}
				evaluation.PrintQuick(out, res)
				return nil
			}

			e.Out = out
			report, err := e.RunFile(ctx, questions, output)
			if report.Summary.NumQuestions > 0 || report.Partial {
				evaluation.PrintSummary(out, report)
			}
			return err
		})
	},
}

func init() {
	evaluateCmd.Flags().String("questions", "", "test-question file (default from config)")
	evaluateCmd.Flags().String("output", "", "report output path (default from config)")
	evaluateCmd.Flags().String("question", "", "evaluate one ad-hoc question and print the result")
	evaluateCmd.Flags().Bool("no-judge", false, "skip the LLM judge")
	rootCmd.AddCommand(evaluateCmd)
}
