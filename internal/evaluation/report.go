// internal/evaluation/report.go
package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/util"
)

// WriteReport writes the report as indented JSON, replacing path atomically.
func WriteReport(path string, report Report) error {
	if report.DetailedResults == nil {
		report.DetailedResults = []Result{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.FgYellow, color.Bold)
	partialColor = color.New(color.FgRed)
)

// PrintSummary renders the human-readable summary.
func PrintSummary(w io.Writer, report Report) {
	s := report.Summary
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	headerColor.Fprintln(w, "RAG EVALUATION SUMMARY")
	fmt.Fprintln(w, rule)
	if report.Partial {
		partialColor.Fprintf(w, "PARTIAL RUN: %s\n", report.Error)
	}
	fmt.Fprintf(w, "Total Questions: %d\n", s.NumQuestions)
	fmt.Fprintf(w, "Avg Response Time: %.2fs\n", s.GenerationMetrics.AvgResponseTime)

	fmt.Fprintln(w)
	sectionColor.Fprintln(w, "RETRIEVAL METRICS:")
	fmt.Fprintf(w, "  - Precision@3: %.3f\n", s.RetrievalMetrics.AvgPrecisionAtK)
	fmt.Fprintf(w, "  - Avg Similarity: %.3f\n", s.RetrievalMetrics.AvgSimilarityScore)

	fmt.Fprintln(w)
	sectionColor.Fprintln(w, "GENERATION METRICS:")
	fmt.Fprintf(w, "  - Answer Relevance: %.3f\n", s.GenerationMetrics.AvgAnswerRelevance)
	fmt.Fprintf(w, "  - Faithfulness: %.3f\n", s.GenerationMetrics.AvgFaithfulness)

	if j := s.LLMJudgeMetrics; j.Available() {
		fmt.Fprintln(w)
		sectionColor.Fprintln(w, "LLM JUDGE SCORES (1-5):")
		fmt.Fprintf(w, "  - Relevance: %.2f/5\n", j.AvgRelevance)
		fmt.Fprintf(w, "  - Accuracy: %.2f/5\n", j.AvgAccuracy)
		fmt.Fprintf(w, "  - Completeness: %.2f/5\n", j.AvgCompleteness)
		fmt.Fprintf(w, "  - Clarity: %.2f/5\n", j.AvgClarity)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
}

// PrintQuick renders a single-question evaluation: timing, answer and sources.
func PrintQuick(w io.Writer, res Result) {
	fmt.Fprintf(w, "\nQuestion: %s\n", res.Question)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Response Time: %.2fs\n", res.ResponseTime)
	if res.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", res.Category)
	}
	fmt.Fprintln(w)
	sectionColor.Fprintln(w, "Generated Answer:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w, util.WrapToWidth(res.GeneratedAnswer, 80))
	fmt.Fprintln(w)
	sectionColor.Fprintln(w, "Retrieved Sources:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	rag.FormatSources(w, res.Matches, 100)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Answer Relevance: %.3f  Faithfulness: %.3f\n", res.AnswerRelevance, res.Faithfulness)
	if res.LLMJudgeScores.OK() {
		j := res.LLMJudgeScores
		fmt.Fprintf(w, "Judge: relevance %.0f, accuracy %.0f, completeness %.0f, clarity %.0f\n", j.Relevance, j.Accuracy, j.Completeness, j.Clarity)
		if j.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", j.Explanation)
		}
	} else {
		fmt.Fprintf(w, "Judge: %s\n", res.LLMJudgeScores.Error)
	}
}
