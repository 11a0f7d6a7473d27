package rag

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/k0kubun/pp"

	"github.com/mwiater/pdfrag/internal/generator"
)

// QueryOptions controls RunQueryCommand.
type QueryOptions struct {
	TopK       int
	NoGenerate bool
	Debug      bool
	Preview    int
}

// RunQueryCommand is the CLI entry point for a one-shot query: it prints the
// answer, then the sources with their scores.
func RunQueryCommand(ctx context.Context, w io.Writer, r *Retriever, g *generator.Generator, args []string, opts QueryOptions) (Answer, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return Answer{}, fmt.Errorf("question is required")
	}
	if opts.NoGenerate {
		g = nil
	}

	answer, err := Ask(ctx, r, g, question, opts.TopK)
	if err != nil {
		return Answer{}, err
	}

	if opts.Debug {
		pp.Fprintln(w, answer.Retrieval.Matches)
	}
	if !opts.NoGenerate {
		fmt.Fprintf(w, "Answer (%s):\n%s\n\n", answer.Result.Kind, answer.Result.String())
	}
	fmt.Fprintf(w, "Sources (retrieved in %s):\n", answer.Retrieval.Duration.Round(time.Millisecond))
	FormatSources(w, answer.Retrieval.Matches, opts.Preview)
	return answer, nil
}
