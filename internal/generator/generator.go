// Package generator turns a question and its retrieved context into an
// answer via a completion provider.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/providers"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

// Kind classifies a generation result.
type Kind int

const (
	// KindAnswer carries the model's completion verbatim.
	KindAnswer Kind = iota
	// KindDegraded means no LLM is configured; only retrieval ran.
	KindDegraded
	// KindFailed means the completion call failed.
	KindFailed
)

// RetrievalOnlyMessage is the reason reported in degraded mode.
const RetrievalOnlyMessage = "LLM not configured (set GROQ_API_KEY); running in retrieval-only mode, see the sources below"

const systemPrompt = "You are a helpful assistant that answers questions about credit card documents."

// String returns the lowercase name used in logs, metrics and JSON.
func (k Kind) String() string {
	switch k {
	case KindAnswer:
		return "answer"
	case KindDegraded:
		return "degraded"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one generation.
type Result struct {
	Kind     Kind
	Text     string
	Reason   string
	Err      error
	Usage    providers.Usage
	Duration time.Duration
}

// String renders the result for display and for answer scoring.
func (r Result) String() string {
	switch r.Kind {
	case KindAnswer:
		return r.Text
	case KindDegraded:
		return r.Reason
	case KindFailed:
		if r.Err != nil {
			return "Error generating response: " + r.Err.Error()
		}
		return "Error generating response"
	default:
		return r.Text
	}
}

// Options are the decoding settings for answers.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator answers questions from retrieved context. A nil provider puts it in degraded mode.
type Generator struct {
	provider providers.CompletionProvider
	opts     Options
}

// New builds a Generator. provider may be nil.
func New(provider providers.CompletionProvider, opts Options) *Generator {
	return &Generator{provider: provider, opts: opts}
}

// Available reports whether a completion provider is configured.
func (g *Generator) Available() bool {
	return g != nil && g.provider != nil
}

// Generate never returns an error; failures are reported through Result.Kind.
func (g *Generator) Generate(ctx context.Context, question string, matches []vectorindex.Match) Result {
	if !g.Available() {
		return Result{Kind: KindDegraded, Reason: RetrievalOnlyMessage}
	}
	out, err := g.provider.Complete(ctx, providers.CompletionRequest{
		Model: g.opts.Model,
		Messages: []providers.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(question, matches)},
		},
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		logging.Logf(logging.Gen, "completion failed: %v", err)
		return Result{Kind: KindFailed, Err: err}
	}
	return Result{Kind: KindAnswer, Text: out.Text, Usage: out.Usage, Duration: out.Duration}
}

// BuildPrompt renders the context blocks followed by the question.
func BuildPrompt(question string, matches []vectorindex.Match) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("If the context does not contain the answer, say that the documents do not cover it.\n\n")
	b.WriteString("Context:\n")
	written := 0
	for _, m := range matches {
		if m.Metadata == nil {
			continue
		}
		if written > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s", m.Metadata.Source, m.Metadata.Text)
		written++
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
