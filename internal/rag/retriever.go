package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/pdfrag/internal/embedding"
	"github.com/mwiater/pdfrag/internal/generator"
	"github.com/mwiater/pdfrag/internal/metrics"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

// DefaultTopK is the number of matches retrieved when none is requested.
const DefaultTopK = 3

// Retriever embeds a question and searches one namespace of the index.
type Retriever struct {
	Embedder  embedding.Embedder
	Index     vectorindex.Index
	Namespace string
	TopK      int
	Metrics   *metrics.Metrics
}

// Retrieval is the query vector and its matches.
type Retrieval struct {
	Question string
	Vector   []float32
	Matches  []vectorindex.Match
	Duration time.Duration
}

// Retrieve returns the topK matches with metadata. topK <= 0 uses the retriever default.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) (Retrieval, error) {
	if strings.TrimSpace(question) == "" {
		return Retrieval{}, fmt.Errorf("question is empty")
	}
	if topK <= 0 {
		topK = r.TopK
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	start := time.Now()
	vec, err := r.Embedder.EmbedOne(ctx, question)
	if err != nil {
		return Retrieval{}, fmt.Errorf("embed question: %w", err)
	}
	matches, err := r.Index.Query(ctx, r.Namespace, vec, topK, true)
	if err != nil {
		return Retrieval{}, fmt.Errorf("query index: %w", err)
	}
	elapsed := time.Since(start)
	r.Metrics.ObserveRetrieval(elapsed)
	return Retrieval{Question: question, Vector: vec, Matches: matches, Duration: elapsed}, nil
}

// Answer is one full serving-path round trip.
type Answer struct {
	Retrieval    Retrieval
	Result       generator.Result
	ResponseTime time.Duration
}

// Ask retrieves context for question and generates an answer. A nil
// generator skips generation and reports a degraded result.
func Ask(ctx context.Context, r *Retriever, g *generator.Generator, question string, topK int) (Answer, error) {
	start := time.Now()
	retrieval, err := r.Retrieve(ctx, question, topK)
	if err != nil {
		r.Metrics.ObserveQuery(generator.KindFailed.String())
		return Answer{}, err
	}
	var result generator.Result
	if g == nil {
		result = generator.Result{Kind: generator.KindDegraded, Reason: "generation skipped"}
	} else {
		result = g.Generate(ctx, question, retrieval.Matches)
	}
	r.Metrics.ObserveQuery(result.Kind.String())
	return Answer{Retrieval: retrieval, Result: result, ResponseTime: time.Since(start)}, nil
}
