package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mwiater/pdfrag/internal/appconfig"
	"github.com/mwiater/pdfrag/internal/embedding"
	"github.com/mwiater/pdfrag/internal/evaluation"
)

func testConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	dir := t.TempDir()
	return &appconfig.Config{
		PDFDir:              filepath.Join(dir, "pdfs"),
		ChunksCachePath:     filepath.Join(dir, "saved", "chunks.json"),
		EmbeddingsCachePath: filepath.Join(dir, "saved", "embeddings.gob"),
		ChunkSize:           500,
		ChunkOverlap:        50,
		IndexName:           "ragproj-v1",
		Namespace:           "rag-proj",
		Dimension:           32,
		Metric:              "cosine",
		TopK:                3,
		VectorStore:         appconfig.VectorStore{Backend: appconfig.BackendBolt, BoltPath: filepath.Join(dir, "saved", "vectors.db")},
		Embedding:           appconfig.Embedding{Provider: appconfig.EmbeddingLocal},
		LLM:                 appconfig.LLM{Model: "llama3-8b-8192", Temperature: 0.1, MaxTokens: 500},
		Judge:               appconfig.Judge{Enabled: true, MaxTokens: 300, ContextChars: 1000},
	}
}

func TestNewWiresRetrievalOnlyPipeline(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer s.Close()

	if s.Provider != nil || s.Generator.Available() {
		t.Fatal("expected no provider without an LLM credential")
	}
	if _, ok := s.Embedder.(*embedding.HashEmbedder); !ok {
		t.Fatalf("expected local hash embedder, got %T", s.Embedder)
	}
	if s.Embedder.Dimension() != 32 {
		t.Fatalf("expected dimension 32, got %d", s.Embedder.Dimension())
	}
	stats, err := s.Index.Stats(context.Background(), cfg.Namespace)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Index != "ragproj-v1" || stats.Dimension != 32 || stats.Count != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	opts := s.IngestOptions(true)
	if !opts.Force || opts.Spec.Name != cfg.IndexName || opts.Namespace != cfg.Namespace {
		t.Fatalf("unexpected ingest options: %+v", opts)
	}
}

func TestEvaluatorJudgeSelection(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer s.Close()

	e, err := s.Evaluator(false)
	if err != nil {
		t.Fatalf("Evaluator error: %v", err)
	}
	if e.Judge == nil {
		t.Fatal("expected judge when enabled")
	}
	if got := e.Judge.Score(context.Background(), "q", "a", "c"); got.Error != evaluation.ErrNoJudgeClient {
		t.Fatalf("expected no-client error, got %+v", got)
	}

	e, err = s.Evaluator(true)
	if err != nil || e.Judge != nil {
		t.Fatalf("expected --no-judge to drop the judge, got %v / %v", e.Judge, err)
	}
}

func TestNewRejectsUnknownEmbeddingProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "word2vec"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown embedding provider")
	}
}

func TestNewRejectsIndexSpecConflict(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.Close()

	cfg.Dimension = 64
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error when the existing index has another dimension")
	}
}
