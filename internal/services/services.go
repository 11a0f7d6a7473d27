// internal/services/services.go
// Package services assembles the pipeline components described by a Config.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mwiater/pdfrag/internal/appconfig"
	"github.com/mwiater/pdfrag/internal/embedding"
	"github.com/mwiater/pdfrag/internal/evaluation"
	"github.com/mwiater/pdfrag/internal/generator"
	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/metrics"
	"github.com/mwiater/pdfrag/internal/pdftext"
	"github.com/mwiater/pdfrag/internal/providerfactory"
	"github.com/mwiater/pdfrag/internal/providers"
	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

// Services holds every long-lived component of one process.
type Services struct {
	Config    *appconfig.Config
	Metrics   *metrics.Metrics
	Embedder  embedding.Embedder
	Index     vectorindex.Index
	Provider  providers.CompletionProvider
	Generator *generator.Generator
	Retriever *rag.Retriever
	Ingestor  *rag.Ingestor

	redis *redis.Client
}

// New builds the services for cfg and binds the index client to the
// configured index, creating it when missing.
func New(ctx context.Context, cfg *appconfig.Config) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	s := &Services{Config: cfg, Metrics: metrics.New()}

	emb, err := s.newEmbedder(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Embedder = emb

	idx, err := vectorindex.Open(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	s.Index = idx
	if err := idx.EnsureIndex(ctx, vectorindex.SpecFromConfig(cfg)); err != nil {
		s.Close()
		return nil, fmt.Errorf("ensure index %s: %w", cfg.IndexName, err)
	}

	provider, err := providerfactory.NewCompletionProvider(cfg, s.Metrics)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Provider = provider
	if provider == nil {
		logging.Logf(logging.Services, "no LLM credential; generation runs in retrieval-only mode")
	}

	s.Generator = generator.New(provider, generator.Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	s.Retriever = &rag.Retriever{
		Embedder:  emb,
		Index:     idx,
		Namespace: cfg.Namespace,
		TopK:      cfg.TopK,
		Metrics:   s.Metrics,
	}

	splitter, err := rag.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Ingestor = &rag.Ingestor{
		Splitter: splitter,
		Embedder: emb,
		Index:    idx,
		Extract:  pdftext.Extract,
		Metrics:  s.Metrics,
	}
	return s, nil
}

func (s *Services) newEmbedder(ctx context.Context) (embedding.Embedder, error) {
	cfg := s.Config
	var base embedding.Embedder
	switch strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider)) {
	case "", appconfig.EmbeddingLocal:
		base = embedding.NewHashEmbedder(cfg.Dimension)
	case appconfig.EmbeddingOllama:
		base = embedding.NewOllamaEmbedder(nil, cfg.Embedding.URL, cfg.Embedding.Model, cfg.Dimension, cfg.RequestTimeout())
	case appconfig.EmbeddingOpenAI:
		base = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.URL, cfg.Embedding.Model, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return base, nil
	}
	client, err := embedding.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// The cache is an optimisation; run uncached rather than fail.
		logging.Logf(logging.Services, "embedding cache disabled: %v", err)
		return base, nil
	}
	s.redis = client
	return embedding.NewCachedEmbedder(base, client, cfg.RedisTTL()), nil
}

// Judge returns the evaluator's judge, or nil when judging is disabled.
func (s *Services) Judge() (*evaluation.Judge, error) {
	if !s.Config.Judge.Enabled {
		return nil, nil
	}
	return evaluation.NewJudge(s.Provider, s.Config.JudgeModel(), s.Config.Judge.MaxTokens, s.Config.Judge.ContextChars)
}

// Evaluator returns an evaluator over the serving path. noJudge overrides
// the configured judge setting.
func (s *Services) Evaluator(noJudge bool) (*evaluation.Evaluator, error) {
	e := &evaluation.Evaluator{
		Retriever: s.Retriever,
		Generator: s.Generator,
		TopK:      s.Config.TopK,
	}
	if noJudge {
		return e, nil
	}
	judge, err := s.Judge()
	if err != nil {
		return nil, err
	}
	e.Judge = judge
	return e, nil
}

// IngestOptions returns the ingestion settings from the config.
func (s *Services) IngestOptions(force bool) rag.IngestOptions {
	return rag.IngestOptions{
		PDFDir:         s.Config.PDFDir,
		ChunksPath:     s.Config.ChunksCachePath,
		EmbeddingsPath: s.Config.EmbeddingsCachePath,
		Namespace:      s.Config.Namespace,
		Spec:           vectorindex.SpecFromConfig(s.Config),
		Force:          force,
	}
}

// Close releases the index, the provider and the Redis client.
func (s *Services) Close() error {
	var errs []error
	if s.Index != nil {
		errs = append(errs, s.Index.Close())
	}
	if s.Provider != nil {
		errs = append(errs, s.Provider.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}
