package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/pdfrag/internal/appconfig"
)

// Open returns the backend selected by cfg.VectorStore.Backend.
func Open(ctx context.Context, cfg *appconfig.Config) (Index, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.VectorStore.Backend)) {
	case "", appconfig.BackendBolt:
		return OpenBolt(cfg.VectorStore.BoltPath)
	case appconfig.BackendPostgres:
		if strings.TrimSpace(cfg.VectorStore.PostgresDSN) == "" {
			return nil, fmt.Errorf("vectorStore.postgresDSN is required for the postgres backend")
		}
		return OpenPostgres(ctx, cfg.VectorStore.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.VectorStore.Backend)
	}
}

// SpecFromConfig builds the index spec described by cfg.
func SpecFromConfig(cfg *appconfig.Config) Spec {
	return Spec{Name: cfg.IndexName, Dimension: cfg.Dimension, Metric: cfg.Metric}
}
