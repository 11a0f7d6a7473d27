package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary with credentials masked.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}
	if cfg == nil {
		fmt.Fprintln(out, "Configuration has not been loaded.")
		return
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  PDF Dir:            %s\n", cfg.PDFDir)
	fmt.Fprintf(out, "  Chunks Cache:       %s\n", cfg.ChunksCachePath)
	fmt.Fprintf(out, "  Embeddings Cache:   %s\n", cfg.EmbeddingsCachePath)
	fmt.Fprintf(out, "  Chunk Size/Overlap: %d/%d\n", cfg.ChunkSize, cfg.ChunkOverlap)
	fmt.Fprintf(out, "  Index:              %s (namespace %s, dim %d, %s)\n", cfg.IndexName, cfg.Namespace, cfg.Dimension, cfg.Metric)
	fmt.Fprintf(out, "  Top K:              %d\n", cfg.TopK)
	fmt.Fprintf(out, "  Vector Store:       %s\n", cfg.VectorStore.Backend)
	switch cfg.VectorStore.Backend {
	case BackendBolt:
		fmt.Fprintf(out, "  Bolt Path:          %s\n", cfg.VectorStore.BoltPath)
	case BackendPostgres:
		fmt.Fprintf(out, "  Postgres DSN:       %s\n", maskSecret(cfg.VectorStore.PostgresDSN))
	}
	fmt.Fprintf(out, "  Embedding:          %s (%s)\n", cfg.Embedding.Provider, cfg.Embedding.Model)
	if cfg.Embedding.URL != "" {
		fmt.Fprintf(out, "  Embedding URL:      %s\n", cfg.Embedding.URL)
	}
	if cfg.Embedding.APIKey != "" {
		fmt.Fprintf(out, "  Embedding API Key:  %s\n", maskSecret(cfg.Embedding.APIKey))
	}
	fmt.Fprintf(out, "  LLM:                %s @ %s\n", cfg.LLM.Model, cfg.LLM.BaseURL)
	fmt.Fprintf(out, "  LLM API Key:        %s\n", maskSecret(cfg.LLM.APIKey))
	fmt.Fprintf(out, "  LLM Temperature:    %.2f\n", cfg.LLM.Temperature)
	fmt.Fprintf(out, "  LLM Max Tokens:     %d\n", cfg.LLM.MaxTokens)
	fmt.Fprintf(out, "  Judge:              %v (model %s, max tokens %d)\n", cfg.Judge.Enabled, cfg.JudgeModel(), cfg.Judge.MaxTokens)
	if cfg.Redis.Addr != "" {
		fmt.Fprintf(out, "  Redis:              %s (db %d)\n", cfg.Redis.Addr, cfg.Redis.DB)
	}
	fmt.Fprintf(out, "  Server Addr:        %s\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  Request Timeout:    %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Log File:           %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Debug:              %v\n", cfg.Debug)
}

func maskSecret(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
