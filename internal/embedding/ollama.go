package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/pdfrag/internal/logging"
)

const defaultOllamaModel = "all-minilm"

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// OllamaEmbedder requests embeddings from an Ollama host, one text per call.
type OllamaEmbedder struct {
	client  *http.Client
	baseURL string
	model   string
	dim     int
	timeout time.Duration
}

// NewOllamaEmbedder returns an embedder for the Ollama host at baseURL.
func NewOllamaEmbedder(client *http.Client, baseURL, model string, dimension int, timeout time.Duration) *OllamaEmbedder {
	if client == nil {
		client = &http.Client{}
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOllamaModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &OllamaEmbedder{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dim:     dimension,
		timeout: timeout,
	}
}

// EmbedMany embeds every text sequentially.
func (e *OllamaEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInputs(e.model, texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.embed(ctx, t)
		if err != nil {
			return nil, &Error{Model: e.model, Index: i, Err: err}
		}
		out[i] = vec
	}
	if err := checkDimensions(e.model, out, len(texts), e.dim); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedOne embeds a single text.
func (e *OllamaEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

// Dimension returns the configured vector length.
func (e *OllamaEmbedder) Dimension() int { return e.dim }

// ModelName returns the Ollama model tag.
func (e *OllamaEmbedder) ModelName() string { return e.model }

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	prompt := text
	if prompt == "" {
		prompt = " "
	}
	payload := map[string]any{
		"model":  e.model,
		"prompt": prompt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logging.LogExchange(logging.Embed, logging.Outbound, e.baseURL, e.model, "embed", map[string]int{"chars": len(text)})
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaEmbeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		// Ollama answers blank prompts with an empty embedding.
		if strings.TrimSpace(text) == "" {
			return make([]float32, e.dim), nil
		}
		return nil, fmt.Errorf("embedding response returned empty vector")
	}

	vec := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		vec[i] = float32(v)
	}
	l2normalize(vec)
	return vec, nil
}
