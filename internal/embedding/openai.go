package embedding

import (
	"context"
	"errors"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/pdfrag/internal/logging"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint and asks for
// vectors truncated to the configured dimension.
type OpenAIEmbedder struct {
	client  *openai.Client
	baseURL string
	model   string
	dim     int
}

// NewOpenAIEmbedder creates an embedder for apiKey. An empty baseURL uses the
// OpenAI default.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimension int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(cfg),
		baseURL: cfg.BaseURL,
		model:   model,
		dim:     dimension,
	}
}

// EmbedMany embeds the batch in a single request.
func (e *OpenAIEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInputs(e.model, texts); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	// The API rejects empty strings; a single space embeds to the same
	// near-empty vector every time.
	input := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			t = " "
		}
		input[i] = t
	}

	logging.LogExchange(logging.Embed, logging.Outbound, e.baseURL, e.model, "embed", map[string]int{"inputs": len(input)})
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      input,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dim,
	})
	if err != nil {
		return nil, &Error{Model: e.model, Index: -1, Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &Error{Model: e.model, Index: -1, Err: errors.New("no embedding data returned from API")}
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		copy(vec, d.Embedding)
		l2normalize(vec)
		out[i] = vec
	}
	if err := checkDimensions(e.model, out, len(texts), e.dim); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedOne embeds a single text.
func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

// Dimension returns the requested vector length.
func (e *OpenAIEmbedder) Dimension() int { return e.dim }

// ModelName returns the embedding model name.
func (e *OpenAIEmbedder) ModelName() string { return e.model }
