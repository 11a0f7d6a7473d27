// internal/providers/openai/provider.go
// Package openai provides a CompletionProvider for OpenAI-compatible chat
// completion endpoints such as Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/providers"
)

// ErrEmptyCompletion is returned when the backend answers with no choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// Provider implements providers.CompletionProvider with go-openai.
type Provider struct {
	client  *goopenai.Client
	baseURL string
	timeout time.Duration
}

// New builds a provider for baseURL authenticated with apiKey.
func New(apiKey, baseURL string, timeout time.Duration) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Provider{client: goopenai.NewClientWithConfig(cfg), baseURL: cfg.BaseURL, timeout: timeout}
}

// Name returns the endpoint host.
func (p *Provider) Name() string {
	return "openai:" + p.baseURL
}

// Complete sends a single non-streaming chat completion request.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	body := goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}

	logging.LogExchange(logging.LLM, logging.Outbound, p.baseURL, req.Model, "chat", body)
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, body)
	elapsed := time.Since(start)
	if err != nil {
		logging.Logf(logging.LLM, "chat completion failed model=%s err=%v", req.Model, err)
		return providers.Completion{}, fmt.Errorf("chat completion %s: %w", req.Model, err)
	}
	logging.LogExchange(logging.LLM, logging.Inbound, p.baseURL, req.Model, "chat", resp)
	if len(resp.Choices) == 0 {
		return providers.Completion{}, ErrEmptyCompletion
	}
	return providers.Completion{
		Model: resp.Model,
		Text:  resp.Choices[0].Message.Content,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Duration: elapsed,
	}, nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (p *Provider) Close() error {
	return nil
}
