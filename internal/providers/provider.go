// internal/providers/provider.go

// Package providers defines the interface for chat completion backends used
// to generate answers and to judge them.
package providers

import (
	"context"
	"time"
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one non-streaming chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// Usage reports token counts when the backend returns them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the result of a chat completion call.
type Completion struct {
	Model    string
	Text     string
	Usage    Usage
	Duration time.Duration
}

// CompletionProvider is the interface all completion backends implement.
type CompletionProvider interface {
	// Complete sends the messages and returns the first choice's text.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// Name identifies the backend in logs and metrics.
	Name() string
	// Close releases any resources held by the provider.
	Close() error
}
