// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/providers"
)

// Provider is a decorator that wraps a CompletionProvider to record metrics.
type Provider struct {
	wrapped providers.CompletionProvider
	metrics *Metrics
}

// NewProvider creates a new metrics-enabled provider that wraps an existing CompletionProvider.
func NewProvider(wrapped providers.CompletionProvider, m *Metrics) *Provider {
	logging.Logf(logging.Metrics, "Wrapping provider with metrics provider")
	return &Provider{wrapped: wrapped, metrics: m}
}

// Complete records latency, status and token usage around the wrapped call.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	start := time.Now()
	out, err := p.wrapped.Complete(ctx, req)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.completions.WithLabelValues(req.Model, status).Inc()
	p.metrics.completionDuration.WithLabelValues(req.Model).Observe(elapsed.Seconds())
	if err == nil {
		p.metrics.tokens.WithLabelValues(req.Model, "prompt").Add(float64(out.Usage.PromptTokens))
		p.metrics.tokens.WithLabelValues(req.Model, "completion").Add(float64(out.Usage.CompletionTokens))
	}
	logging.Logf(logging.Metrics, "completion model=%s status=%s duration=%s", req.Model, status, elapsed)
	return out, err
}

// Name passes the call through to the wrapped provider.
func (p *Provider) Name() string {
	return p.wrapped.Name()
}

// Close passes the call through to the wrapped provider.
func (p *Provider) Close() error {
	return p.wrapped.Close()
}
