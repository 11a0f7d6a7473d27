// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/pdfrag/internal/appconfig"
	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/metrics"
	"github.com/mwiater/pdfrag/internal/providers"
	"github.com/mwiater/pdfrag/internal/providers/openai"
)

// NewCompletionProvider builds the configured completion provider and wraps
// it with metrics collection when m is non-nil. It returns (nil, nil) when no
// LLM credential is configured so callers can fall back to retrieval-only mode.
func NewCompletionProvider(cfg *appconfig.Config, m *metrics.Metrics) (providers.CompletionProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}
	if !cfg.HasLLMCredential() {
		logging.Logf(logging.LLM, "provider unavailable: no API key configured, answers will be retrieval-only")
		return nil, nil
	}

	var provider providers.CompletionProvider = openai.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.RequestTimeout())
	logging.Logf(logging.LLM, "provider ready: %s model=%s", provider.Name(), cfg.LLM.Model)

	if m != nil {
		provider = metrics.NewProvider(provider, m)
	}
	return provider, nil
}
