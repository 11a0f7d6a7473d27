// internal/providerfactory/factory_test.go
package providerfactory

import (
	"testing"

	"github.com/mwiater/pdfrag/internal/appconfig"
	"github.com/mwiater/pdfrag/internal/metrics"
	"github.com/mwiater/pdfrag/internal/providers/openai"
)

func TestNewCompletionProviderErrorsOnNilConfig(t *testing.T) {
	if _, err := NewCompletionProvider(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewCompletionProviderWithoutCredential(t *testing.T) {
	provider, err := NewCompletionProvider(&appconfig.Config{}, nil)
	if err != nil {
		t.Fatalf("NewCompletionProvider returned error: %v", err)
	}
	if provider != nil {
		t.Fatalf("expected nil provider without an API key, got %T", provider)
	}
}

func TestNewCompletionProviderDefaultsToOpenAICompatible(t *testing.T) {
	cfg := &appconfig.Config{LLM: appconfig.LLM{APIKey: "gsk-test", BaseURL: "https://api.groq.com/openai/v1", Model: "llama3-8b-8192"}}
	provider, err := NewCompletionProvider(cfg, nil)
	if err != nil {
		t.Fatalf("NewCompletionProvider returned error: %v", err)
	}
	if _, ok := provider.(*openai.Provider); !ok {
		t.Fatalf("expected openai.Provider, got %T", provider)
	}
}

func TestNewCompletionProviderWrapsWithMetrics(t *testing.T) {
	cfg := &appconfig.Config{LLM: appconfig.LLM{APIKey: "gsk-test"}}
	provider, err := NewCompletionProvider(cfg, metrics.New())
	if err != nil {
		t.Fatalf("NewCompletionProvider returned error: %v", err)
	}
	if _, ok := provider.(*metrics.Provider); !ok {
		t.Fatalf("expected metrics.Provider, got %T", provider)
	}
}
