package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mwiater/pdfrag/internal/providers"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

type fakeProvider struct {
	text string
	err  error
	got  providers.CompletionRequest
}

func (f *fakeProvider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	f.got = req
	if f.err != nil {
		return providers.Completion{}, f.err
	}
	return providers.Completion{Text: f.text}, nil
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Close() error { return nil }

func matches() []vectorindex.Match {
	return []vectorindex.Match{
		{ID: "1", Score: 0.9, Metadata: &vectorindex.RecordMetadata{Text: "The annual fee is 500.", Source: "fees.pdf"}},
		{ID: "2", Score: 0.5, Metadata: &vectorindex.RecordMetadata{Text: "Cashback is 5%.", Source: "rewards.pdf"}},
	}
}

func TestGenerateWithoutProviderIsDegraded(t *testing.T) {
	g := New(nil, Options{Model: "llama3-8b-8192"})
	res := g.Generate(context.Background(), "What is the fee?", matches())
	if res.Kind != KindDegraded {
		t.Fatalf("expected degraded result, got %s", res.Kind)
	}
	if res.String() != RetrievalOnlyMessage || res.Err != nil {
		t.Fatalf("unexpected degraded result: %+v", res)
	}
}

func TestGenerateAnswer(t *testing.T) {
	p := &fakeProvider{text: "It is 500."}
	g := New(p, Options{Model: "llama3-8b-8192", Temperature: 0.1, MaxTokens: 500})
	res := g.Generate(context.Background(), "What is the fee?", matches())
	if res.Kind != KindAnswer || res.String() != "It is 500." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if p.got.Temperature != 0.1 || p.got.MaxTokens != 500 || p.got.Model != "llama3-8b-8192" {
		t.Fatalf("unexpected decoding settings: %+v", p.got)
	}
	user := p.got.Messages[len(p.got.Messages)-1].Content
	if !strings.Contains(user, "[Source: fees.pdf]\nThe annual fee is 500.") || !strings.Contains(user, "Question: What is the fee?") {
		t.Fatalf("prompt missing context or question:\n%s", user)
	}
}

func TestGenerateReturnsBlankCompletionVerbatim(t *testing.T) {
	g := New(&fakeProvider{text: "  "}, Options{})
	res := g.Generate(context.Background(), "What is the fee?", matches())
	if res.Kind != KindAnswer || res.Err != nil {
		t.Fatalf("expected a blank answer, got %+v", res)
	}
	if res.Text != "  " || res.String() != "  " {
		t.Fatalf("expected completion text unchanged, got %q", res.Text)
	}
}

func TestGenerateFailureIsAValue(t *testing.T) {
	g := New(&fakeProvider{err: errors.New("rate limited")}, Options{})
	res := g.Generate(context.Background(), "q", nil)
	if res.Kind != KindFailed || res.Err == nil {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if !strings.Contains(res.String(), "rate limited") {
		t.Fatalf("expected failure reason in String(), got %q", res.String())
	}
}

func TestBuildPromptSeparatesBlocks(t *testing.T) {
	prompt := BuildPrompt("Q?", matches())
	if !strings.Contains(prompt, "The annual fee is 500.\n\n[Source: rewards.pdf]") {
		t.Fatalf("expected blank line between blocks:\n%s", prompt)
	}
	if strings.Index(prompt, "fees.pdf") > strings.Index(prompt, "rewards.pdf") {
		t.Fatal("expected match order preserved")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{KindAnswer: "answer", KindDegraded: "degraded", KindFailed: "failed"} {
		if k.String() != want {
			t.Fatalf("Kind(%d).String() = %s", int(k), k.String())
		}
	}
}
