package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type label string

func (l label) String() string { return string(l) }

func TestInitWritesTaggedLinesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pdfrag.log")
	SetQuiet(true)
	t.Cleanup(func() { SetQuiet(false) })
	if err := Init(path); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	Logf(Ingest, "chunked %s into %d chunks", "hdfc_fees.pdf", 7)
	LogExchange(LLM, Outbound, "https://api.groq.com/openai/v1", "llama3-8b-8192", "chat", map[string]any{"max_tokens": 500})
	if err := Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{
		"[INGEST] chunked hdfc_fees.pdf into 7 chunks",
		`[LLM] -> chat model=llama3-8b-8192 endpoint=https://api.groq.com/openai/v1 payload={"max_tokens":500}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %q in log:\n%s", want, data)
		}
	}
}

func TestExchangeLine(t *testing.T) {
	tests := []struct {
		name    string
		dir     Direction
		payload any
		want    string
	}{
		{"inbound defaults", Inbound, nil, "[EMBED] <- unknown model=unknown endpoint=unknown payload=null"},
		{"blank string", Outbound, "  ", `[EMBED] -> unknown model=unknown endpoint=unknown payload=""`},
		{"bytes", Outbound, []byte("raw"), "payload=raw"},
		{"stringer", Outbound, label("ok"), "payload=ok"},
		{"json", Inbound, map[string]int{"inputs": 2}, `payload={"inputs":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exchangeLine(Embed, tt.dir, " ", "", "", tt.payload)
			if !strings.Contains(got, tt.want) {
				t.Fatalf("exchangeLine = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestRenderPayloadTruncatesLongPrompts(t *testing.T) {
	got := renderPayload(strings.Repeat("é", maxPayloadRunes+10))
	if !strings.HasSuffix(got, "...(10 more)") {
		t.Fatalf("expected truncation marker, got suffix %q", got[len(got)-20:])
	}
	if !strings.HasPrefix(got, strings.Repeat("é", maxPayloadRunes)) {
		t.Fatal("expected the first runes kept intact")
	}
}

func TestQuietInitWithoutFileDiscards(t *testing.T) {
	SetQuiet(true)
	t.Cleanup(func() { SetQuiet(false) })

	var buf bytes.Buffer
	log.SetOutput(&buf)
	if err := Init(""); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	Logf(Chat, "discard")
	if buf.Len() != 0 {
		t.Fatalf("expected log output discarded, got: %s", buf.String())
	}
}
