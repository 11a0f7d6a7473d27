// internal/tui/chat_test.go
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/pdfrag/internal/generator"
	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

func cannedAnswer() rag.Answer {
	return rag.Answer{
		Retrieval: rag.Retrieval{Matches: []vectorindex.Match{
			{ID: "a", Score: 0.91, Metadata: &vectorindex.RecordMetadata{Source: "hdfc_fees.pdf", Text: "Annual fee is 500."}},
		}},
		Result: generator.Result{Kind: generator.KindAnswer, Text: "The annual fee is 500."},
	}
}

// TestChatRoundTrip verifies that entering a question starts a request, that the
// finished answer lands in the history, and that the sources view lists the matches.
func TestChatRoundTrip(t *testing.T) {
	var asked string
	ask := func(ctx context.Context, q string) (rag.Answer, error) {
		asked = q
		return cannedAnswer(), nil
	}
	m := initialModel(context.Background(), ask, Header{Index: "ragproj-v1", Namespace: "rag-proj", Model: "llama3-8b-8192", TopK: 3})
	_, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m.textArea.SetValue("What is the annual fee?")
	m2, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = m2.(*model)
	if !m.isLoading || m.pending != "What is the annual fee?" || cmd == nil {
		t.Fatalf("expected pending request; loading=%v pending=%q", m.isLoading, m.pending)
	}

	msg := askCmd(m.ctx, m.ask, m.pending)()
	if asked != "What is the annual fee?" {
		t.Fatalf("expected question to reach ask func, got %q", asked)
	}
	m2, _ = m.Update(msg)
	m = m2.(*model)
	if m.isLoading || len(m.history) != 1 || m.history[0].err != nil {
		t.Fatalf("expected one finished exchange; loading=%v history=%+v", m.isLoading, m.history)
	}

	view := m.View()
	for _, want := range []string{"ragproj-v1/rag-proj", "The annual fee is 500.", "hdfc_fees.pdf"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in chat view:\n%s", want, view)
		}
	}

	m2, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = m2.(*model)
	if m.state != viewSources || len(m.sourceList.Items()) != 1 {
		t.Fatalf("expected sources view with 1 item; state=%v items=%d", m.state, len(m.sourceList.Items()))
	}
	if !strings.Contains(m.View(), "hdfc_fees.pdf (score: 0.9100)") {
		t.Fatalf("expected ranked source in sources view:\n%s", m.View())
	}

	m2, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m2.(*model).state != viewChat {
		t.Fatal("expected tab to return to chat")
	}
}

func TestChatScrollsToNewAnswer(t *testing.T) {
	m := initialModel(context.Background(), nil, Header{Index: "ragproj-v1", Namespace: "rag-proj"})
	_, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	for i := 0; i < 5; i++ {
		m.pending = fmt.Sprintf("question %d", i)
		m.isLoading = true
		m2, _ := m.Update(answerMsg{answer: cannedAnswer()})
		m = m2.(*model)
		_ = m.View()
	}
	if !m.viewport.AtBottom() {
		t.Fatalf("expected the viewport at the latest answer, offset %d", m.viewport.YOffset)
	}
	if !strings.Contains(m.View(), "question 4") {
		t.Fatalf("expected the last exchange on screen:\n%s", m.View())
	}
}

func TestChatShowsRetrievalErrors(t *testing.T) {
	m := initialModel(context.Background(), nil, Header{})
	_, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.pending = "fees"
	m.isLoading = true

	m2, _ := m.Update(answerErr{error: errors.New("index not ready")})
	m = m2.(*model)
	if m.isLoading || len(m.history) != 1 {
		t.Fatalf("expected finished exchange after error")
	}
	view := m.View()
	if !strings.Contains(view, "index not ready") || !strings.Contains(view, "retrieval-only") {
		t.Fatalf("expected error and retrieval-only label in view:\n%s", view)
	}
}

func TestChatIgnoresBlankInputAndQuits(t *testing.T) {
	m := initialModel(context.Background(), nil, Header{})
	if m.View() != "Initializing..." {
		t.Fatalf("expected initializing view before first resize")
	}
	m.textArea.SetValue("   ")
	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m2.(*model).isLoading {
		t.Fatal("expected blank input to be ignored")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatal("expected a quit command")
	}
}
