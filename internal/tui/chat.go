// internal/tui/chat.go
// Package tui provides the interactive question-answering interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/pdfrag/internal/generator"
	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/rag"
	"github.com/mwiater/pdfrag/internal/util"
)

// AskFunc answers one question. rag.Ask bound to a retriever and generator satisfies it.
type AskFunc func(ctx context.Context, question string) (rag.Answer, error)

// Header describes the session shown in the status bar.
type Header struct {
	Index     string
	Namespace string
	Model     string
	TopK      int
}

// viewState represents the current screen.
type viewState int

const (
	// viewChat shows the conversation and the input box.
	viewChat viewState = iota
	// viewSources lists the matches behind the last answer.
	viewSources
)

type exchange struct {
	question string
	answer   rag.Answer
	err      error
}

type model struct {
	ctx              context.Context
	ask              AskFunc
	header           Header
	state            viewState
	isLoading        bool
	textArea         textarea.Model
	viewport         viewport.Model
	spinner          spinner.Model
	sourceList       list.Model
	history          []exchange
	pending          string
	scrollToBottom   bool
	width, height    int
	requestStartTime time.Time
}

// sourceItem is one retrieved chunk in the sources list.
type sourceItem struct {
	rank   int
	source string
	score  float64
	text   string
}

func (i sourceItem) Title() string {
	return fmt.Sprintf("%d. %s (score: %.4f)", i.rank, i.source, i.score)
}
func (i sourceItem) Description() string { return util.TruncateRunes(strings.TrimSpace(i.text), 120) }
func (i sourceItem) FilterValue() string { return i.source }

// answerMsg carries a finished round trip.
type answerMsg struct{ answer rag.Answer }

// answerErr reports a retrieval failure.
type answerErr struct{ error }

// tickMsg keeps the elapsed timer moving while a request is in flight.
type tickMsg time.Time

func initialModel(ctx context.Context, ask AskFunc, header Header) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Ask about your documents..."
	ta.Focus()
	ta.Prompt = "Question: "
	ta.ShowLineNumbers = false
	ta.CharLimit = -1
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sources := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	sources.Title = "Sources for the last answer"

	return &model{
		ctx:        ctx,
		ask:        ask,
		header:     header,
		state:      viewChat,
		spinner:    s,
		textArea:   ta,
		viewport:   viewport.New(100, 5),
		sourceList: sources,
	}
}

func askCmd(ctx context.Context, ask AskFunc, question string) tea.Cmd {
	return func() tea.Msg {
		logging.Logf(logging.Chat, "question: %s", question)
		answer, err := ask(ctx, question)
		if err != nil {
			return answerErr{error: err}
		}
		return answerMsg{answer: answer}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key presses, resizes and finished requests.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if m.state == viewChat {
				m.state = viewSources
			} else {
				m.state = viewChat
				m.textArea.Focus()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.sourceList.SetSize(msg.Width-2, msg.Height-4)
		m.textArea.SetWidth(msg.Width - 3)
		headerHeight := 3
		footerHeight := 3
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerHeight - footerHeight

	case answerMsg:
		m.finish(exchange{question: m.pending, answer: msg.answer})
		m.sourceList.SetItems(sourceItems(msg.answer))
		return m, nil

	case answerErr:
		m.finish(exchange{question: m.pending, err: msg.error})
		return m, nil

	case tickMsg:
		if m.isLoading {
			return m, tickCmd()
		}
		return m, nil
	}

	switch m.state {
	case viewChat:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

		if !m.isLoading {
			m.textArea, cmd = m.textArea.Update(msg)
			cmds = append(cmds, cmd)
		}

		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" && !m.isLoading {
			question := strings.TrimSpace(m.textArea.Value())
			if question != "" {
				m.pending = question
				m.textArea.Reset()
				m.isLoading = true
				m.requestStartTime = time.Now()
				cmds = append(cmds, m.spinner.Tick, askCmd(m.ctx, m.ask, question), tickCmd())
			}
		}

	case viewSources:
		m.sourceList, cmd = m.sourceList.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.isLoading {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) finish(ex exchange) {
	m.history = append(m.history, ex)
	m.pending = ""
	m.isLoading = false
	m.textArea.Focus()
	m.scrollToBottom = true
}

func sourceItems(answer rag.Answer) []list.Item {
	items := make([]list.Item, 0, len(answer.Retrieval.Matches))
	for i, match := range answer.Retrieval.Matches {
		it := sourceItem{rank: i + 1, score: match.Score}
		if match.Metadata != nil {
			it.source = match.Metadata.Source
			it.text = match.Metadata.Text
		}
		items = append(items, it)
	}
	return items
}

// View renders the current screen.
func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if m.state == viewSources {
		if len(m.sourceList.Items()) == 0 {
			return lipgloss.NewStyle().Margin(1, 2).Render("No sources yet. Ask a question first. (tab to return)")
		}
		return lipgloss.NewStyle().Margin(1, 2).Render(m.sourceList.View())
	}
	return m.chatView()
}

func (m *model) chatView() string {
	var builder strings.Builder

	labelStyle := lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1).MarginLeft(1)
	modelLabel := m.header.Model
	if modelLabel == "" {
		modelLabel = "retrieval-only"
	}
	status := lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render("Index:"),
		headerStyle.Render(fmt.Sprintf("%s/%s", m.header.Index, m.header.Namespace)),
		headerStyle.Render("Model: "+modelLabel),
		headerStyle.Render(fmt.Sprintf("TopK: %d", m.header.TopK)),
	)
	help := lipgloss.NewStyle().Render(" (tab for sources, esc to quit)")
	builder.WriteString(status + help + "\n\n")

	var historyBuilder strings.Builder
	userStyle := lipgloss.NewStyle().Bold(true)
	assistantStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	metaStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	wrap := func(role, content string) string {
		body := lipgloss.NewStyle().Width(m.width - lipgloss.Width(role) - 2).Render(content)
		return lipgloss.JoinHorizontal(lipgloss.Top, role, body) + "\n"
	}
	for _, ex := range m.history {
		historyBuilder.WriteString(wrap(userStyle.Render("You: "), ex.question))
		if ex.err != nil {
			historyBuilder.WriteString(wrap(errorStyle.Render("Error: "), ex.err.Error()))
			continue
		}
		historyBuilder.WriteString(wrap(assistantStyle.Render("Assistant: "), ex.answer.Result.String()))
		historyBuilder.WriteString(metaStyle.Render(formatMeta(ex.answer)) + "\n")
	}
	if m.pending != "" {
		historyBuilder.WriteString(wrap(userStyle.Render("You: "), m.pending))
	}

	m.viewport.SetContent(historyBuilder.String())
	if m.scrollToBottom {
		m.viewport.GotoBottom()
		m.scrollToBottom = false
	}
	builder.WriteString(m.viewport.View())

	if m.isLoading {
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		builder.WriteString("\n" + m.spinner.View() + fmt.Sprintf(" Searching documents... %ss", timer))
	} else {
		builder.WriteString("\n" + m.textArea.View())
	}
	return builder.String()
}

func formatMeta(answer rag.Answer) string {
	sources := strings.Join(rag.Sources(answer.Retrieval.Matches), ", ")
	if sources == "" {
		sources = "none"
	}
	meta := fmt.Sprintf("  >>> [%s] [Retrieval: %.2fs] [Total: %.2fs] [Sources: %s]",
		answer.Result.Kind,
		answer.Retrieval.Duration.Seconds(),
		answer.ResponseTime.Seconds(),
		sources,
	)
	if answer.Result.Kind == generator.KindAnswer && answer.Result.Usage.TotalTokens > 0 {
		meta += fmt.Sprintf(" [Tokens: %d]", answer.Result.Usage.TotalTokens)
	}
	return meta
}

// Run starts the chat UI and blocks until the user quits.
func Run(ctx context.Context, ask AskFunc, header Header) error {
	m := initialModel(ctx, ask, header)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI: %w", err)
	}
	return nil
}
