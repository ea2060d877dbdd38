package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/treepatch/dom"
	"github.com/wippyai/treepatch/patch"
	"github.com/wippyai/treepatch/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

const logLines = 4

type keyMap struct {
	Step key.Binding
	Run  key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Step, k.Run, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Step, k.Run}, {k.Quit}}
}

var keys = keyMap{
	Step: key.NewBinding(key.WithKeys("n", " ", "right"), key.WithHelp("n/space", "step")),
	Run:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run to end")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// logSink keeps the last lines written by the logger so that they can be
// shown inside the TUI instead of on stderr.
type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		s.lines = append(s.lines, line)
	}
	if over := len(s.lines) - 100; over > 0 {
		s.lines = s.lines[over:]
	}
	return len(p), nil
}

func (s *logSink) Sync() error { return nil }

func (s *logSink) tail(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) <= n {
		return append([]string(nil), s.lines...)
	}
	return append([]string(nil), s.lines[len(s.lines)-n:]...)
}

type stepModel struct {
	err     error
	patcher *patch.Patcher
	state   *patch.State
	doc     *dom.Document
	logs    *logSink
	name    string
	ops     []schema.Op
	tree    viewport.Model
	help    help.Model
	next    int
	width   int
	height  int
	ready   bool
}

func newStepModel(name string, p *patch.Patcher, state *patch.State, doc *dom.Document, ops []schema.Op, logs *logSink) *stepModel {
	return &stepModel{
		patcher: p,
		state:   state,
		doc:     doc,
		logs:    logs,
		name:    name,
		ops:     ops,
		help:    help.New(),
	}
}

func (m *stepModel) Init() tea.Cmd {
	return nil
}

func (m *stepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w, h := m.treeSize()
		if !m.ready {
			m.tree = viewport.New(w, h)
			m.ready = true
		} else {
			m.tree.Width, m.tree.Height = w, h
		}
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Step):
			m.step()
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Run):
			for m.err == nil && m.next < len(m.ops) {
				m.step()
			}
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.tree, cmd = m.tree.Update(msg)
	return m, cmd
}

func (m *stepModel) step() {
	if m.err != nil || m.next >= len(m.ops) {
		return
	}
	if err := m.patcher.Step(m.state, m.ops[m.next]); err != nil {
		m.err = fmt.Errorf("changes[%d]: %w", m.next, err)
		return
	}
	m.next++
}

// treeSize leaves the left half for the operation list and room for the
// title, status, log and help lines.
func (m *stepModel) treeSize() (int, int) {
	w := m.width/2 - 2
	h := m.height - logLines - 6
	if w < 10 {
		w = 10
	}
	if h < 3 {
		h = 3
	}
	return w, h
}

func (m *stepModel) refresh() {
	if !m.ready {
		return
	}
	m.tree.SetContent(dom.Outline(m.doc, m.state.Target))
}

func (m *stepModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("treepatch"))
	b.WriteString(" ")
	b.WriteString(m.name)
	b.WriteString("\n\n")

	_, h := m.treeSize()
	left := lipgloss.NewStyle().Width(m.width / 2).Render(m.opList(h))
	right := paneStyle.Render(m.tree.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.next == len(m.ops):
		status := fmt.Sprintf("Applied %d changes", len(m.ops))
		if leaked := m.state.Leaked(); len(leaked) > 0 {
			status += fmt.Sprintf(", leaked stash addresses %v", leaked)
		}
		b.WriteString(resultStyle.Render(status))
	default:
		status := fmt.Sprintf("Step %d/%d", m.next, len(m.ops))
		if m.state.ChildrenSelected {
			status += " • children selected"
		}
		if n := m.state.Stash.Len(); n > 0 {
			status += fmt.Sprintf(" • %d stashed", n)
		}
		b.WriteString(status)
	}
	b.WriteString("\n")

	for _, line := range m.logs.tail(logLines) {
		b.WriteString(logStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))
	return b.String()
}

// opList renders a window of height lines around the next operation.
func (m *stepModel) opList(height int) string {
	start := m.next - height/2
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(m.ops) {
		end = len(m.ops)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		line := fmt.Sprintf("%4d  %s", i, m.ops[i])
		switch {
		case i < m.next:
			b.WriteString(doneStyle.Render("  " + line))
		case i == m.next && m.err != nil:
			b.WriteString(errorStyle.Render("! " + line))
		case i == m.next:
			b.WriteString(selectedStyle.Render("> " + line))
		default:
			b.WriteString(opStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func runInteractive(name string, cfg config, p *patch.Patcher, state *patch.State, doc *dom.Document, ops []schema.Op) error {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logs := &logSink{}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	installLogger(zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(logs), level)))

	prog := tea.NewProgram(newStepModel(name, p, state, doc, ops, logs), tea.WithAltScreen())
	_, err = prog.Run()
	return err
}
