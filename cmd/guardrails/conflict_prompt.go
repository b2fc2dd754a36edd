package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

var (
	promptTitleStyle  = lipgloss.NewStyle().Bold(true)
	promptCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	promptDimStyle    = lipgloss.NewStyle().Faint(true)
)

// promptKeys are the conflict prompt's key bindings, defined with
// bubbles/key the way preflight's TUI components declare theirs.
var promptKeys = struct {
	Up, Down, Select, Cancel key.Binding
}{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c", "q")),
}

// conflictPromptModel is a single-screen bubbletea model letting the
// operator pick which contributing plugin wins an INTERACTIVE merge
// conflict at one path (spec.md §4.1, §9).
type conflictPromptModel struct {
	path       string
	candidates []string
	cursor     int
	chosen     string
	cancelled  bool
}

func (m conflictPromptModel) Init() tea.Cmd { return nil }

func (m conflictPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, promptKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, promptKeys.Down):
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, promptKeys.Select):
		m.chosen = m.candidates[m.cursor]
		return m, tea.Quit
	case key.Matches(keyMsg, promptKeys.Cancel):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m conflictPromptModel) View() string {
	s := promptTitleStyle.Render(fmt.Sprintf("Conflict at %s", m.path)) + "\n"
	s += promptDimStyle.Render("more than one plugin contributes this path; choose the winner") + "\n\n"
	for i, c := range m.candidates {
		cursor := "  "
		line := c
		if i == m.cursor {
			cursor = promptCursorStyle.Render("> ")
			line = promptCursorStyle.Render(c)
		}
		s += cursor + line + "\n"
	}
	s += "\n" + promptDimStyle.Render("↑/↓ choose · enter confirm · esc cancel") + "\n"
	return s
}

// promptConflict implements ports.ResolverCallback with an interactive
// terminal prompt. It is only ever wired in when --interactive is set;
// the core never calls a terminal directly.
func promptConflict(path string, candidates []string) (ports.ConflictChoice, error) {
	program := tea.NewProgram(conflictPromptModel{path: path, candidates: candidates})
	final, err := program.Run()
	if err != nil {
		return ports.ConflictChoice{}, fmt.Errorf("conflict prompt: %w", err)
	}

	m := final.(conflictPromptModel)
	if m.cancelled {
		return ports.ConflictChoice{}, fmt.Errorf("conflict at %s: resolution cancelled by operator", path)
	}
	return ports.ConflictChoice{Path: path, WinningPlugin: m.chosen}, nil
}
