// Package command is the ':' palette. It completes command names with tab
// and recalls earlier commands with up and down.
package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ghnotify/internal/theme"
)

const maxHistory = 20

// CommandMsg carries the command the user ran. Known aliases are
// resolved to the canonical name.
type CommandMsg string

// Entry describes one palette command.
type Entry struct {
	Name        string
	Aliases     []string
	Description string
}

// DefaultEntries are the commands the inbox understands.
var DefaultEntries = []Entry{
	{Name: "refresh", Aliases: []string{"sync"}, Description: "poll GitHub now"},
	{Name: "test", Aliases: []string{"test notification"}, Description: "show a test notification"},
	{Name: "read", Aliases: []string{"mark read"}, Description: "mark the selected thread read on GitHub"},
	{Name: "open", Aliases: []string{"browse"}, Description: "open the selected thread in a browser"},
	{Name: "mock", Aliases: []string{"mock mention"}, Description: "announce the selected thread as a mention"},
	{Name: "login", Aliases: []string{"sign in"}, Description: "sign in with a personal access token"},
	{Name: "logout", Aliases: []string{"sign out"}, Description: "forget the stored token"},
	{Name: "settings", Aliases: []string{"config"}, Description: "edit polling and importance settings"},
	{Name: "reset", Aliases: []string{"reset seen"}, Description: "announce current important threads again"},
	{Name: "quit", Aliases: []string{"q"}, Description: "exit"},
}

// Model is the command palette view.
type Model struct {
	input   textinput.Model
	entries []Entry
	history []string
	histPos int
	width   int
	height  int
}

// New creates a palette over entries.
func New(entries []Entry, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command, tab to complete"
	ti.Prompt = ": "

	m := Model{input: ti, entries: entries}
	m.SetSize(width, height)
	return m
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if raw == "" {
				return m, nil
			}
			m.remember(raw)
			name := m.Resolve(raw)
			return m, func() tea.Msg { return CommandMsg(name) }

		case "tab":
			m.complete()
			return m, nil

		case "up":
			m.recall(-1)
			return m, nil

		case "down":
			m.recall(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Resolve maps an alias to its command name. Unknown input is returned
// unchanged so the caller can report it.
func (m Model) Resolve(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, e := range m.entries {
		if e.Name == raw {
			return e.Name
		}
		for _, a := range e.Aliases {
			if a == raw {
				return e.Name
			}
		}
	}
	return raw
}

// Matches returns the entries whose name starts with prefix.
func (m Model) Matches(prefix string) []Entry {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []Entry
	for _, e := range m.entries {
		if strings.HasPrefix(e.Name, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// complete extends the input to the longest prefix shared by all matches.
func (m *Model) complete() {
	matches := m.Matches(m.input.Value())
	if len(matches) == 0 {
		return
	}
	common := matches[0].Name
	for _, e := range matches[1:] {
		for !strings.HasPrefix(e.Name, common) {
			common = common[:len(common)-1]
		}
	}
	m.input.SetValue(common)
	m.input.CursorEnd()
}

func (m *Model) remember(raw string) {
	if n := len(m.history); n == 0 || m.history[n-1] != raw {
		m.history = append(m.history, raw)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.histPos = len(m.history)
}

// recall moves through history; stepping past the newest entry clears
// the input.
func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	pos := m.histPos + step
	if pos < 0 {
		pos = 0
	}
	if pos >= len(m.history) {
		m.histPos = len(m.history)
		m.input.Reset()
		return
	}
	m.histPos = pos
	m.input.SetValue(m.history[pos])
	m.input.CursorEnd()
}

// View renders the palette and the commands matching the current input.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command Palette")

	rows := []string{title, m.input.View(), ""}
	for _, e := range m.Matches(m.input.Value()) {
		name := lipgloss.NewStyle().Width(12).Foreground(theme.ColorBlue).Render(e.Name)
		rows = append(rows, name+theme.DimmedStyle.Render(e.Description))
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-6, 0)
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.histPos = len(m.history)
	return m.input.Focus()
}
