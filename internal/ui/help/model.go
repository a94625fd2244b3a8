// Package help renders the keyboard reference together with the active
// importance policy.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ghnotify/internal/classify"
	"github.com/nhle/ghnotify/internal/keys"
	"github.com/nhle/ghnotify/internal/theme"
)

// statusLegend explains the sync indicator shown in the header.
var statusLegend = [][2]string{
	{"synced hh:mm:ss", "last successful poll"},
	{"syncing", "a poll is in flight"},
	{"not signed in", "no token, press l"},
	{"⚠ rate limited", "GitHub quota exhausted, retrying on the next tick"},
	{"⚠ offline", "GitHub unreachable, showing the last good list"},
}

// Model is the help overlay.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	reasons []string
	width   int
	height  int
}

// New creates a help overlay that lists the bindings in k and the reasons
// in allow.
func New(k *keys.KeyMap, allow classify.ReasonSet, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	m := Model{
		keys:    k,
		help:    h,
		reasons: allow.Reasons(),
	}
	m.SetSize(width, height)
	return m
}

// Update is a no-op; the root model closes the overlay.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the overlay.
func (m Model) View() string {
	heading := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginTop(1)

	sections := []string{
		heading.UnsetMarginTop().Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		heading.Render("Important Reasons"),
		m.policyView(),
		heading.Render("Sync Status"),
		legendView(),
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) policyView() string {
	if len(m.reasons) == 0 {
		return theme.DimmedStyle.Render("none, nothing will be announced")
	}
	chips := make([]string, len(m.reasons))
	for i, r := range m.reasons {
		chips[i] = theme.ReasonStyle(r).Render(r)
	}
	return strings.Join(chips, "  ") + "\n" +
		theme.DimmedStyle.Render("Unread threads with these reasons raise a toast and count toward the badge.")
}

func legendView() string {
	var b strings.Builder
	for i, row := range statusLegend {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(lipgloss.NewStyle().Width(18).Render(row[0]))
		b.WriteString(theme.DimmedStyle.Render(row[1]))
	}
	return b.String()
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-8, 0)
}
