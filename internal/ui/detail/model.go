package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ghnotify/internal/emit"
	"github.com/nhle/ghnotify/internal/keys"
	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// MockMentionMsg asks the parent to emit a mention notification for the
// thread on screen.
type MockMentionMsg struct {
	Thread model.Thread
}

// MarkReadMsg asks the parent to mark the thread on screen as read.
type MarkReadMsg struct {
	Thread model.Thread
}

// OpenMsg asks the parent to open the thread on screen in a browser.
type OpenMsg struct {
	Thread model.Thread
}

// Model is the thread detail view.
type Model struct {
	thread    *model.Thread
	important bool
	viewport  viewport.Model
	keys      *keys.KeyMap
	width     int
	height    int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.MockMention):
			if m.thread != nil {
				t := *m.thread
				return m, func() tea.Msg {
					return MockMentionMsg{Thread: t}
				}
			}

		case key.Matches(msg, m.keys.MarkRead):
			if m.thread != nil {
				t := *m.thread
				return m, func() tea.Msg { return MarkReadMsg{Thread: t} }
			}

		case key.Matches(msg, m.keys.Open):
			if m.thread != nil {
				t := *m.thread
				return m, func() tea.Msg { return OpenMsg{Thread: t} }
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.thread == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No notification selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.thread == nil {
		return ""
	}

	t := m.thread
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(t.Subject.Title))

	badges := []string{
		theme.SubjectTypeStyle(t.Subject.Type).Render(string(t.Subject.Type)),
		theme.ReasonStyle(t.Reason).Render(t.Reason),
	}
	if m.important {
		badges = append(badges, theme.ErrorStyle.Render("important"))
	}
	sections = append(sections, strings.Join(badges, "  "))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf(
			"%s %s",
			metaStyle.Render(fmt.Sprintf("%-13s", label+":")),
			valStyle.Render(value),
		))
	}

	state := "read"
	if t.Unread {
		state = "unread"
	}

	row("Repository", t.RepositoryFullName())
	row("Notification", emit.Title(*t))
	row("State", state)
	if !t.UpdatedAt.IsZero() {
		row("Updated", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if t.LastReadAt != nil {
		row("Last read", t.LastReadAt.Local().Format("2006-01-02 15:04"))
	}
	row("Subject URL", t.Subject.URL)
	row("Comment URL", t.Subject.LatestCommentURL)
	row("Thread", t.ID)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetThread updates the thread being displayed and re-renders the content.
func (m *Model) SetThread(t model.Thread, important bool) {
	m.thread = &t
	m.important = important
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Thread returns the thread on screen.
func (m Model) Thread() (model.Thread, bool) {
	if m.thread == nil {
		return model.Thread{}, false
	}
	return *m.thread, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}
