package inbox

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ghnotify/internal/classify"
	"github.com/nhle/ghnotify/internal/keys"
	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/theme"
)

// SelectedThreadMsg is sent when a user selects a thread to view details.
type SelectedThreadMsg struct {
	Thread model.Thread
}

// Model is the notification list view.
type Model struct {
	list          list.Model
	keys          *keys.KeyMap
	allow         classify.ReasonSet
	threads       []model.Thread
	importantOnly bool
	signedIn      bool
	width         int
	height        int
}

// New creates a new inbox list. allow decides which rows are flagged
// important.
func New(k *keys.KeyMap, allow classify.ReasonSet, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		allow:  allow,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetThreads replaces the displayed threads with the latest fetch.
func (m *Model) SetThreads(threads []model.Thread, signedIn bool) tea.Cmd {
	m.threads = threads
	m.signedIn = signedIn
	return m.refreshItems()
}

func (m *Model) refreshItems() tea.Cmd {
	items := make([]list.Item, 0, len(m.threads))
	for _, t := range m.threads {
		important := classify.IsImportant(t, m.allow)
		if m.importantOnly && !important {
			continue
		}
		items = append(items, ThreadItem{Thread: t, Important: important})
	}
	return m.list.SetItems(items)
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(ThreadItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return SelectedThreadMsg{Thread: item.Thread}
			}

		case key.Matches(msg, m.keys.ImportantOnly):
			m.importantOnly = !m.importantOnly
			return m, m.refreshItems()
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SelectedThread returns the highlighted thread, if any.
func (m Model) SelectedThread() (model.Thread, bool) {
	item, ok := m.list.SelectedItem().(ThreadItem)
	if !ok {
		return model.Thread{}, false
	}
	return item.Thread, true
}

// ImportantOnly reports whether unimportant threads are hidden.
func (m Model) ImportantOnly() bool {
	return m.importantOnly
}

// Len returns the number of visible rows.
func (m Model) Len() int {
	return len(m.list.Items())
}

// View renders the list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when nothing is listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.signedIn:
		return style.Render("Not signed in.\n\nPress l to sign in with a GitHub token.")
	case m.importantOnly:
		return style.Render("No important notifications.\nPress i to show everything.")
	default:
		return style.Render("Inbox zero.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
