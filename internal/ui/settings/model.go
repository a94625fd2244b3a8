package settings

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/theme"
)

// SavedMsg signals that the configuration was written to disk.
type SavedMsg struct {
	Config model.AppConfig
	Err    error
}

// DoneMsg signals the settings view should close without saving.
type DoneMsg struct{}

// knownReasons are offered in the importance picker. Reasons already in
// the config but not listed here are kept.
var knownReasons = []string{
	model.ReasonMention,
	model.ReasonTeamMention,
	model.ReasonReviewRequested,
	model.ReasonAuthor,
	model.ReasonAssign,
	model.ReasonComment,
	model.ReasonStateChange,
	model.ReasonCIActivity,
	model.ReasonSubscribed,
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	interval string
	host     string
	reasons  []string
}

// Model edits the polling and importance settings.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	path   string
	cfg    model.AppConfig
	width  int
	height int
}

// New creates a settings view that saves to path.
func New(path string, cfg model.AppConfig, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		path:   path,
		cfg:    cfg,
		width:  width,
		height: height,
	}
}

// Start loads the current values into a fresh form.
func (m *Model) Start() tea.Cmd {
	m.fb.interval = strconv.Itoa(m.cfg.Notify.PollIntervalSec)
	m.fb.host = m.cfg.GitHub.Host
	m.fb.reasons = append([]string(nil), m.cfg.Notify.ImportantReasons...)

	opts := make([]huh.Option[string], 0, len(knownReasons))
	for _, r := range reasonOptions(m.cfg.Notify.ImportantReasons) {
		opts = append(opts, huh.NewOption(r, r))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Poll interval (seconds)").
				Value(&m.fb.interval).
				Validate(ValidateInterval),
			huh.NewInput().
				Title("GitHub host").
				Placeholder("github.com").
				Value(&m.fb.host),
			huh.NewMultiSelect[string]().
				Title("Important reasons").
				Options(opts...).
				Value(&m.fb.reasons),
		),
	).WithWidth(m.formWidth())
	return m.form.Init()
}

// reasonOptions returns the known reasons plus any configured extras.
func reasonOptions(configured []string) []string {
	out := append([]string(nil), knownReasons...)
	for _, r := range configured {
		found := false
		for _, k := range knownReasons {
			if k == r {
				found = true
				break
			}
		}
		if !found {
			out = append(out, r)
		}
	}
	return out
}

// Update handles messages for the settings form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		next := m.Apply()
		m.cfg = next
		return m, save(m.path, next)
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return DoneMsg{} }
	}

	return m, cmd
}

// Apply returns the config with the form values applied.
func (m Model) Apply() model.AppConfig {
	next := m.cfg
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.interval)); err == nil && n > 0 {
		next.Notify.PollIntervalSec = n
	}
	if h := strings.TrimSpace(m.fb.host); h != "" {
		next.GitHub.Host = h
	}
	next.Notify.ImportantReasons = append([]string(nil), m.fb.reasons...)
	return next
}

func save(path string, cfg model.AppConfig) tea.Cmd {
	return func() tea.Msg {
		return SavedMsg{Config: cfg, Err: model.SaveConfig(path, &cfg)}
	}
}

// View renders the settings form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	note := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Italic(true).
		Render("Changes apply the next time ghnotify starts.")

	content := titleStyle.Render("Settings") + "\n" + m.form.View() + "\n" + note

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// ValidateInterval accepts a positive whole number of seconds.
func ValidateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number of seconds")
	}
	return nil
}
