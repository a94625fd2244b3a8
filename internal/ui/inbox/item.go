package inbox

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/theme"
)

// ThreadItem wraps a model.Thread so it can be used in a bubbles/list.
type ThreadItem struct {
	Thread    model.Thread
	Important bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i ThreadItem) FilterValue() string {
	return i.Thread.RepositoryFullName() + " " + i.Thread.Subject.Title
}

// Title returns the subject title for the list.
func (i ThreadItem) Title() string { return i.Thread.Subject.Title }

// Description returns a short summary line for the list.
func (i ThreadItem) Description() string {
	parts := []string{
		i.Thread.RepositoryFullName(),
		i.Thread.Reason,
		relativeTime(i.Thread.UpdatedAt),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering thread rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single thread line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(ThreadItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderLine(ti, index == m.Index()))
}

func renderLine(ti ThreadItem, isSelected bool) string {
	t := ti.Thread

	// ● unread, ○ read; ! marks important
	prefix := "○"
	if t.Unread {
		prefix = "●"
	}
	if ti.Important {
		prefix += lipgloss.NewStyle().Foreground(theme.ColorRed).Render("!")
	} else {
		prefix += " "
	}

	reasonBadge := theme.ReasonStyle(t.Reason).Render(t.Reason)
	typeBadge := theme.SubjectTypeStyle(t.Subject.Type).Render(typeLabel(t.Subject.Type))

	repo := lipgloss.NewStyle().
		Foreground(theme.ColorBlue).
		Render(t.RepositoryFullName())

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(t.UpdatedAt))

	line := fmt.Sprintf(
		"%s %s %s %s %s  %s",
		prefix, typeBadge, reasonBadge, repo, t.Subject.Title, timeStr,
	)

	if !t.Unread {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// typeLabel returns a short label for the subject kind.
func typeLabel(t model.SubjectType) string {
	switch t {
	case model.SubjectPullRequest:
		return "PR"
	case model.SubjectIssue:
		return "ISS"
	case model.SubjectRelease:
		return "REL"
	case model.SubjectCommit:
		return "COM"
	case model.SubjectDiscussion:
		return "DIS"
	case model.SubjectVulnerability:
		return "SEC"
	case "":
		return "---"
	default:
		s := strings.ToUpper(string(t))
		return s[:min(3, len(s))]
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
