package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typed(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func submit(t *testing.T, m Model) (Model, CommandMsg) {
	t.Helper()
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(CommandMsg)
	require.True(t, ok)
	return m, msg
}

func newFocused() Model {
	m := New(DefaultEntries, 80, 24)
	m.Focus()
	return m
}

func TestEnter_ResolvesAlias(t *testing.T) {
	m := typed(newFocused(), "Sync")
	m, msg := submit(t, m)

	assert.Equal(t, CommandMsg("refresh"), msg)
	assert.Empty(t, m.input.Value())
}

func TestEnter_UnknownPassesThrough(t *testing.T) {
	_, msg := submit(t, typed(newFocused(), "launch"))
	assert.Equal(t, CommandMsg("launch"), msg)
}

func TestEnter_EmptyIsIgnored(t *testing.T) {
	_, cmd := newFocused().Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestTab_CompletesCommonPrefix(t *testing.T) {
	m := typed(newFocused(), "se")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "settings", m.input.Value())

	m.input.SetValue("lo")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "log", m.input.Value())
}

func TestMatches(t *testing.T) {
	m := New(DefaultEntries, 80, 24)
	assert.Len(t, m.Matches(""), len(DefaultEntries))
	assert.Len(t, m.Matches("re"), 3)
	assert.Empty(t, m.Matches("zzz"))
}

func TestHistoryRecall(t *testing.T) {
	m := newFocused()
	m, _ = submit(t, typed(m, "refresh"))
	m, _ = submit(t, typed(m, "test"))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "test", m.input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "refresh", m.input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "refresh", m.input.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "test", m.input.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Empty(t, m.input.Value())
}

func TestEnter_TriageAliases(t *testing.T) {
	_, msg := submit(t, typed(newFocused(), "mark read"))
	assert.Equal(t, CommandMsg("read"), msg)

	_, msg = submit(t, typed(newFocused(), "browse"))
	assert.Equal(t, CommandMsg("open"), msg)
}
