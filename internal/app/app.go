// Package app is the root Bubble Tea model of the terminal inbox. It routes
// between views and forwards user actions to the poller.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/classify"
	"github.com/nhle/ghnotify/internal/keys"
	"github.com/nhle/ghnotify/internal/logger"
	"github.com/nhle/ghnotify/internal/metrics"
	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/source"
	appsync "github.com/nhle/ghnotify/internal/sync"
	"github.com/nhle/ghnotify/internal/ui"
	"github.com/nhle/ghnotify/internal/ui/command"
	"github.com/nhle/ghnotify/internal/ui/detail"
	helpview "github.com/nhle/ghnotify/internal/ui/help"
	"github.com/nhle/ghnotify/internal/ui/inbox"
	"github.com/nhle/ghnotify/internal/ui/login"
	"github.com/nhle/ghnotify/internal/ui/settings"
	"github.com/nhle/ghnotify/internal/ui/toast"
)

const (
	toastDuration = 5 * time.Second
	signInTimeout = 30 * time.Second
	actionTimeout = 30 * time.Second
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewLogin
	ViewSettings
)

// SeenResetter clears the persisted seen set.
type SeenResetter interface {
	ResetSeenSet(ctx context.Context) error
}

// Forgetter removes the stored credential.
type Forgetter interface {
	Forget() error
}

// Browser opens a web page.
type Browser interface {
	Browse(url string) error
}

// Deps are the collaborators of the root model.
type Deps struct {
	Poller      *appsync.Poller
	Toasts      *toast.Center
	Sources     source.Factory
	Seen        SeenResetter
	Credentials Forgetter
	Reasons     classify.ReasonSet
	Browser     Browser
	Logger      *zap.Logger

	// Config and ConfigPath back the settings view. A nil Config
	// disables it.
	Config     *model.AppConfig
	ConfigPath string
}

// actionDoneMsg reports the outcome of a background action.
type actionDoneMsg struct {
	action string
	err    error
}

// clearToastMsg hides the toast with the given sequence number.
type clearToastMsg struct {
	seq int
}

// Model is the root Bubble Tea model that manages view routing and
// layout.
type Model struct {
	deps         Deps
	log          *zap.Logger
	ctx          context.Context
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	inbox        inbox.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	loginView    login.Model
	settingsView settings.Model
	ready        bool

	last     *appsync.CycleResult
	badge    toast.BadgeMsg
	toast    string
	toastSeq int
	status   string
}

// New creates the root model. ctx bounds every background action.
func New(ctx context.Context, deps Deps) Model {
	k := keys.DefaultKeyMap()
	if deps.Reasons == nil {
		deps.Reasons = classify.DefaultReasons()
	}
	log := deps.Logger
	if log == nil {
		log = logger.Named("inbox")
	}

	return Model{
		deps:        deps,
		log:         log,
		ctx:         ctx,
		currentView: ViewList,
		keys:        k,
		inbox:       inbox.New(k, deps.Reasons, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, deps.Reasons, 80, 24),
		commandView: command.New(command.DefaultEntries, 80, 24),
		loginView:   login.New(80, 24),
	}
}

// Init starts listening for poll results, toasts and badge changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.deps.Poller.WaitForResult(),
		m.deps.Toasts.WaitForToast(),
		m.deps.Toasts.WaitForBadge(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.inbox.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.loginView.SetSize(contentWidth, contentHeight)
		m.settingsView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.CycleResult:
		return m, tea.Batch(m.applyResult(msg), m.deps.Poller.WaitForResult())

	case toast.Msg:
		m.toastSeq++
		m.toast = msg.Title + ": " + msg.Body
		seq := m.toastSeq
		return m, tea.Batch(
			tea.Tick(toastDuration, func(time.Time) tea.Msg { return clearToastMsg{seq: seq} }),
			m.deps.Toasts.WaitForToast(),
		)

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case toast.BadgeMsg:
		m.badge = msg
		return m, m.deps.Toasts.WaitForBadge()

	case actionDoneMsg:
		if msg.err != nil {
			m.log.Warn("action failed", zap.String("action", msg.action), zap.Error(msg.err))
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = ""
		}
		return m, nil

	case inbox.SelectedThreadMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetThread(msg.Thread, classify.IsImportant(msg.Thread, m.deps.Reasons))
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.MockMentionMsg:
		return m, m.send("mock mention", appsync.MockMentionRequested{Thread: msg.Thread})

	case detail.MarkReadMsg:
		return m, m.markRead(msg.Thread)

	case detail.OpenMsg:
		return m, m.open(msg.Thread)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case login.SubmittedMsg:
		m.currentView = ViewList
		m.status = "signing in..."
		return m, m.signIn(msg.Token)

	case login.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case settings.SavedMsg:
		m.currentView = ViewList
		if msg.Err != nil {
			m.status = fmt.Sprintf("settings failed: %v", msg.Err)
			return m, nil
		}
		*m.deps.Config = msg.Config
		m.status = "settings saved"
		return m, nil

	case settings.DoneMsg:
		m.currentView = ViewList
		return m, nil

	case tea.KeyMsg:
		// Global keys that work regardless of current view
		switch msg.String() {
		case "ctrl+c":
			m.deps.Poller.Stop()
			return m, tea.Quit
		}

		if m.currentView == ViewLogin || m.currentView == ViewSettings {
			break
		}

		switch msg.String() {
		case "q":
			if m.currentView == ViewList {
				m.deps.Poller.Stop()
				return m, tea.Quit
			}

		case "?":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case ":":
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case "esc":
			if m.currentView == ViewHelp || m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}

		case "r":
			if m.currentView == ViewList {
				m.deps.Poller.Refresh(m.ctx)
				return m, nil
			}

		case "l":
			if m.currentView == ViewList {
				return m, m.openLogin()
			}

		case "t":
			if m.currentView == ViewList {
				return m, m.send("test notification", appsync.TestNotificationRequested{})
			}

		case "m":
			if m.currentView == ViewList {
				if t, ok := m.inbox.SelectedThread(); ok {
					return m, m.send("mock mention", appsync.MockMentionRequested{Thread: t})
				}
				return m, nil
			}

		case "x":
			if m.currentView == ViewList {
				if t, ok := m.inbox.SelectedThread(); ok {
					return m, m.markRead(t)
				}
				return m, nil
			}

		case "o":
			if m.currentView == ViewList {
				if t, ok := m.inbox.SelectedThread(); ok {
					return m, m.open(t)
				}
				return m, nil
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// applyResult folds a cycle result into the view. A transient failure
// keeps the last good list on screen.
func (m *Model) applyResult(res appsync.CycleResult) tea.Cmd {
	m.last = &res

	switch {
	case res.Outcome == metrics.OutcomeOK:
		return m.inbox.SetThreads(res.Threads, true)
	case !res.SignedIn:
		return m.inbox.SetThreads(nil, false)
	}
	return nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("GitHub Notifications", m.badge.Text, m.badge.Color, m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, m.toast, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.inbox.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewLogin:
		return m.loginView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the poller state.
func (m Model) syncStatus() string {
	if m.deps.Poller.State() == appsync.StatePolling {
		return "syncing"
	}
	if m.last == nil {
		return "starting"
	}

	switch m.last.Outcome {
	case metrics.OutcomeOK:
		return "synced " + m.last.At.Format("15:04:05")
	case metrics.OutcomeAuthError:
		return "not signed in"
	case metrics.OutcomeRateLimited:
		return "⚠ rate limited"
	case metrics.OutcomeNetwork:
		return "⚠ offline"
	default:
		return "⚠ " + m.last.Outcome
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.status != "" && m.currentView == ViewList {
		return m.status
	}
	if m.last != nil && m.last.Err != nil && m.currentView == ViewList {
		return m.last.Err.Error()
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		return "esc back | o open | x mark read | m mock mention | j/k scroll"
	case ViewLogin, ViewSettings:
		return "enter submit | esc cancel"
	default:
		return "q quit | ? help | r refresh | o open | x read | i important | : command"
	}
}

func (m *Model) openLogin() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewLogin
	return m.loginView.Start()
}

// send hands a message to the poller off the UI goroutine.
func (m Model) send(action string, msg appsync.Message) tea.Cmd {
	ctx, p := m.ctx, m.deps.Poller
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: p.Handle(ctx, msg)}
	}
}

// signIn resolves the token's profile and then hands both to the poller.
func (m Model) signIn(token string) tea.Cmd {
	ctx, p, sources := m.ctx, m.deps.Poller, m.deps.Sources
	return func() tea.Msg {
		src, err := sources(token)
		if err != nil {
			return actionDoneMsg{action: "sign in", err: err}
		}

		lookupCtx, cancel := context.WithTimeout(ctx, signInTimeout)
		profile, err := src.CurrentUser(lookupCtx)
		cancel()
		if err != nil {
			return actionDoneMsg{action: "sign in", err: err}
		}

		return actionDoneMsg{
			action: "sign in",
			err:    p.Handle(ctx, appsync.AuthSucceeded{Token: token, User: profile}),
		}
	}
}

// executeCommand runs a palette command by its canonical name.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh":
		m.deps.Poller.Refresh(m.ctx)
		return nil
	case "test":
		return m.send("test notification", appsync.TestNotificationRequested{})
	case "mock":
		if t, ok := m.inbox.SelectedThread(); ok {
			return m.send("mock mention", appsync.MockMentionRequested{Thread: t})
		}
		return nil
	case "read":
		if t, ok := m.currentThread(); ok {
			return m.markRead(t)
		}
		return nil
	case "open":
		if t, ok := m.currentThread(); ok {
			return m.open(t)
		}
		return nil
	case "login":
		return m.openLogin()
	case "logout":
		return m.signOut()
	case "settings":
		if m.deps.Config == nil {
			m.status = "settings unavailable"
			return nil
		}
		m.settingsView = settings.New(m.deps.ConfigPath, *m.deps.Config,
			m.layout.ContentWidth(), m.layout.ContentHeight())
		m.previousView = ViewList
		m.currentView = ViewSettings
		return m.settingsView.Start()
	case "reset":
		return m.resetSeen()
	case "quit":
		m.deps.Poller.Stop()
		return tea.Quit
	default:
		m.status = "unknown command: " + cmd
		return nil
	}
}

// currentThread is the thread on screen in the detail view, or the inbox
// selection otherwise.
func (m Model) currentThread() (model.Thread, bool) {
	if m.currentView == ViewDetail {
		return m.detail.Thread()
	}
	return m.inbox.SelectedThread()
}

// markRead marks the thread read on GitHub and then re-polls so the
// inbox reflects it.
func (m Model) markRead(t model.Thread) tea.Cmd {
	ctx, p := m.ctx, m.deps.Poller
	return func() tea.Msg {
		src, err := p.Source()
		if err != nil {
			return actionDoneMsg{action: "mark read", err: err}
		}

		callCtx, cancel := context.WithTimeout(ctx, actionTimeout)
		err = src.MarkThreadRead(callCtx, t.ID)
		cancel()
		if err != nil {
			return actionDoneMsg{action: "mark read", err: err}
		}

		p.Refresh(ctx)
		return actionDoneMsg{action: "mark read"}
	}
}

// open marks an unread thread read and opens its web page.
func (m Model) open(t model.Thread) tea.Cmd {
	ctx, p, b, log := m.ctx, m.deps.Poller, m.deps.Browser, m.log
	return func() tea.Msg {
		if b == nil {
			return actionDoneMsg{action: "open", err: errors.New("no browser configured")}
		}
		src, err := p.Source()
		if err != nil {
			return actionDoneMsg{action: "open", err: err}
		}

		callCtx, cancel := context.WithTimeout(ctx, actionTimeout)
		defer cancel()

		if t.Unread {
			if err := src.MarkThreadRead(callCtx, t.ID); err != nil {
				log.Warn("mark read before open failed", zap.String("thread", t.ID), zap.Error(err))
			}
		}

		page := source.ResolveWebURL(callCtx, src, t)
		log.Debug("opening thread", zap.String("thread", t.ID), zap.String("url", page))
		if err := b.Browse(page); err != nil {
			return actionDoneMsg{action: "open", err: err}
		}

		if t.Unread {
			p.Refresh(ctx)
		}
		return actionDoneMsg{action: "open"}
	}
}

func (m Model) signOut() tea.Cmd {
	ctx, p, creds := m.ctx, m.deps.Poller, m.deps.Credentials
	return func() tea.Msg {
		if creds == nil {
			return actionDoneMsg{action: "sign out"}
		}
		if err := creds.Forget(); err != nil {
			return actionDoneMsg{action: "sign out", err: err}
		}
		p.Refresh(ctx)
		return actionDoneMsg{action: "sign out"}
	}
}

func (m Model) resetSeen() tea.Cmd {
	ctx, p, seen := m.ctx, m.deps.Poller, m.deps.Seen
	return func() tea.Msg {
		if seen == nil {
			return actionDoneMsg{action: "reset"}
		}
		if err := seen.ResetSeenSet(ctx); err != nil {
			return actionDoneMsg{action: "reset", err: err}
		}
		p.Refresh(ctx)
		return actionDoneMsg{action: "reset"}
	}
}
