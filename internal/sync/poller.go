// Package sync runs the poll cycle: fetch, classify, reconcile, emit and
// commit the seen set.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/classify"
	"github.com/nhle/ghnotify/internal/emit"
	"github.com/nhle/ghnotify/internal/logger"
	"github.com/nhle/ghnotify/internal/metrics"
	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/reconcile"
	"github.com/nhle/ghnotify/internal/source"
)

// State is the poller's position in its cycle.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

const (
	// DefaultInterval is the poll cadence when none is configured.
	DefaultInterval = 30 * time.Second

	// fetchTimeout is the maximum time allowed for a single fetch.
	fetchTimeout = 60 * time.Second

	authFlashDuration = 3 * time.Second

	testNotificationTitle = "GitHub Notifications"
	testNotificationBody  = "This is a test notification!"
)

// SeenStore is the persisted seen set.
type SeenStore interface {
	GetSeenSet(ctx context.Context) (model.SeenSet, error)
	CommitSeenSet(ctx context.Context, s model.SeenSet) error
}

// ProfileStore caches the signed-in user's profile.
type ProfileStore interface {
	SetProfile(ctx context.Context, p model.Profile) error
}

// Credentials resolves and stores the bearer token. An empty token means
// the user is not signed in.
type Credentials interface {
	Token() (string, error)
	Save(token string) error
}

// CycleResult is a tea.Msg describing one finished poll cycle.
type CycleResult struct {
	Outcome        string
	Err            error
	Threads        []model.Thread
	Important      []model.Thread
	NewlyImportant []model.Thread
	DisplayErrors  int
	BadgeText      string
	SignedIn       bool
	At             time.Time
}

// Config holds the poller's policy.
type Config struct {
	Interval time.Duration
	Reasons  classify.ReasonSet
}

// Deps are the poller's collaborators. Profiles and Metrics may be nil.
type Deps struct {
	Sources     source.Factory
	Credentials Credentials
	Seen        SeenStore
	Profiles    ProfileStore
	Emitter     *emit.Emitter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Poller drives poll cycles from a ticker, manual refreshes and sign-in.
// At most one cycle runs at a time; a trigger that arrives mid-cycle is
// dropped.
type Poller struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	state    atomic.Int32
	resultCh chan CycleResult

	mu      gosync.Mutex
	running bool
	stopCh  chan struct{}
	last    *CycleResult
}

// New creates a Poller.
func New(cfg Config, deps Deps) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Reasons == nil {
		cfg.Reasons = classify.DefaultReasons()
	}
	log := deps.Logger
	if log == nil {
		log = logger.Named("poller")
	}

	return &Poller{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		resultCh: make(chan CycleResult, 16),
	}
}

// State returns the current cycle state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

// LastResult returns the most recent cycle result, or nil before the
// first cycle finishes.
func (p *Poller) LastResult() *CycleResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Start runs one poll immediately and then one per interval until Stop.
// A stopped Poller may be started again.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	stop := make(chan struct{})
	p.stopCh = stop
	p.mu.Unlock()

	go p.loop(ctx, stop)
}

// Stop cancels the timer. A cycle already in flight is allowed to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

func (p *Poller) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Tick(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Refresh triggers a poll in the background. It is a no-op while a cycle
// is in flight.
func (p *Poller) Refresh(ctx context.Context) {
	if p.State() == StatePolling {
		return
	}
	go p.Tick(ctx)
}

// Source builds a source for the stored credential. It returns
// source.ErrNoCredential when the user is not signed in.
func (p *Poller) Source() (source.Source, error) {
	token, err := p.deps.Credentials.Token()
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}
	if token == "" {
		return nil, source.ErrNoCredential
	}
	return p.deps.Sources(token)
}

// Tick runs one poll cycle synchronously. It returns false without doing
// anything when another cycle is already running.
func (p *Poller) Tick(ctx context.Context) (CycleResult, bool) {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StatePolling)) {
		p.deps.Metrics.ObservePoll(metrics.OutcomeSkipped)
		return CycleResult{}, false
	}

	res := p.runCycle(ctx)
	if res.Err != nil {
		p.state.Store(int32(StateFailed))
		p.log.Warn("poll failed", zap.String("outcome", res.Outcome), zap.Error(res.Err))
	}
	p.state.Store(int32(StateIdle))

	p.deps.Metrics.ObservePoll(res.Outcome)

	p.mu.Lock()
	p.last = &res
	p.mu.Unlock()

	p.sendResult(res)
	return res, true
}

// runCycle performs fetch, reconcile, emit and commit. Every failure is
// returned in the result; nothing escapes.
func (p *Poller) runCycle(ctx context.Context) CycleResult {
	res := CycleResult{At: time.Now()}

	token, err := p.deps.Credentials.Token()
	if err != nil {
		res.Outcome, res.Err = metrics.OutcomeAuthError, fmt.Errorf("reading credential: %w", err)
		p.deps.Emitter.ClearBadge()
		return res
	}
	if token == "" {
		res.Outcome, res.Err = metrics.OutcomeAuthError, source.ErrNoCredential
		p.deps.Emitter.ClearBadge()
		return res
	}
	res.SignedIn = true

	src, err := p.deps.Sources(token)
	if err != nil {
		return p.fetchFailed(res, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	threads, err := src.FetchAll(fetchCtx)
	cancel()
	if err != nil {
		return p.fetchFailed(res, err)
	}

	seen, err := p.deps.Seen.GetSeenSet(ctx)
	if err != nil {
		res.Outcome, res.Err = metrics.OutcomeStorage, fmt.Errorf("reading seen set: %w", err)
		return res
	}

	r := reconcile.Reconcile(threads, seen, p.cfg.Reasons)
	res.Threads = reconcile.Dedupe(threads)
	res.Important = r.Important
	res.NewlyImportant = r.NewlyImportant

	res.DisplayErrors = len(p.deps.Emitter.EmitAll(ctx, r.NewlyImportant))
	res.BadgeText = p.deps.Emitter.UpdateBadge(r.Important)

	if err := p.deps.Seen.CommitSeenSet(ctx, r.NextSeen); err != nil {
		res.Outcome, res.Err = metrics.OutcomeStorage, fmt.Errorf("committing seen set: %w", err)
		return res
	}

	p.log.Debug("poll complete",
		zap.Int("threads", len(res.Threads)),
		zap.Int("important", len(r.Important)),
		zap.Int("new", len(r.NewlyImportant)),
	)
	res.Outcome = metrics.OutcomeOK
	return res
}

// fetchFailed classifies a fetch error. Only an auth failure touches the
// badge; transient failures leave all state as it was.
func (p *Poller) fetchFailed(res CycleResult, err error) CycleResult {
	res.Err = err
	switch {
	case source.IsAuthError(err):
		res.Outcome = metrics.OutcomeAuthError
		res.SignedIn = false
		p.deps.Emitter.ClearBadge()
	case source.IsRateLimitError(err):
		res.Outcome = metrics.OutcomeRateLimited
	default:
		res.Outcome = metrics.OutcomeNetwork
	}
	return res
}

// Handle dispatches an inbound message.
func (p *Poller) Handle(ctx context.Context, msg Message) error {
	switch m := msg.(type) {
	case AuthSucceeded:
		return p.handleAuth(ctx, m)

	case RefreshRequested:
		p.Tick(ctx)
		return nil

	case TestNotificationRequested:
		key := fmt.Sprintf("test-%d", time.Now().UnixNano())
		return p.deps.Emitter.Notify(ctx, key, testNotificationTitle, testNotificationBody)

	case MockMentionRequested:
		t := m.Thread
		t.Reason = model.ReasonMention
		return p.deps.Emitter.Emit(ctx, t)

	default:
		return fmt.Errorf("unhandled message %T", msg)
	}
}

func (p *Poller) handleAuth(ctx context.Context, m AuthSucceeded) error {
	if m.Token == "" {
		return fmt.Errorf("sign-in returned an empty token")
	}
	if err := p.deps.Credentials.Save(m.Token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	if m.User != nil && p.deps.Profiles != nil {
		if err := p.deps.Profiles.SetProfile(ctx, *m.User); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
	}

	p.log.Info("signed in", zap.String("token", logger.MaskToken(m.Token)))
	p.deps.Emitter.FlashAuthSuccess(authFlashDuration)
	p.Tick(ctx)
	return nil
}

// sendResult sends a CycleResult on the result channel without blocking.
func (p *Poller) sendResult(res CycleResult) {
	select {
	case p.resultCh <- res:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// WaitForResult returns a tea.Cmd that waits for the next cycle result.
// Call it again after handling each CycleResult to keep listening.
func (p *Poller) WaitForResult() tea.Cmd {
	return func() tea.Msg {
		res, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return res
	}
}

// Results exposes cycle results to non-interactive consumers.
func (p *Poller) Results() <-chan CycleResult {
	return p.resultCh
}
