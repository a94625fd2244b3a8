// Package emit turns newly important threads into OS notifications and
// keeps the unread badge in step with the current important set.
package emit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/metrics"
	"github.com/nhle/ghnotify/internal/model"
)

const (
	// BadgeColor is the background used for the unread count.
	BadgeColor = "#2563eb"

	// AuthSuccessColor and AuthSuccessText flash on the badge after sign-in.
	AuthSuccessColor = "#28a745"
	AuthSuccessText  = "✓"

	// DefaultPriority is the display priority for every emitted notification.
	DefaultPriority = 2

	maxBadgeCount = 99
)

// Displayer shows one OS notification. Requests with the same key replace
// each other on hosts that support it.
type Displayer interface {
	Display(ctx context.Context, key, title, body string, priority int) error
}

// Badge is the unread counter next to the application icon. Calls are
// idempotent and last write wins.
type Badge interface {
	SetBadgeText(text string)
	SetBadgeColor(rgb string)
}

// DisplayError records a single notification that failed to render.
type DisplayError struct {
	Key string
	Err error
}

func (e *DisplayError) Error() string {
	return fmt.Sprintf("displaying notification %s: %v", e.Key, e.Err)
}

func (e *DisplayError) Unwrap() error {
	return e.Err
}

// Title returns the notification title for a thread, chosen by reason.
func Title(t model.Thread) string {
	repo := t.RepositoryFullName()
	switch t.Reason {
	case model.ReasonMention:
		return "Mentioned in " + repo
	case model.ReasonReviewRequested:
		return "Review requested in " + repo
	default:
		return "Activity on " + repo
	}
}

// BadgeText formats an important count: empty for zero, "99+" above 99,
// otherwise the decimal count.
func BadgeText(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > maxBadgeCount:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}

// Emitter performs the side effects of a poll cycle.
type Emitter struct {
	display Displayer
	badge   Badge
	log     *zap.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	badgeText string
	flash     *time.Timer
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Emitter) { e.log = l }
}

// WithMetrics records emissions and the badge count.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Emitter) { e.metrics = m }
}

// New creates an Emitter writing to d and b.
func New(d Displayer, b Badge, opts ...Option) *Emitter {
	e := &Emitter{
		display: d,
		badge:   b,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Emit requests display of a single thread, keyed by its id.
func (e *Emitter) Emit(ctx context.Context, t model.Thread) error {
	if err := e.display.Display(ctx, t.ID, Title(t), t.Subject.Title, DefaultPriority); err != nil {
		e.metrics.ObserveEmission(metrics.OutcomeFailed)
		return &DisplayError{Key: t.ID, Err: err}
	}
	e.metrics.ObserveEmission(metrics.OutcomeOK)
	return nil
}

// Notify displays an arbitrary notification that is not tied to a thread,
// such as the test notification.
func (e *Emitter) Notify(ctx context.Context, key, title, body string) error {
	if err := e.display.Display(ctx, key, title, body, DefaultPriority); err != nil {
		e.metrics.ObserveEmission(metrics.OutcomeFailed)
		return &DisplayError{Key: key, Err: err}
	}
	e.metrics.ObserveEmission(metrics.OutcomeOK)
	return nil
}

// EmitAll displays every thread. A failure is logged and collected; it
// never stops the remaining threads from being displayed.
func (e *Emitter) EmitAll(ctx context.Context, threads []model.Thread) []*DisplayError {
	var failed []*DisplayError
	for _, t := range threads {
		if err := e.Emit(ctx, t); err != nil {
			var de *DisplayError
			if !errors.As(err, &de) {
				de = &DisplayError{Key: t.ID, Err: err}
			}
			e.log.Warn("notification display failed",
				zap.String("thread_id", t.ID),
				zap.Error(de.Err),
			)
			failed = append(failed, de)
		}
	}
	return failed
}

// UpdateBadge sets the badge from the full current important set and
// returns the text written.
func (e *Emitter) UpdateBadge(important []model.Thread) string {
	text := BadgeText(len(important))

	e.mu.Lock()
	defer e.mu.Unlock()

	e.badgeText = text
	e.metrics.SetImportantUnread(len(important))
	if e.flash != nil {
		// The flash timer restores badgeText when it fires.
		return text
	}
	e.badge.SetBadgeText(text)
	e.badge.SetBadgeColor(BadgeColor)
	return text
}

// ClearBadge empties the badge, used when the user is not signed in.
func (e *Emitter) ClearBadge() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.badgeText = ""
	e.metrics.SetImportantUnread(0)
	if e.flash != nil {
		return
	}
	e.badge.SetBadgeText("")
}

// BadgeText returns the last count text written by UpdateBadge.
func (e *Emitter) BadgeText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.badgeText
}

// FlashAuthSuccess shows a check mark for d, then restores the count.
// Badge updates made during the flash are applied when it ends.
func (e *Emitter) FlashAuthSuccess(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.flash != nil {
		e.flash.Stop()
	}
	e.badge.SetBadgeText(AuthSuccessText)
	e.badge.SetBadgeColor(AuthSuccessColor)

	e.flash = time.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.flash = nil
		e.badge.SetBadgeText(e.badgeText)
		e.badge.SetBadgeColor(BadgeColor)
	})
}
