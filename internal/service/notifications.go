// Package service holds the server-side notification operations: syncing
// a user's threads into storage and relaying mark-read to GitHub.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/events"
	"github.com/nhle/ghnotify/internal/metrics"
	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/reconcile"
	"github.com/nhle/ghnotify/internal/source"
	"github.com/nhle/ghnotify/internal/store"
)

// SyncSummary is the payload of a sync event.
type SyncSummary struct {
	Synced int `json:"synced"`
	Unread int `json:"unread"`
}

// ReadSummary is the payload of a read event. ThreadID is empty for
// mark-all-read.
type ReadSummary struct {
	ThreadID string `json:"thread_id,omitempty"`
	Updated  int64  `json:"updated"`
}

// NotificationService mirrors GitHub notifications per user.
type NotificationService struct {
	threads store.ThreadStore
	broker  events.Broker
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewNotificationService creates a NotificationService. broker and m may
// be nil.
func NewNotificationService(
	threads store.ThreadStore,
	broker events.Broker,
	m *metrics.Metrics,
	log *zap.Logger,
) *NotificationService {
	return &NotificationService{
		threads: threads,
		broker:  broker,
		metrics: m,
		log:     log.Named("NotificationService"),
		now:     time.Now,
	}
}

// Sync fetches every thread from src, upserts them for userID and returns
// the stored set. A fetch failure writes nothing.
func (s *NotificationService) Sync(
	ctx context.Context,
	src source.Source,
	userID string,
) ([]model.PersistedThread, error) {
	threads, err := src.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	threads = reconcile.Dedupe(threads)

	if err := s.threads.UpsertThreads(ctx, userID, threads); err != nil {
		s.metrics.ObserveUpserts(metrics.OutcomeStorage, len(threads))
		return nil, fmt.Errorf("syncing notifications: %w", err)
	}
	s.metrics.ObserveUpserts(metrics.OutcomeOK, len(threads))

	stored, err := s.threads.ListThreads(ctx, userID, store.ThreadFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	unread := 0
	for _, t := range stored {
		if t.Unread {
			unread++
		}
	}
	s.publish(ctx, userID, events.TypeSync, SyncSummary{Synced: len(threads), Unread: unread})

	return stored, nil
}

// MarkRead marks one thread read on GitHub and, only once that succeeds,
// in storage.
func (s *NotificationService) MarkRead(
	ctx context.Context,
	src source.Source,
	userID string,
	threadID string,
) error {
	if err := src.MarkThreadRead(ctx, threadID); err != nil {
		return err
	}

	if err := s.threads.MarkThreadRead(ctx, userID, threadID, s.now()); err != nil {
		return fmt.Errorf("marking notification %s read: %w", threadID, err)
	}

	s.publish(ctx, userID, events.TypeRead, ReadSummary{ThreadID: threadID, Updated: 1})
	return nil
}

// MarkAllRead marks everything read on GitHub and then in storage. It
// returns the number of stored threads changed.
func (s *NotificationService) MarkAllRead(
	ctx context.Context,
	src source.Source,
	userID string,
) (int64, error) {
	at := s.now()
	if err := src.MarkAllRead(ctx, at); err != nil {
		return 0, err
	}

	n, err := s.threads.MarkAllThreadsRead(ctx, userID, at)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}

	s.publish(ctx, userID, events.TypeRead, ReadSummary{Updated: n})
	return n, nil
}

// ThreadDetails is a stored thread plus live pull request context when
// the subject is a pull request.
type ThreadDetails struct {
	model.PersistedThread
	PullRequest *model.PullRequest `json:"pull_request,omitempty"`
	Reviews     []model.Review     `json:"reviews,omitempty"`
}

// Details returns one stored thread. Pull request subjects are enriched
// with the pull request and its reviews from src.
func (s *NotificationService) Details(
	ctx context.Context,
	src source.Source,
	userID string,
	threadID string,
) (*ThreadDetails, error) {
	t, err := s.threads.GetThread(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}

	d := &ThreadDetails{PersistedThread: *t}
	if t.Subject.Type != model.SubjectPullRequest {
		return d, nil
	}
	ref, ok := model.ParsePullURL(t.Subject.URL)
	if !ok {
		return d, nil
	}

	pr, err := src.PullRequest(ctx, ref)
	if err != nil {
		return nil, err
	}
	reviews, err := src.PullRequestReviews(ctx, ref)
	if err != nil {
		return nil, err
	}
	d.PullRequest, d.Reviews = pr, reviews
	return d, nil
}

// CountUnread returns the user's stored unread count.
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.threads.CountUnread(ctx, userID)
}

// publish sends a best-effort event to the user's stream.
func (s *NotificationService) publish(ctx context.Context, userID, typ string, payload interface{}) {
	if s.broker == nil {
		return
	}

	e, err := events.NewEvent(typ, payload)
	if err != nil {
		s.log.Warn("building event", zap.String("type", typ), zap.Error(err))
		return
	}
	if err := s.broker.Publish(ctx, events.UserTopic(userID), e); err != nil {
		s.log.Warn("publishing event", zap.String("type", typ), zap.Error(err))
	}
}
