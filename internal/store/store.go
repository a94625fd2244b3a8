package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/ghnotify/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// StorageError wraps a failed database operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err (or any error in its chain) is a
// StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ThreadFilter controls filtering and pagination for thread queries.
type ThreadFilter struct {
	UnreadOnly bool
	Repository string
	Reason     string
	Limit      int
	Offset     int
}

// ThreadStore is the server-side mirror of each user's notification
// threads. Rows are keyed by (userID, GitHub thread id).
type ThreadStore interface {
	// UpsertThread inserts the thread or, when the row already exists,
	// updates only unread, last_read_at and updated_at.
	UpsertThread(ctx context.Context, userID string, t model.Thread) error

	// UpsertThreads upserts a batch in one transaction.
	UpsertThreads(ctx context.Context, userID string, threads []model.Thread) error

	// MarkThreadRead mirrors a confirmed remote mark-read.
	MarkThreadRead(ctx context.Context, userID, threadID string, at time.Time) error

	// MarkAllThreadsRead mirrors a confirmed remote mark-all-read and
	// returns the number of rows changed.
	MarkAllThreadsRead(ctx context.Context, userID string, at time.Time) (int64, error)

	GetThread(ctx context.Context, userID, threadID string) (*model.PersistedThread, error)
	ListThreads(ctx context.Context, userID string, filter ThreadFilter) ([]model.PersistedThread, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// UserStore persists server-side accounts.
type UserStore interface {
	// UpsertUser creates or refreshes the account for a GitHub profile.
	UpsertUser(ctx context.Context, p model.Profile) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
}

// StateStore is the client's durable local state.
type StateStore interface {
	// GetSeenSet returns the ids committed by the last successful poll, or
	// an empty set on first run.
	GetSeenSet(ctx context.Context) (model.SeenSet, error)

	// CommitSeenSet replaces the stored set wholesale.
	CommitSeenSet(ctx context.Context, s model.SeenSet) error

	// ResetSeenSet forgets every seen id so the next poll emits again.
	ResetSeenSet(ctx context.Context) error

	// GetProfile returns the cached user profile or ErrNotFound.
	GetProfile(ctx context.Context) (*model.Profile, error)
	SetProfile(ctx context.Context, p model.Profile) error
	ClearProfile(ctx context.Context) error
}
