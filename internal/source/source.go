package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/ghnotify/internal/model"
)

// AuthError indicates that the credential is missing, invalid or expired.
// It is returned by source clients when a 401 response is received.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// ErrNoCredential is wrapped in an AuthError when no token is configured.
var ErrNoCredential = &AuthError{Message: "not signed in"}

// RateLimitError indicates the remote API refused the request because the
// caller's quota is exhausted.
type RateLimitError struct {
	// RetryAfter is the server-suggested wait, zero when unknown.
	RetryAfter time.Duration

	// ResetAt is when the quota window resets, zero when unknown.
	ResetAt time.Time

	Message string
}

func (e *RateLimitError) Error() string {
	if !e.ResetAt.IsZero() {
		return fmt.Sprintf("rate limited until %s: %s", e.ResetAt.Format(time.RFC3339), e.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// NetworkError covers transport failures, timeouts and unexpected non-2xx
// responses.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRateLimitError reports whether err (or any error in its chain) is a
// RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsNetworkError reports whether err (or any error in its chain) is a
// NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Source is the contract for the remote notification API.
type Source interface {
	// FetchAll returns every notification thread, read ones included,
	// with pagination exhausted.
	FetchAll(ctx context.Context) ([]model.Thread, error)

	// Thread returns a single notification thread.
	Thread(ctx context.Context, threadID string) (*model.Thread, error)

	// MarkThreadRead marks one thread as read on the remote side.
	MarkThreadRead(ctx context.Context, threadID string) error

	// MarkAllRead marks every notification updated before lastReadAt as read.
	MarkAllRead(ctx context.Context, lastReadAt time.Time) error

	// CurrentUser returns the profile the credential belongs to.
	CurrentUser(ctx context.Context) (*model.Profile, error)

	// HTMLURL returns the web page of the REST resource at apiURL.
	HTMLURL(ctx context.Context, apiURL string) (string, error)

	// PullRequest and PullRequestReviews back the details view of
	// pull request notifications.
	PullRequest(ctx context.Context, ref model.PullRef) (*model.PullRequest, error)
	PullRequestReviews(ctx context.Context, ref model.PullRef) ([]model.Review, error)
}

// Factory builds a Source for a bearer token. The client uses it when a
// new credential arrives; the server builds one per request.
type Factory func(token string) (Source, error)
