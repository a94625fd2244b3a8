package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/source"
)

// defaultPageSize matches what the notifications endpoint is polled with.
const defaultPageSize = 50

// Adapter implements source.Source for the GitHub notifications API.
type Adapter struct {
	client   *Client
	pageSize int
}

// NewAdapter creates a GitHub source adapter for the given token.
func NewAdapter(opts Options) (*Adapter, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Adapter{client: client, pageSize: pageSize}, nil
}

// NewFactory returns a source.Factory that builds adapters sharing every
// option except the token.
func NewFactory(opts Options) source.Factory {
	return func(token string) (source.Source, error) {
		o := opts
		o.Token = token
		return NewAdapter(o)
	}
}

// FetchAll retrieves every notification thread, read ones included, so
// read-vs-unread can be decided locally.
func (a *Adapter) FetchAll(ctx context.Context) ([]model.Thread, error) {
	q := url.Values{}
	q.Set("all", "true")
	q.Set("per_page", strconv.Itoa(a.pageSize))

	notifications, err := a.client.GetAllThreadPages(ctx, "notifications?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}

	threads := make([]model.Thread, 0, len(notifications))
	for _, n := range notifications {
		threads = append(threads, n.toThread())
	}
	return threads, nil
}

// Thread retrieves a single notification thread.
func (a *Adapter) Thread(ctx context.Context, threadID string) (*model.Thread, error) {
	var n Notification
	path := "notifications/threads/" + url.PathEscape(threadID)
	if err := a.client.Get(ctx, path, &n); err != nil {
		return nil, fmt.Errorf("fetching thread %s: %w", threadID, err)
	}
	t := n.toThread()
	return &t, nil
}

// MarkThreadRead marks one thread as read.
func (a *Adapter) MarkThreadRead(ctx context.Context, threadID string) error {
	path := "notifications/threads/" + url.PathEscape(threadID)
	if err := a.client.Patch(ctx, path, nil); err != nil {
		return fmt.Errorf("marking thread %s read: %w", threadID, err)
	}
	return nil
}

// MarkAllRead marks all notifications last updated before lastReadAt as read.
func (a *Adapter) MarkAllRead(ctx context.Context, lastReadAt time.Time) error {
	body := MarkReadRequest{
		LastReadAt: lastReadAt.UTC().Format(time.RFC3339),
		Read:       true,
	}
	if err := a.client.Put(ctx, "notifications", body); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// CurrentUser returns the authenticated user's profile.
func (a *Adapter) CurrentUser(ctx context.Context) (*model.Profile, error) {
	var u User
	if err := a.client.Get(ctx, "user", &u); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	return &model.Profile{
		GitHubID:  u.ID,
		Login:     u.Login,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}, nil
}

// HTMLURL returns the web page of the REST resource at apiURL, such as a
// comment or an issue.
func (a *Adapter) HTMLURL(ctx context.Context, apiURL string) (string, error) {
	var r Resource
	if err := a.client.Get(ctx, apiURL, &r); err != nil {
		return "", fmt.Errorf("resolving %s: %w", apiURL, err)
	}
	return r.HTMLURL, nil
}

// PullRequest fetches the pull request behind a notification subject.
func (a *Adapter) PullRequest(ctx context.Context, ref model.PullRef) (*model.PullRequest, error) {
	pr, err := a.client.PullRequest(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
	}
	return pr.toModel(), nil
}

// PullRequestReviews fetches every review of a pull request.
func (a *Adapter) PullRequestReviews(ctx context.Context, ref model.PullRef) ([]model.Review, error) {
	reviews, err := a.client.Reviews(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching reviews for %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
	}
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.toModel())
	}
	return out, nil
}
