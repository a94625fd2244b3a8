package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/source"
)

func newTestAdapter(t *testing.T, h http.Handler) *Adapter {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	a, err := NewAdapter(Options{
		Token:   "test-token",
		BaseURL: srv.URL + "/",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return a
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewAdapter_RequiresToken(t *testing.T) {
	_, err := NewAdapter(Options{})
	assert.True(t, source.IsAuthError(err))
}

func TestFetchAll_FollowsLinkHeader(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("all"))

		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, []map[string]interface{}{
				{
					"id": "2", "reason": "ci_activity", "unread": true,
					"updated_at": "2024-05-01T10:00:00Z",
					"repository": map[string]interface{}{"full_name": "acme/api"},
					"subject":    map[string]interface{}{"title": "CI failed", "type": "CheckSuite", "url": nil},
				},
			})
			return
		}

		w.Header().Set("Link", `<`+srvURL+`/notifications?all=true&page=2>; rel="next", <`+srvURL+`/notifications?all=true&page=2>; rel="last"`)
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{
				"id": "1", "reason": "mention", "unread": true,
				"updated_at":   "2024-05-01T09:00:00Z",
				"last_read_at": nil,
				"repository":   map[string]interface{}{"full_name": "acme/web"},
				"subject": map[string]interface{}{
					"title": "Fix login", "type": "PullRequest",
					"url":                "https://api.github.com/repos/acme/web/pulls/7",
					"latest_comment_url": nil,
				},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	a, err := NewAdapter(Options{Token: "test-token", BaseURL: srv.URL})
	require.NoError(t, err)

	threads, err := a.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, "1", threads[0].ID)
	assert.Equal(t, "acme/web", threads[0].RepositoryFullName())
	assert.Equal(t, model.SubjectPullRequest, threads[0].Subject.Type)
	assert.Equal(t, "https://api.github.com/repos/acme/web/pulls/7", threads[0].Subject.URL)
	assert.Nil(t, threads[0].LastReadAt)

	assert.Equal(t, "2", threads[1].ID)
	assert.Equal(t, "", threads[1].Subject.URL)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), threads[1].UpdatedAt.UTC())
}

func TestFetchAll_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		check   func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, nil, source.IsAuthError},
		{"quota exhausted", http.StatusForbidden, map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "1714557600",
		}, source.IsRateLimitError},
		{"long retry-after", http.StatusTooManyRequests, map[string]string{
			"Retry-After": "3600",
		}, source.IsRateLimitError},
		{"server error", http.StatusBadGateway, nil, source.IsNetworkError},
		{"plain forbidden", http.StatusForbidden, nil, source.IsNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			}))

			_, err := a.FetchAll(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}
}

func TestFetchAll_RetriesShortRateLimit(t *testing.T) {
	var calls int32
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "slow down"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]interface{}{})
	}))

	threads, err := a.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, threads)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchAll_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a, err := NewAdapter(Options{Token: "t", BaseURL: base})
	require.NoError(t, err)

	_, err = a.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsNetworkError(err))
}

func TestMarkThreadRead(t *testing.T) {
	var gotMethod, gotPath string
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusResetContent)
	}))

	require.NoError(t, a.MarkThreadRead(context.Background(), "42"))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/notifications/threads/42", gotPath)
}

func TestMarkAllRead(t *testing.T) {
	var body MarkReadRequest
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "queued"})
	}))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.MarkAllRead(context.Background(), at))
	assert.Equal(t, "2024-05-01T12:00:00Z", body.LastReadAt)
	assert.True(t, body.Read)
}

func TestCurrentUser(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id": 583231, "login": "octocat", "name": "The Octocat",
		})
	}))

	p, err := a.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(583231), p.GitHubID)
	assert.Equal(t, "octocat", p.Login)
}

func TestRetryAfterDuration(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, retryAfterDuration(h, 0))

	assert.Equal(t, 1*time.Second, retryAfterDuration(http.Header{}, 0))
	assert.Equal(t, 4*time.Second, retryAfterDuration(http.Header{}, 2))
	assert.Equal(t, 30*time.Second, retryAfterDuration(http.Header{}, 10))
}

func TestRestBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.github.com/", restBaseURL("github.com"))
	assert.Equal(t, "https://ghe.corp.example/api/v3/", restBaseURL("ghe.corp.example"))
}

func TestFetchAll_UsesConfiguredPageSize(t *testing.T) {
	var perPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perPage = r.URL.Query().Get("per_page")
		writeJSON(w, http.StatusOK, []map[string]interface{}{})
	}))
	t.Cleanup(srv.Close)

	a, err := NewAdapter(Options{Token: "t", BaseURL: srv.URL, PageSize: 20})
	require.NoError(t, err)
	_, err = a.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20", perPage)

	a, err = NewAdapter(Options{Token: "t", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = a.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "50", perPage)
}

func TestPullRequest(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/web/pulls/7", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"number": 7, "title": "Fix login", "state": "open", "draft": false,
			"user":     map[string]interface{}{"login": "octocat"},
			"html_url": "https://github.com/acme/web/pull/7",
			"head":     map[string]interface{}{"ref": "fix-login"},
			"base":     map[string]interface{}{"ref": "main"},
			"additions": 12, "deletions": 3, "changed_files": 2,
		})
	}))

	pr, err := a.PullRequest(context.Background(), model.PullRef{Owner: "acme", Repo: "web", Number: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, pr.Number)
	assert.Equal(t, "octocat", pr.Author)
	assert.Equal(t, "fix-login", pr.HeadRef)
	assert.Equal(t, "main", pr.BaseRef)
	assert.Equal(t, 2, pr.ChangedFiles)
}

func TestPullRequest_NotFoundIsNetworkError(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	}))

	_, err := a.PullRequest(context.Background(), model.PullRef{Owner: "acme", Repo: "web", Number: 7})
	require.Error(t, err)
	assert.True(t, source.IsNetworkError(err))
}

func TestPullRequestReviews_FollowsPages(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/web/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, []map[string]interface{}{
				{"id": 2, "state": "APPROVED", "user": map[string]interface{}{"login": "hubot"},
					"submitted_at": "2024-05-02T10:00:00Z"},
			})
			return
		}
		w.Header().Set("Link", `<`+srvURL+`/repos/acme/web/pulls/7/reviews?page=2>; rel="next"`)
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": 1, "state": "COMMENTED", "body": "nit", "user": map[string]interface{}{"login": "octocat"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	a, err := NewAdapter(Options{Token: "t", BaseURL: srv.URL})
	require.NoError(t, err)

	reviews, err := a.PullRequestReviews(context.Background(), model.PullRef{Owner: "acme", Repo: "web", Number: 7})
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "octocat", reviews[0].Author)
	assert.Nil(t, reviews[0].SubmittedAt)
	assert.Equal(t, "APPROVED", reviews[1].State)
	require.NotNil(t, reviews[1].SubmittedAt)
}

func TestHTMLURL_AbsoluteAPIURL(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/web/issues/comments/99", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{
			"html_url": "https://github.com/acme/web/pull/7#issuecomment-99",
		})
	}))
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	a, err := NewAdapter(Options{Token: "t", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := a.HTMLURL(context.Background(), srvURL+"/repos/acme/web/issues/comments/99")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/web/pull/7#issuecomment-99", got)
}
