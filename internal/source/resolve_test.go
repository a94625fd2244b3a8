package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/ghnotify/internal/model"
)

type pageSource struct {
	fresh *model.Thread
	pages map[string]string
}

func (s *pageSource) FetchAll(context.Context) ([]model.Thread, error) { return nil, nil }
func (s *pageSource) Thread(context.Context, string) (*model.Thread, error) {
	if s.fresh == nil {
		return nil, &NetworkError{Op: "GET thread"}
	}
	return s.fresh, nil
}
func (s *pageSource) MarkThreadRead(context.Context, string) error        { return nil }
func (s *pageSource) MarkAllRead(context.Context, time.Time) error        { return nil }
func (s *pageSource) CurrentUser(context.Context) (*model.Profile, error) { return nil, nil }
func (s *pageSource) HTMLURL(_ context.Context, apiURL string) (string, error) {
	if page, ok := s.pages[apiURL]; ok {
		return page, nil
	}
	return "", &NetworkError{Op: "GET " + apiURL, StatusCode: 404}
}
func (s *pageSource) PullRequest(context.Context, model.PullRef) (*model.PullRequest, error) {
	return nil, nil
}
func (s *pageSource) PullRequestReviews(context.Context, model.PullRef) ([]model.Review, error) {
	return nil, nil
}

const (
	prAPI      = "https://api.github.com/repos/acme/web/pulls/7"
	commentAPI = "https://api.github.com/repos/acme/web/issues/comments/99"
)

func prThread() model.Thread {
	return model.Thread{
		ID:         "1",
		Repository: model.Repository{FullName: "acme/web"},
		Subject:    model.Subject{Title: "Fix login", URL: prAPI},
	}
}

func TestResolveWebURL_PrefersLatestComment(t *testing.T) {
	fresh := prThread()
	fresh.Subject.LatestCommentURL = commentAPI
	src := &pageSource{
		fresh: &fresh,
		pages: map[string]string{
			commentAPI: "https://github.com/acme/web/pull/7#issuecomment-99",
			prAPI:      "https://github.com/acme/web/pull/7",
		},
	}

	got := ResolveWebURL(context.Background(), src, prThread())
	assert.Equal(t, "https://github.com/acme/web/pull/7#issuecomment-99", got)
}

func TestResolveWebURL_SubjectWhenCommentFails(t *testing.T) {
	th := prThread()
	th.Subject.LatestCommentURL = commentAPI
	src := &pageSource{pages: map[string]string{prAPI: "https://github.com/acme/web/pull/7"}}

	assert.Equal(t, "https://github.com/acme/web/pull/7", ResolveWebURL(context.Background(), src, th))
}

func TestResolveWebURL_RewritesWhenLookupsFail(t *testing.T) {
	src := &pageSource{}
	assert.Equal(t, "https://github.com/acme/web/pull/7", ResolveWebURL(context.Background(), src, prThread()))
}

func TestResolveWebURL_RepositoryWithoutSubject(t *testing.T) {
	th := prThread()
	th.Subject.URL = ""
	assert.Equal(t, "https://github.com/acme/web", ResolveWebURL(context.Background(), &pageSource{}, th))
}
