package source

import (
	"context"

	"github.com/nhle/ghnotify/internal/model"
)

// ResolveWebURL finds the page to open for a thread. The thread is
// re-read so the latest comment is current; the comment's page wins,
// then the subject's, then a rewrite of the subject API URL. Lookup
// failures fall through to the next candidate. The repository page is
// the last resort.
func ResolveWebURL(ctx context.Context, src Source, t model.Thread) string {
	subject := t.Subject
	if fresh, err := src.Thread(ctx, t.ID); err == nil && fresh != nil {
		subject = fresh.Subject
	}

	for _, apiURL := range []string{subject.LatestCommentURL, subject.URL} {
		if apiURL == "" {
			continue
		}
		if page, err := src.HTMLURL(ctx, apiURL); err == nil && page != "" {
			return page
		}
	}

	if page := model.WebURL(subject.URL); page != "" {
		return page
	}
	if t.Repository.FullName != "" {
		return "https://github.com/" + t.Repository.FullName
	}
	return "https://github.com/notifications"
}
