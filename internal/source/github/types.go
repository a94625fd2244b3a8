package github

import (
	"time"

	"github.com/nhle/ghnotify/internal/model"
)

// Notification is a thread as returned by GET /notifications.
type Notification struct {
	ID         string     `json:"id"`
	Repository Repository `json:"repository"`
	Subject    Subject    `json:"subject"`
	Reason     string     `json:"reason"`
	Unread     bool       `json:"unread"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastReadAt *time.Time `json:"last_read_at"`
	URL        string     `json:"url"`
}

// Repository is the subset of the repository object the source reads.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    Owner  `json:"owner"`
}

// Owner is the repository owner.
type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Subject is the notification subject; both URLs are nullable.
type Subject struct {
	Title            string  `json:"title"`
	URL              *string `json:"url"`
	LatestCommentURL *string `json:"latest_comment_url"`
	Type             string  `json:"type"`
}

// User is the authenticated user returned by GET /user.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Resource is any REST object that links to its web page.
type Resource struct {
	HTMLURL string `json:"html_url"`
}

// Ref is a branch reference on a pull request.
type Ref struct {
	Ref string `json:"ref"`
}

// PullRequest is the subset of GET /repos/{o}/{r}/pulls/{n} the details
// view shows.
type PullRequest struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	Draft        bool       `json:"draft"`
	Merged       bool       `json:"merged"`
	User         User       `json:"user"`
	HTMLURL      string     `json:"html_url"`
	Head         Ref        `json:"head"`
	Base         Ref        `json:"base"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changed_files"`
	MergedAt     *time.Time `json:"merged_at"`
}

func (pr PullRequest) toModel() *model.PullRequest {
	return &model.PullRequest{
		Number:       pr.Number,
		Title:        pr.Title,
		State:        pr.State,
		Draft:        pr.Draft,
		Merged:       pr.Merged,
		Author:       pr.User.Login,
		HTMLURL:      pr.HTMLURL,
		HeadRef:      pr.Head.Ref,
		BaseRef:      pr.Base.Ref,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
		MergedAt:     pr.MergedAt,
	}
}

// Review is one entry of GET /repos/{o}/{r}/pulls/{n}/reviews.
type Review struct {
	ID          int64      `json:"id"`
	User        User       `json:"user"`
	State       string     `json:"state"`
	Body        string     `json:"body"`
	HTMLURL     string     `json:"html_url"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

func (r Review) toModel() model.Review {
	return model.Review{
		ID:          r.ID,
		Author:      r.User.Login,
		State:       r.State,
		Body:        r.Body,
		HTMLURL:     r.HTMLURL,
		SubmittedAt: r.SubmittedAt,
	}
}

// MarkReadRequest is the body of PUT /notifications.
type MarkReadRequest struct {
	LastReadAt string `json:"last_read_at"`
	Read       bool   `json:"read"`
}

// toThread converts the API shape to the domain model.
func (n Notification) toThread() model.Thread {
	return model.Thread{
		ID: n.ID,
		Repository: model.Repository{
			ID:       n.Repository.ID,
			Name:     n.Repository.Name,
			FullName: n.Repository.FullName,
		},
		Subject: model.Subject{
			Title:            n.Subject.Title,
			Type:             model.SubjectType(n.Subject.Type),
			URL:              deref(n.Subject.URL),
			LatestCommentURL: deref(n.Subject.LatestCommentURL),
		},
		Reason:     n.Reason,
		Unread:     n.Unread,
		UpdatedAt:  n.UpdatedAt,
		LastReadAt: n.LastReadAt,
		URL:        n.URL,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
