package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PullRequest is the subset of a pull request shown with notification
// details.
type PullRequest struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	Draft        bool       `json:"draft"`
	Merged       bool       `json:"merged"`
	Author       string     `json:"author"`
	HTMLURL      string     `json:"html_url"`
	HeadRef      string     `json:"head_ref"`
	BaseRef      string     `json:"base_ref"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changed_files"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
}

// Review is one submitted pull request review.
type Review struct {
	ID          int64      `json:"id"`
	Author      string     `json:"author"`
	State       string     `json:"state"`
	Body        string     `json:"body"`
	HTMLURL     string     `json:"html_url"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// PullRef identifies a pull request by repository and number.
type PullRef struct {
	Owner  string
	Repo   string
	Number int
}

// ParsePullURL extracts the pull request reference from a subject API URL
// such as https://api.github.com/repos/o/r/pulls/7. Enterprise roots
// (/api/v3/repos/...) are accepted too.
func ParsePullURL(raw string) (PullRef, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return PullRef{}, false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p != "repos" || i+4 >= len(parts) {
			continue
		}
		if parts[i+3] != "pulls" {
			return PullRef{}, false
		}
		n, err := strconv.Atoi(parts[i+4])
		if err != nil || n <= 0 {
			return PullRef{}, false
		}
		return PullRef{Owner: parts[i+1], Repo: parts[i+2], Number: n}, true
	}
	return PullRef{}, false
}

// WebURL rewrites a REST URL into its github.com page, the way links are
// built when the API cannot be asked for html_url.
func WebURL(apiURL string) string {
	if apiURL == "" {
		return ""
	}
	out := strings.Replace(apiURL, "api.github.com/repos", "github.com", 1)
	return strings.Replace(out, "/pulls/", "/pull/", 1)
}
