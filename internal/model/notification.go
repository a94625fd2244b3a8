package model

import "time"

// SubjectType identifies what a notification thread is about.
type SubjectType string

const (
	SubjectIssue         SubjectType = "Issue"
	SubjectPullRequest   SubjectType = "PullRequest"
	SubjectCommit        SubjectType = "Commit"
	SubjectRelease       SubjectType = "Release"
	SubjectVulnerability SubjectType = "Vulnerability"
	SubjectDiscussion    SubjectType = "Discussion"
)

// Well-known notification reasons. GitHub may send others; they are kept
// verbatim.
const (
	ReasonMention         = "mention"
	ReasonReviewRequested = "review_requested"
	ReasonAuthor          = "author"
	ReasonAssign          = "assign"
	ReasonCIActivity      = "ci_activity"
	ReasonComment         = "comment"
	ReasonSubscribed      = "subscribed"
	ReasonTeamMention     = "team_mention"
	ReasonStateChange     = "state_change"
)

// Repository is the slice of a GitHub repository carried on a thread.
type Repository struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name"`
}

// Subject describes the issue, pull request, release, etc. a thread
// points at.
type Subject struct {
	Title            string      `json:"title"`
	Type             SubjectType `json:"type"`
	URL              string      `json:"url,omitempty"`
	LatestCommentURL string      `json:"latest_comment_url,omitempty"`
}

// Thread is a single GitHub notification thread as returned by one fetch.
// Values are immutable per fetch.
type Thread struct {
	// ID is the stable remote thread identifier, unique per user.
	ID string `json:"id"`

	Repository Repository `json:"repository"`
	Subject    Subject    `json:"subject"`

	// Reason is GitHub's classification of why the user was notified.
	Reason string `json:"reason"`

	Unread     bool       `json:"unread"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`

	// URL is the API URL of the thread itself.
	URL string `json:"url,omitempty"`
}

// RepositoryFullName returns the owner/name of the thread's repository.
func (t Thread) RepositoryFullName() string {
	return t.Repository.FullName
}
