package model

import "time"

// PersistedThread is the server-side durable mirror of a Thread, one row
// per (UserID, GitHubThreadID).
type PersistedThread struct {
	// ID is the locally generated primary key.
	ID string `json:"id" db:"id"`

	UserID         string     `json:"user_id" db:"user_id"`
	GitHubThreadID string     `json:"github_thread_id" db:"github_thread_id"`
	Repository     string     `json:"repository" db:"repository"`
	Subject        Subject    `json:"subject" db:"-"`
	Reason         string     `json:"reason" db:"reason"`
	Unread         bool       `json:"unread" db:"unread"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty" db:"last_read_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// ToThread converts the stored row back into the wire representation.
func (p PersistedThread) ToThread() Thread {
	return Thread{
		ID:         p.GitHubThreadID,
		Repository: Repository{FullName: p.Repository},
		Subject:    p.Subject,
		Reason:     p.Reason,
		Unread:     p.Unread,
		UpdatedAt:  p.UpdatedAt,
		LastReadAt: p.LastReadAt,
	}
}
