package model

import "time"

// Profile is the authenticated GitHub user as cached by the client.
type Profile struct {
	GitHubID  int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// User is the server-side account row, keyed by GitHub id.
type User struct {
	ID        string    `json:"id" db:"id"`
	GitHubID  int64     `json:"github_id" db:"github_id"`
	Login     string    `json:"login" db:"login"`
	AvatarURL string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
