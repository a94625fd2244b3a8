package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/ghnotify/internal/model"
)

// UpsertUser creates the account for a GitHub profile or refreshes its
// login and avatar. The returned row carries the stable local id.
func (s *SQLiteStore) UpsertUser(ctx context.Context, p model.Profile) (*model.User, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, github_id, login, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(github_id) DO UPDATE SET
			login = excluded.login,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		uuid.New().String(), p.GitHubID, p.Login, p.AvatarURL, now, now,
	)
	if err != nil {
		return nil, storageErr("upserting user", err)
	}

	return s.GetUserByGitHubID(ctx, p.GitHubID)
}

// GetUserByGitHubID looks up an account by GitHub user id.
func (s *SQLiteStore) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, github_id, login, avatar_url, created_at, updated_at
		FROM users WHERE github_id = ?`, githubID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("getting user", err)
	}
	return &u, nil
}
