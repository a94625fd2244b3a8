package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db Pool
}

// NewUserStore creates a new UserStore instance.
func NewUserStore(db Pool) *UserStore {
	return &UserStore{db: db}
}

var _ store.UserStore = (*UserStore)(nil)

// UpsertUser creates or refreshes the account for a GitHub profile and
// returns the stored row.
func (s *UserStore) UpsertUser(ctx context.Context, p model.Profile) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (id, github_id, login, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (github_id) DO UPDATE SET
			login = EXCLUDED.login,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now()
		RETURNING id, github_id, login, avatar_url, created_at, updated_at`,
		uuid.New().String(), p.GitHubID, p.Login, p.AvatarURL,
	).Scan(&u.ID, &u.GitHubID, &u.Login, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, wrap("upserting user", err)
	}
	return &u, nil
}

// GetUserByGitHubID looks up an account by GitHub user id.
func (s *UserStore) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(ctx, `
		SELECT id, github_id, login, avatar_url, created_at, updated_at
		FROM users WHERE github_id = $1`, githubID,
	).Scan(&u.ID, &u.GitHubID, &u.Login, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrap("getting user", err)
	}
	return &u, nil
}
