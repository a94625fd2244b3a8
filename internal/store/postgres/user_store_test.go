package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/store"
)

var userCols = []string{"id", "github_id", "login", "avatar_url", "created_at", "updated_at"}

func TestUserStore_UpsertUser(t *testing.T) {
	mock := setupMockPool(t)
	s := NewUserStore(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (github_id) DO UPDATE")).
		WithArgs(pgxmock.AnyArg(), int64(583231), "octocat", "https://avatars.example/1").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow("user-1", int64(583231), "octocat", "https://avatars.example/1", now, now))

	u, err := s.UpsertUser(context.Background(), model.Profile{
		GitHubID:  583231,
		Login:     "octocat",
		AvatarURL: "https://avatars.example/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "octocat", u.Login)
}

func TestUserStore_GetUserByGitHubID_NotFound(t *testing.T) {
	mock := setupMockPool(t)
	s := NewUserStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE github_id = $1")).
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUserByGitHubID(context.Background(), 7)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMigrate(t *testing.T) {
	mock := setupMockPool(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
}
