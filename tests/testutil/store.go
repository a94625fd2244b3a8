package testutil

import (
	"context"
	"testing"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestUser creates a user row for thread store tests and returns its id.
func NewTestUser(t *testing.T, s *store.SQLiteStore, githubID int64, login string) string {
	t.Helper()

	u, err := s.UpsertUser(context.Background(), model.Profile{GitHubID: githubID, Login: login})
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return u.ID
}
