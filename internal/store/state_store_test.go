package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/store"
	"github.com/nhle/ghnotify/tests/testutil"
)

func TestSeenSet_EmptyOnFirstRun(t *testing.T) {
	s := testutil.NewTestStore(t)

	seen, err := s.GetSeenSet(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, seen)
	assert.Len(t, seen, 0)
}

func TestSeenSet_CommitReplacesWholesale(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CommitSeenSet(ctx, model.NewSeenSet("1", "2")))
	require.NoError(t, s.CommitSeenSet(ctx, model.NewSeenSet("3", "2")))

	seen, err := s.GetSeenSet(ctx)
	require.NoError(t, err)
	assert.True(t, seen.Equal(model.NewSeenSet("2", "3")))

	raw, err := s.RawSeenSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, `["2","3"]`, raw)
}

func TestSeenSet_Reset(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CommitSeenSet(ctx, model.NewSeenSet("1")))
	require.NoError(t, s.ResetSeenSet(ctx))

	seen, err := s.GetSeenSet(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, 0)

	raw, err := s.RawSeenSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", raw)
}

func TestProfile_RoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	want := model.Profile{GitHubID: 583231, Login: "octocat", AvatarURL: "https://avatars.example/u/1"}
	require.NoError(t, s.SetProfile(ctx, want))

	got, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	require.NoError(t, s.ClearProfile(ctx))
	_, err = s.GetProfile(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
