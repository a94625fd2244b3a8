package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/store"
)

var threadCols = []string{
	"id", "user_id", "github_thread_id", "repository", "subject", "reason",
	"unread", "last_read_at", "updated_at", "created_at",
}

func setupMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func testThread(id string, updated time.Time) model.Thread {
	return model.Thread{
		ID:         id,
		Repository: model.Repository{FullName: "acme/web"},
		Subject:    model.Subject{Title: "Fix login", Type: model.SubjectPullRequest},
		Reason:     model.ReasonMention,
		Unread:     true,
		UpdatedAt:  updated,
	}
}

func TestThreadStore_UpsertThread(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id, github_thread_id) DO UPDATE")).
		WithArgs(pgxmock.AnyArg(), "user-1", "100", "acme/web", pgxmock.AnyArg(),
			model.ReasonMention, true, pgxmock.AnyArg(), updated).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertThread(context.Background(), "user-1", testThread("100", updated)))
}

func TestThreadStore_UpsertThread_StorageError(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_threads")).
		WillReturnError(errors.New("connection reset"))

	err := s.UpsertThread(context.Background(), "user-1", testThread("100", time.Now()))
	require.Error(t, err)
	assert.True(t, store.IsStorageError(err))
}

func TestThreadStore_UpsertThreads_Transaction(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_threads")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_threads")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.UpsertThreads(context.Background(), "user-1", []model.Thread{
		testThread("1", now), testThread("2", now),
	})
	require.NoError(t, err)
}

func TestThreadStore_UpsertThreads_RollsBack(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_threads")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_threads")).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := s.UpsertThreads(context.Background(), "user-1", []model.Thread{
		testThread("1", now), testThread("2", now),
	})
	require.Error(t, err)
	assert.True(t, store.IsStorageError(err))
}

func TestThreadStore_MarkAllThreadsRead(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notification_threads SET unread = false")).
		WithArgs(at, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := s.MarkAllThreadsRead(context.Background(), "user-1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestThreadStore_MarkThreadRead(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notification_threads SET unread = false")).
		WithArgs(at, "user-1", "100").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.MarkThreadRead(context.Background(), "user-1", "100", at))
}

func TestThreadStore_GetThread(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	readAt := updated.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_threads")).
		WithArgs("user-1", "100").
		WillReturnRows(pgxmock.NewRows(threadCols).AddRow(
			"row-1", "user-1", "100", "acme/web",
			[]byte(`{"title":"Fix login","type":"PullRequest"}`), "mention",
			false, pgtype.Timestamptz{Time: readAt, Valid: true}, updated, updated,
		))

	p, err := s.GetThread(context.Background(), "user-1", "100")
	require.NoError(t, err)
	assert.Equal(t, "row-1", p.ID)
	assert.Equal(t, "Fix login", p.Subject.Title)
	assert.Equal(t, model.SubjectPullRequest, p.Subject.Type)
	assert.False(t, p.Unread)
	require.NotNil(t, p.LastReadAt)
	assert.True(t, readAt.Equal(*p.LastReadAt))
}

func TestThreadStore_GetThread_NotFound(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_threads")).
		WithArgs("user-1", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetThread(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestThreadStore_ListThreads_Filter(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND unread AND repository = $2 ORDER BY updated_at DESC")).
		WithArgs("user-1", "acme/web").
		WillReturnRows(pgxmock.NewRows(threadCols).
			AddRow("row-1", "user-1", "1", "acme/web", []byte(`{}`), "mention",
				true, pgtype.Timestamptz{}, updated, updated).
			AddRow("row-2", "user-1", "2", "acme/web", []byte(`{}`), "author",
				true, pgtype.Timestamptz{}, updated, updated))

	threads, err := s.ListThreads(context.Background(), "user-1", store.ThreadFilter{
		UnreadOnly: true,
		Repository: "acme/web",
	})
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Nil(t, threads[0].LastReadAt)
	assert.Equal(t, "author", threads[1].Reason)
}

func TestThreadStore_CountUnread(t *testing.T) {
	mock := setupMockPool(t)
	s := NewThreadStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notification_threads")).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))

	n, err := s.CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
