package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/store"
)

// ThreadStore implements store.ThreadStore using PostgreSQL.
type ThreadStore struct {
	db Pool
}

// NewThreadStore creates a new ThreadStore instance.
func NewThreadStore(db Pool) *ThreadStore {
	return &ThreadStore{db: db}
}

var _ store.ThreadStore = (*ThreadStore)(nil)

const upsertThreadSQL = `
	INSERT INTO notification_threads (
		id, user_id, github_thread_id, repository, subject, reason,
		unread, last_read_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id, github_thread_id) DO UPDATE SET
		unread = EXCLUDED.unread,
		last_read_at = EXCLUDED.last_read_at,
		updated_at = EXCLUDED.updated_at`

const selectThreadSQL = `
	SELECT id, user_id, github_thread_id, repository, subject, reason,
		unread, last_read_at, updated_at, created_at
	FROM notification_threads`

func upsertArgs(userID string, t model.Thread) ([]any, error) {
	subject, err := json.Marshal(t.Subject)
	if err != nil {
		return nil, fmt.Errorf("marshaling subject for thread %s: %w", t.ID, err)
	}
	return []any{
		uuid.New().String(), userID, t.ID, t.RepositoryFullName(), subject, t.Reason,
		t.Unread, t.LastReadAt, t.UpdatedAt,
	}, nil
}

func wrap(op string, err error) error {
	return &store.StorageError{Op: op, Err: err}
}

// UpsertThread inserts or updates one thread with a single statement.
func (s *ThreadStore) UpsertThread(ctx context.Context, userID string, t model.Thread) error {
	args, err := upsertArgs(userID, t)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, upsertThreadSQL, args...); err != nil {
		return wrap("upserting thread "+t.ID, err)
	}
	return nil
}

// UpsertThreads upserts a batch in one transaction.
func (s *ThreadStore) UpsertThreads(ctx context.Context, userID string, threads []model.Thread) error {
	if len(threads) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return wrap("beginning transaction", err)
	}

	for _, t := range threads {
		args, err := upsertArgs(userID, t)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if _, err := tx.Exec(ctx, upsertThreadSQL, args...); err != nil {
			_ = tx.Rollback(ctx)
			return wrap("upserting thread "+t.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrap("committing upserts", err)
	}
	return nil
}

// MarkThreadRead mirrors a confirmed remote mark-read.
func (s *ThreadStore) MarkThreadRead(ctx context.Context, userID, threadID string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE notification_threads SET unread = false, last_read_at = $1
		WHERE user_id = $2 AND github_thread_id = $3`,
		at, userID, threadID,
	)
	if err != nil {
		return wrap("marking thread "+threadID+" read", err)
	}
	return nil
}

// MarkAllThreadsRead mirrors a confirmed remote mark-all-read.
func (s *ThreadStore) MarkAllThreadsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notification_threads SET unread = false, last_read_at = $1
		WHERE user_id = $2 AND unread`,
		at, userID,
	)
	if err != nil {
		return 0, wrap("marking all threads read", err)
	}
	return tag.RowsAffected(), nil
}

// GetThread returns one stored thread by its GitHub id.
func (s *ThreadStore) GetThread(ctx context.Context, userID, threadID string) (*model.PersistedThread, error) {
	row := s.db.QueryRow(ctx, selectThreadSQL+" WHERE user_id = $1 AND github_thread_id = $2",
		userID, threadID)

	p, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrap("getting thread "+threadID, err)
	}
	return p, nil
}

// ListThreads returns userID's threads, most recently updated first.
func (s *ThreadStore) ListThreads(
	ctx context.Context,
	userID string,
	filter store.ThreadFilter,
) ([]model.PersistedThread, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if filter.UnreadOnly {
		conditions = append(conditions, "unread")
	}
	if filter.Repository != "" {
		args = append(args, filter.Repository)
		conditions = append(conditions, fmt.Sprintf("repository = $%d", len(args)))
	}
	if filter.Reason != "" {
		args = append(args, filter.Reason)
		conditions = append(conditions, fmt.Sprintf("reason = $%d", len(args)))
	}

	query := selectThreadSQL + " WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY updated_at DESC, github_thread_id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("querying threads", err)
	}
	defer rows.Close()

	var threads []model.PersistedThread
	for rows.Next() {
		p, err := scanThread(rows)
		if err != nil {
			return nil, wrap("scanning thread row", err)
		}
		threads = append(threads, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterating thread rows", err)
	}
	return threads, nil
}

// CountUnread returns how many of userID's stored threads are unread.
func (s *ThreadStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM notification_threads WHERE user_id = $1 AND unread", userID,
	).Scan(&n)
	if err != nil {
		return 0, wrap("counting unread threads", err)
	}
	return int(n), nil
}

func scanThread(row pgx.Row) (*model.PersistedThread, error) {
	var (
		p          model.PersistedThread
		subject    []byte
		lastReadAt pgtype.Timestamptz
	)

	err := row.Scan(
		&p.ID, &p.UserID, &p.GitHubThreadID, &p.Repository, &subject, &p.Reason,
		&p.Unread, &lastReadAt, &p.UpdatedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReadAt.Valid {
		t := lastReadAt.Time
		p.LastReadAt = &t
	}
	if len(subject) > 0 {
		if err := json.Unmarshal(subject, &p.Subject); err != nil {
			return nil, fmt.Errorf("unmarshaling subject: %w", err)
		}
	}
	return &p, nil
}
