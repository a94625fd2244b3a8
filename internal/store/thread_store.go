package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/ghnotify/internal/model"
)

// threadRow is a notification_threads row with the subject still encoded.
type threadRow struct {
	model.PersistedThread
	SubjectJSON string `db:"subject"`
}

func (r threadRow) toModel() (model.PersistedThread, error) {
	p := r.PersistedThread
	if r.SubjectJSON != "" {
		if err := json.Unmarshal([]byte(r.SubjectJSON), &p.Subject); err != nil {
			return model.PersistedThread{}, fmt.Errorf("unmarshaling subject: %w", err)
		}
	}
	return p, nil
}

const threadColumns = `id, user_id, github_thread_id, repository, subject, reason,
	unread, last_read_at, updated_at, created_at`

// upsertThreadSQL inserts a thread or updates its mutable fields. Identity
// columns are written on insert only.
const upsertThreadSQL = `
	INSERT INTO notification_threads (
		id, user_id, github_thread_id, repository, subject, reason,
		unread, last_read_at, updated_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, github_thread_id) DO UPDATE SET
		unread = excluded.unread,
		last_read_at = excluded.last_read_at,
		updated_at = excluded.updated_at`

func upsertArgs(userID string, t model.Thread) ([]interface{}, error) {
	subject, err := json.Marshal(t.Subject)
	if err != nil {
		return nil, fmt.Errorf("marshaling subject for thread %s: %w", t.ID, err)
	}

	var lastReadAt *time.Time
	if t.LastReadAt != nil {
		v := t.LastReadAt.UTC()
		lastReadAt = &v
	}

	return []interface{}{
		uuid.New().String(), userID, t.ID, t.RepositoryFullName(), string(subject), t.Reason,
		boolToInt(t.Unread), lastReadAt, t.UpdatedAt.UTC(), time.Now().UTC(),
	}, nil
}

// UpsertThread mirrors a single thread for userID.
func (s *SQLiteStore) UpsertThread(ctx context.Context, userID string, t model.Thread) error {
	args, err := upsertArgs(userID, t)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertThreadSQL, args...); err != nil {
		return storageErr("upserting thread "+t.ID, err)
	}
	return nil
}

// UpsertThreads mirrors a batch. Either every thread is written or none.
func (s *SQLiteStore) UpsertThreads(ctx context.Context, userID string, threads []model.Thread) error {
	if len(threads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertThreadSQL)
	if err != nil {
		return storageErr("preparing upsert statement", err)
	}
	defer stmt.Close()

	for _, t := range threads {
		args, err := upsertArgs(userID, t)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return storageErr("upserting thread "+t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing upserts", err)
	}
	return nil
}

// MarkThreadRead flags one thread read at the given time. A thread that
// was never synced is not an error.
func (s *SQLiteStore) MarkThreadRead(ctx context.Context, userID, threadID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_threads SET unread = 0, last_read_at = ?
		WHERE user_id = ? AND github_thread_id = ?`,
		at.UTC(), userID, threadID,
	)
	if err != nil {
		return storageErr("marking thread "+threadID+" read", err)
	}
	return nil
}

// MarkAllThreadsRead flags every unread thread of userID read.
func (s *SQLiteStore) MarkAllThreadsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_threads SET unread = 0, last_read_at = ?
		WHERE user_id = ? AND unread = 1`,
		at.UTC(), userID,
	)
	if err != nil {
		return 0, storageErr("marking all threads read", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetThread returns one stored thread by its GitHub id.
func (s *SQLiteStore) GetThread(ctx context.Context, userID, threadID string) (*model.PersistedThread, error) {
	var row threadRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+threadColumns+" FROM notification_threads WHERE user_id = ? AND github_thread_id = ?",
		userID, threadID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("getting thread "+threadID, err)
	}

	p, err := row.toModel()
	if err != nil {
		return nil, storageErr("getting thread "+threadID, err)
	}
	return &p, nil
}

// ListThreads returns userID's threads, most recently updated first.
func (s *SQLiteStore) ListThreads(
	ctx context.Context,
	userID string,
	filter ThreadFilter,
) ([]model.PersistedThread, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.UnreadOnly {
		conditions = append(conditions, "unread = 1")
	}
	if filter.Repository != "" {
		conditions = append(conditions, "repository = ?")
		args = append(args, filter.Repository)
	}
	if filter.Reason != "" {
		conditions = append(conditions, "reason = ?")
		args = append(args, filter.Reason)
	}

	query := "SELECT " + threadColumns + " FROM notification_threads WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY updated_at DESC, github_thread_id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("querying threads", err)
	}
	defer rows.Close()

	return scanThreads(rows)
}

func scanThreads(rows *sqlx.Rows) ([]model.PersistedThread, error) {
	var threads []model.PersistedThread
	for rows.Next() {
		var row threadRow
		if err := rows.StructScan(&row); err != nil {
			return nil, storageErr("scanning thread row", err)
		}
		p, err := row.toModel()
		if err != nil {
			return nil, storageErr("scanning thread row", err)
		}
		threads = append(threads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating thread rows", err)
	}
	return threads, nil
}

// CountUnread returns how many of userID's stored threads are unread.
func (s *SQLiteStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM notification_threads WHERE user_id = ? AND unread = 1", userID)
	if err != nil {
		return 0, storageErr("counting unread threads", err)
	}
	return n, nil
}
