package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/ghnotify/internal/model"
)

// Fixed keys in the state table.
const (
	KeySeenSet = "seen_notification_ids"
	KeyProfile = "user"
)

// getState reads a raw value, returning ErrNotFound when the key is unset.
func (s *SQLiteStore) getState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storageErr("reading "+key, err)
	}
	return value, nil
}

// putState writes a raw value in a single statement, so a reader sees
// either the old value or the new one.
func (s *SQLiteStore) putState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return storageErr("writing "+key, err)
	}
	return nil
}

func (s *SQLiteStore) deleteState(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM state WHERE key = ?", key); err != nil {
		return storageErr("deleting "+key, err)
	}
	return nil
}

// GetSeenSet returns the persisted seen ids, empty on first run.
func (s *SQLiteStore) GetSeenSet(ctx context.Context) (model.SeenSet, error) {
	raw, err := s.getState(ctx, KeySeenSet)
	if errors.Is(err, ErrNotFound) {
		return model.NewSeenSet(), nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, storageErr("decoding "+KeySeenSet, err)
	}
	return model.NewSeenSet(ids...), nil
}

// CommitSeenSet replaces the persisted set. Ids are written sorted so
// equal sets produce identical bytes.
func (s *SQLiteStore) CommitSeenSet(ctx context.Context, set model.SeenSet) error {
	data, err := json.Marshal(set.IDs())
	if err != nil {
		return fmt.Errorf("encoding seen set: %w", err)
	}
	return s.putState(ctx, KeySeenSet, string(data))
}

// ResetSeenSet forgets every seen id.
func (s *SQLiteStore) ResetSeenSet(ctx context.Context) error {
	return s.deleteState(ctx, KeySeenSet)
}

// RawSeenSet returns the stored bytes for the seen set, empty when unset.
func (s *SQLiteStore) RawSeenSet(ctx context.Context) (string, error) {
	raw, err := s.getState(ctx, KeySeenSet)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return raw, err
}

// GetProfile returns the cached GitHub profile.
func (s *SQLiteStore) GetProfile(ctx context.Context) (*model.Profile, error) {
	raw, err := s.getState(ctx, KeyProfile)
	if err != nil {
		return nil, err
	}

	var p model.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, storageErr("decoding "+KeyProfile, err)
	}
	return &p, nil
}

// SetProfile caches the GitHub profile.
func (s *SQLiteStore) SetProfile(ctx context.Context, p model.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return s.putState(ctx, KeyProfile, string(data))
}

// ClearProfile removes the cached profile, used on sign-out.
func (s *SQLiteStore) ClearProfile(ctx context.Context) error {
	return s.deleteState(ctx, KeyProfile)
}
