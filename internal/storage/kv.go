package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"costbook/internal/auth"
	"costbook/internal/persist"
	"costbook/internal/store"
)

const sessionKey = "session"

func (d *DB) getValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (d *DB) putValue(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (d *DB) deleteValue(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SnapshotStore keeps one JSON snapshot per local profile.
type SnapshotStore struct {
	db  *DB
	key string
}

// Snapshots returns the snapshot slot for profile; an empty profile is the
// anonymous one used before login.
func (d *DB) Snapshots(profile string) *SnapshotStore {
	if profile == "" {
		profile = "local"
	}
	return &SnapshotStore{db: d, key: "state:" + profile}
}

func (s *SnapshotStore) Load(ctx context.Context) (*store.Snapshot, error) {
	value, ok, err := s.db.getValue(ctx, s.key)
	if err != nil || !ok {
		return nil, err
	}
	var snap store.Snapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.db.putValue(ctx, s.key, string(data))
}

// Sessions returns the session store backed by the key-value table.
func (d *DB) Sessions() *SessionStore {
	return &SessionStore{db: d}
}

type SessionStore struct {
	db *DB
}

func (s *SessionStore) LoadSession(ctx context.Context) (auth.Session, error) {
	value, ok, err := s.db.getValue(ctx, sessionKey)
	if err != nil {
		return auth.Session{}, err
	}
	if !ok {
		return auth.Session{}, auth.ErrNoSession
	}
	var sess auth.Session
	if err := json.Unmarshal([]byte(value), &sess); err != nil {
		return auth.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, sess auth.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.db.putValue(ctx, sessionKey, string(data))
}

func (s *SessionStore) ClearSession(ctx context.Context) error {
	return s.db.deleteValue(ctx, sessionKey)
}

var (
	_ persist.Snapshotter = (*SnapshotStore)(nil)
	_ auth.SessionStore   = (*SessionStore)(nil)
)
