package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/core"
	"costbook/internal/remote"
)

// Records returns the SQLite implementation of remote.Store, used when the
// app runs against a shared database instead of a hosted backend.
func (d *DB) Records(ids core.IDGenerator) *RecordStore {
	if ids == nil {
		ids = core.UUIDGenerator{}
	}
	return &RecordStore{db: d, ids: ids}
}

type RecordStore struct {
	db  *DB
	ids core.IDGenerator
}

func (s *RecordStore) Create(ctx context.Context, user string, kind core.Kind, doc remote.Document) (string, error) {
	if err := remote.CheckScope(user, kind); err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = s.ids.NewID()
	}
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO records (user_id, kind, id, label, amount, timestamp, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, kind, id) DO UPDATE SET
		   label = excluded.label, amount = excluded.amount,
		   timestamp = excluded.timestamp, updated_at = excluded.updated_at`,
		user, string(kind), doc.ID, doc.Label, doc.Amount.String(), formatTime(doc.Timestamp), formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("create %s record: %w", kind, err)
	}
	return doc.ID, nil
}

func (s *RecordStore) Update(ctx context.Context, user string, kind core.Kind, id string, doc remote.Document) error {
	if err := remote.CheckScope(user, kind); err != nil {
		return err
	}
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE records SET label = ?, amount = ?, timestamp = ?, updated_at = ?
		 WHERE user_id = ? AND kind = ? AND id = ?`,
		doc.Label, doc.Amount.String(), formatTime(doc.Timestamp), formatTime(time.Now()),
		user, string(kind), id)
	if err != nil {
		return fmt.Errorf("update %s record: %w", kind, err)
	}
	return requireRow(res)
}

func (s *RecordStore) Delete(ctx context.Context, user string, kind core.Kind, id string) error {
	if err := remote.CheckScope(user, kind); err != nil {
		return err
	}
	res, err := s.db.db.ExecContext(ctx,
		`DELETE FROM records WHERE user_id = ? AND kind = ? AND id = ?`, user, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s record: %w", kind, err)
	}
	return requireRow(res)
}

func (s *RecordStore) ListAll(ctx context.Context, user string, kind core.Kind) ([]remote.Document, error) {
	if err := remote.CheckScope(user, kind); err != nil {
		return nil, err
	}
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT id, label, amount, timestamp FROM records
		 WHERE user_id = ? AND kind = ? ORDER BY seq`, user, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", kind, err)
	}
	defer rows.Close()

	docs := []remote.Document{}
	for rows.Next() {
		var (
			doc           remote.Document
			amount, stamp string
		)
		if err := rows.Scan(&doc.ID, &doc.Label, &amount, &stamp); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", kind, err)
		}
		if doc.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of %s: %w", doc.ID, err)
		}
		if doc.Timestamp, err = parseTime(stamp); err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireRow(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return remote.ErrNotFound
	}
	return nil
}

var _ remote.Store = (*RecordStore)(nil)
