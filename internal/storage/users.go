package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"costbook/internal/auth"
)

// Users returns the account store.
func (d *DB) Users() *UserStore {
	return &UserStore{db: d}
}

type UserStore struct {
	db *DB
}

func (s *UserStore) CreateUser(ctx context.Context, u auth.User) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return auth.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var (
		u       auth.User
		created string
	)
	err := s.db.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return auth.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	return u, nil
}

var _ auth.UserStore = (*UserStore)(nil)
