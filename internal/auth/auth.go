// Package auth signs users up, logs them in and keeps the current session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Error is an authentication failure carrying a message fit for the user.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrNoSession    = errors.New("no active session")
)

// MinPasswordLength matches the usual hosted auth providers.
const MinPasswordLength = 6

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session identifies the logged in user. Its UserID scopes remote data.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Authenticator is the auth provider consumed by the app.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Session, error)
	Signup(ctx context.Context, email, password string) (Session, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (Session, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
}

// SessionStore persists the current session. Load returns ErrNoSession when
// nobody is logged in.
type SessionStore interface {
	LoadSession(ctx context.Context) (Session, error)
	SaveSession(ctx context.Context, s Session) error
	ClearSession(ctx context.Context) error
}

// NormalizeEmail trims and lowercases email and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.New("email is not valid")
	}
	return email, nil
}
