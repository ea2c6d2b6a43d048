package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"costbook/internal/core"
	"costbook/internal/log"
)

// Local authenticates against a UserStore with bcrypt password hashes.
type Local struct {
	users    UserStore
	sessions SessionStore
	ids      core.IDGenerator
	now      func() time.Time
	cost     int
	logger   *log.Logger
}

type LocalOption func(*Local)

// WithBcryptCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) LocalOption {
	return func(l *Local) { l.cost = cost }
}

func WithIDGenerator(ids core.IDGenerator) LocalOption {
	return func(l *Local) { l.ids = ids }
}

func WithClock(now func() time.Time) LocalOption {
	return func(l *Local) { l.now = now }
}

func WithLogger(logger *log.Logger) LocalOption {
	return func(l *Local) { l.logger = logger.WithComponent(log.ComponentAuth) }
}

func NewLocal(users UserStore, sessions SessionStore, opts ...LocalOption) *Local {
	l := &Local{
		users:    users,
		sessions: sessions,
		ids:      core.UUIDGenerator{},
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Signup(ctx context.Context, email, password string) (Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Session{}, &Error{Op: log.OpSignup, Message: err.Error()}
	}
	if len(password) < MinPasswordLength {
		return Session{}, &Error{Op: log.OpSignup, Message: "password must be at least 6 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return Session{}, &Error{Op: log.OpSignup, Message: "could not secure password", Err: err}
	}
	u := User{ID: l.ids.NewID(), Email: email, PasswordHash: hash, CreatedAt: l.now().UTC()}
	if err := l.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return Session{}, &Error{Op: log.OpSignup, Message: "an account with this email already exists", Err: err}
		}
		return Session{}, &Error{Op: log.OpSignup, Message: "could not create account", Err: err}
	}
	l.logger.InfoContext(ctx, "User signed up", log.FieldUserID, u.ID)
	return l.start(ctx, log.OpSignup, u)
}

func (l *Local) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Session{}, &Error{Op: log.OpLogin, Message: err.Error()}
	}
	u, err := l.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, &Error{Op: log.OpLogin, Message: "invalid email or password"}
		}
		return Session{}, &Error{Op: log.OpLogin, Message: "could not look up account", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return Session{}, &Error{Op: log.OpLogin, Message: "invalid email or password"}
	}
	return l.start(ctx, log.OpLogin, u)
}

func (l *Local) Logout(ctx context.Context) error {
	if _, err := l.sessions.LoadSession(ctx); err != nil {
		if errors.Is(err, ErrNoSession) {
			return &Error{Op: log.OpLogout, Message: "not logged in", Err: err}
		}
		return &Error{Op: log.OpLogout, Message: "could not read session", Err: err}
	}
	if err := l.sessions.ClearSession(ctx); err != nil {
		return &Error{Op: log.OpLogout, Message: "could not end session", Err: err}
	}
	return nil
}

func (l *Local) Current(ctx context.Context) (Session, error) {
	return l.sessions.LoadSession(ctx)
}

func (l *Local) start(ctx context.Context, op string, u User) (Session, error) {
	s := Session{UserID: u.ID, Email: u.Email, CreatedAt: l.now().UTC()}
	if err := l.sessions.SaveSession(ctx, s); err != nil {
		return Session{}, &Error{Op: op, Message: "could not start session", Err: err}
	}
	return s, nil
}

var _ Authenticator = (*Local)(nil)
