package cli

import (
	"context"
	"errors"
	"fmt"

	"costbook/internal/auth"
	"costbook/internal/backend"
	"costbook/internal/config"
	"costbook/internal/log"
	"costbook/internal/persist"
	"costbook/internal/services"
	"costbook/internal/storage"
	"costbook/internal/store"
)

// App is a wired costbook process: local database, auth, the tracker for the
// current session and the bridge persisting it.
type App struct {
	Config  *config.Config
	DB      *storage.DB
	Auth    *auth.Local
	Session *auth.Session
	Tracker *services.Tracker

	bridge  *persist.Bridge
	backend *backend.Result
	logger  *log.Logger
}

// NewApp opens storage and restores the state of the logged in user, or of
// the anonymous local profile when nobody is. Remote replication is only
// wired for a logged in user.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	db, err := OpenStorage(logger, cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	a := &App{
		Config: cfg,
		DB:     db,
		Auth:   auth.NewLocal(db.Users(), db.Sessions(), auth.WithLogger(logger)),
		logger: logger,
	}

	opts := []services.Option{
		services.WithLocale(cfg.Locale()),
		services.WithSummaryCacheSize(cfg.SummaryCacheSize),
		services.WithLogger(logger),
	}

	profile := ""
	sess, err := a.Auth.Current(ctx)
	switch {
	case err == nil:
		a.Session = &sess
		profile = sess.UserID

		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		res, err := backend.NewFactory(db, logger).CreateBackend(ctx, bcfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create backend: %w", err)
		}
		a.backend = res
		opts = append(opts,
			services.WithUser(sess.UserID),
			services.WithRemote(res.Remote),
			services.WithReplicator(res.Replicator))
	case errors.Is(err, auth.ErrNoSession):
	default:
		a.Close()
		return nil, fmt.Errorf("read session: %w", err)
	}

	state := store.New()
	a.bridge, err = persist.Attach(ctx, state, db.Snapshots(profile), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Tracker = services.NewTracker(state, opts...)
	return a, nil
}

// Close waits for pending replication, flushes the last snapshot and
// releases every connection.
func (a *App) Close() error {
	if a.Tracker != nil {
		a.Tracker.Wait()
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
	var errs []error
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func (a *App) Logger() *log.Logger { return a.logger }
