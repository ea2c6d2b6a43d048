package backend

import (
	"context"
	"fmt"

	"costbook/internal/amqp"
	"costbook/internal/log"
	"costbook/internal/remote"
	"costbook/internal/remote/sheets"
	"costbook/internal/services"
	"costbook/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	db     *storage.DB
	logger *log.Logger
}

// NewFactory creates a factory. db backs the sqlite remote and may be nil
// for the other backends.
func NewFactory(db *storage.DB, logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{db: db, logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateRemote builds only the remote store, as the sync worker needs.
func (f *DefaultFactory) CreateRemote(ctx context.Context, config Config) (remote.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		if f.db == nil {
			return nil, fmt.Errorf("sqlite backend needs an open database")
		}
		f.logger.Info("Initialized SQLite remote backend")
		return f.db.Records(nil), nil
	case SheetsBackend:
		store, err := sheets.New(ctx, config.GoogleSpreadsheetID, config.Credentials, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend")
		return store, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return remote.NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateBackend implements Factory. With AMQP configured mutations are
// published for the worker; if the broker is unreachable the app falls back
// to writing the remote store directly.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := f.CreateRemote(ctx, config)
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, replicating directly", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			replicator := services.NewAMQPReplicator(client, f.logger)
			return &Result{
				Remote:     store,
				Replicator: replicator,
				Cleanup: func() error {
					replicator.Wait()
					return client.Close()
				},
			}, nil
		}
	}

	replicator := services.NewDirectReplicator(store, f.logger)
	return &Result{
		Remote:     store,
		Replicator: replicator,
		Cleanup: func() error {
			replicator.Wait()
			return nil
		},
	}, nil
}

var _ Factory = (*DefaultFactory)(nil)
