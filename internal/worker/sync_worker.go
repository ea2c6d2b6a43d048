// Package worker applies record sync messages to the remote store.
package worker

import (
	"context"
	"fmt"

	"costbook/internal/amqp"
	"costbook/internal/log"
	"costbook/internal/remote"
	"costbook/internal/services"
)

// SyncWorker mirrors published mutations into a remote store.
type SyncWorker struct {
	remote remote.Store
	logger *log.Logger
}

func NewSyncWorker(store remote.Store, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{remote: store, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleRecordSync applies one message. A returned error makes the consumer
// requeue the delivery.
func (w *SyncWorker) HandleRecordSync(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	m := services.Mutation{
		User:     msg.User,
		Kind:     msg.Kind,
		Op:       services.Op(msg.Op),
		Document: msg.Document,
	}
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldOperation, msg.Op,
		log.FieldKind, msg.Kind,
		log.FieldRecordID, msg.Document.ID,
		log.FieldUserID, msg.User)

	if _, err := services.ApplyMutation(ctx, w.remote, m); err != nil {
		return fmt.Errorf("%s %s %s: %w", msg.Op, msg.Kind, msg.Document.ID, err)
	}
	return nil
}

// Consumer is the subset of the AMQP client the worker needs.
type Consumer interface {
	ConsumeRecordSync(ctx context.Context, handler func(context.Context, *amqp.RecordSyncMessage) error) error
}

// Run consumes until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Sync worker started", log.FieldOperation, log.OpStartup)
	err := c.ConsumeRecordSync(ctx, w.HandleRecordSync)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
