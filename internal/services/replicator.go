package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"costbook/internal/amqp"
	"costbook/internal/core"
	"costbook/internal/log"
	"costbook/internal/remote"
)

const defaultReplicateTimeout = 15 * time.Second

// Op is the kind of local change being replicated.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation is one local change to mirror remotely. Document carries the
// whole record after the change; deletes only need its ID.
type Mutation struct {
	User     string
	Kind     core.Kind
	Op       Op
	Document remote.Document
}

// Result reports the outcome of replicating a Mutation. RemoteID is set for
// successful creates.
type Result struct {
	Mutation Mutation
	RemoteID string
	Err      error
}

// Replicator mirrors mutations asynchronously. Replicate never blocks on the
// remote side; done, when non-nil, is called once with the outcome. Wait
// blocks until every accepted mutation has completed.
type Replicator interface {
	Replicate(ctx context.Context, m Mutation, done func(Result))
	Wait()
}

// ApplyMutation performs m against s. An update of a document the remote
// never received becomes a create, and deleting a missing document succeeds.
// It is shared by the direct replicator and the sync worker.
func ApplyMutation(ctx context.Context, s remote.Store, m Mutation) (string, error) {
	switch m.Op {
	case OpCreate:
		return s.Create(ctx, m.User, m.Kind, m.Document)
	case OpUpdate:
		err := s.Update(ctx, m.User, m.Kind, m.Document.ID, m.Document)
		if errors.Is(err, remote.ErrNotFound) {
			return s.Create(ctx, m.User, m.Kind, m.Document)
		}
		return m.Document.ID, err
	case OpDelete:
		err := s.Delete(ctx, m.User, m.Kind, m.Document.ID)
		if errors.Is(err, remote.ErrNotFound) {
			err = nil
		}
		return m.Document.ID, err
	default:
		return "", fmt.Errorf("unknown op %q", string(m.Op))
	}
}

type job struct {
	ctx  context.Context
	m    Mutation
	done func(Result)
}

// queueReplicator runs mutations one at a time in submission order, so a
// create always reaches the remote before the update that follows it.
type queueReplicator struct {
	apply   func(ctx context.Context, m Mutation) (string, error)
	logger  *log.Logger
	timeout time.Duration

	mu      sync.Mutex
	queue   []job
	running bool
	idle    *sync.Cond
}

func newQueueReplicator(apply func(context.Context, Mutation) (string, error), logger *log.Logger) *queueReplicator {
	if logger == nil {
		logger = log.Discard()
	}
	q := &queueReplicator{
		apply:   apply,
		logger:  logger.WithComponent(log.ComponentReplicate),
		timeout: defaultReplicateTimeout,
	}
	q.idle = sync.NewCond(&q.mu)
	return q
}

func (q *queueReplicator) Replicate(ctx context.Context, m Mutation, done func(Result)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	// the caller's request may end long before the remote call does
	q.queue = append(q.queue, job{ctx: context.WithoutCancel(ctx), m: m, done: done})
	if !q.running {
		q.running = true
		go q.drain()
	}
}

func (q *queueReplicator) drain() {
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.running = false
			q.idle.Broadcast()
			q.mu.Unlock()
			return
		}
		j := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		q.run(j)
	}
}

func (q *queueReplicator) run(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, q.timeout)
	defer cancel()

	id, err := q.apply(ctx, j.m)
	res := Result{Mutation: j.m, RemoteID: id, Err: err}
	fields := log.NewFields().
		WithOperation(string(j.m.Op)).
		WithRecord(j.m.Kind.String(), j.m.Document.ID).
		WithUser(j.m.User).
		WithError(err)
	if err != nil {
		q.logger.ErrorContext(ctx, "Replication failed", fields.ToSlice()...)
	} else {
		q.logger.DebugContext(ctx, "Replicated", fields.ToSlice()...)
	}
	if j.done != nil {
		j.done(res)
	}
}

func (q *queueReplicator) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running {
		q.idle.Wait()
	}
}

// DirectReplicator writes mutations straight to a remote store.
type DirectReplicator struct {
	*queueReplicator
}

func NewDirectReplicator(store remote.Store, logger *log.Logger) *DirectReplicator {
	return &DirectReplicator{newQueueReplicator(func(ctx context.Context, m Mutation) (string, error) {
		return ApplyMutation(ctx, store, m)
	}, logger)}
}

// Publisher is the subset of the AMQP client used for replication.
type Publisher interface {
	PublishRecordSync(ctx context.Context, msg *amqp.RecordSyncMessage) error
}

// AMQPReplicator publishes mutations for the sync worker to apply. The
// remote id reported on success is the client id, which the worker keeps.
type AMQPReplicator struct {
	*queueReplicator
}

func NewAMQPReplicator(pub Publisher, logger *log.Logger) *AMQPReplicator {
	return &AMQPReplicator{newQueueReplicator(func(ctx context.Context, m Mutation) (string, error) {
		msg := amqp.NewRecordSyncMessage(m.User, m.Kind, amqp.Op(m.Op), m.Document)
		if err := pub.PublishRecordSync(ctx, msg); err != nil {
			return "", err
		}
		return m.Document.ID, nil
	}, logger)}
}

var (
	_ Replicator = (*DirectReplicator)(nil)
	_ Replicator = (*AMQPReplicator)(nil)
)
