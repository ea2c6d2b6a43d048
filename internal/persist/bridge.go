package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"costbook/internal/log"
	"costbook/internal/store"
)

const defaultSaveTimeout = 10 * time.Second

// Bridge restores a State from a Snapshotter and then saves every new
// snapshot in the background. Only the latest pending snapshot is kept, so a
// slow backend skips intermediate states instead of queueing them.
type Bridge struct {
	snapshotter Snapshotter
	logger      *log.Logger
	timeout     time.Duration

	mu      sync.Mutex
	pending *store.Snapshot
	closed  bool

	wake        chan struct{}
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithSaveTimeout bounds each Save call.
func WithSaveTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// Attach loads the stored snapshot into state, subscribes to it and starts
// the save loop. A load failure is returned and nothing is attached.
func Attach(ctx context.Context, state *store.State, snapshotter Snapshotter, logger *log.Logger, opts ...Option) (*Bridge, error) {
	if logger == nil {
		logger = log.Discard()
	}
	b := &Bridge{
		snapshotter: snapshotter,
		logger:      logger.WithComponent(log.ComponentPersist),
		timeout:     defaultSaveTimeout,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	snap, err := snapshotter.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap != nil {
		state.Dispatch(store.Restore{Snapshot: *snap})
		b.logger.Info("State restored",
			log.FieldOperation, log.OpLoad,
			log.FieldItems, len(snap.Items),
			log.FieldCosts, len(snap.Costs))
	}

	b.unsubscribe = state.Subscribe(b.enqueue)
	go b.run()
	return b, nil
}

func (b *Bridge) enqueue(snap store.Snapshot) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = &snap
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) run() {
	defer close(b.done)
	for range b.wake {
		b.flush()
	}
}

func (b *Bridge) flush() {
	b.mu.Lock()
	snap := b.pending
	b.pending = nil
	b.mu.Unlock()
	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.snapshotter.Save(ctx, *snap); err != nil {
		b.logger.Error("Failed to save snapshot",
			log.FieldOperation, log.OpSave,
			log.FieldError, err)
		return
	}
	b.logger.Debug("Snapshot saved",
		log.FieldItems, len(snap.Items),
		log.FieldCosts, len(snap.Costs))
}

// Close detaches from the state and waits until the last pending snapshot
// has been written. It is safe to call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.unsubscribe()
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.wake)
		<-b.done
		// a snapshot enqueued between the last wake and close is still pending
		b.flush()
	})
}
