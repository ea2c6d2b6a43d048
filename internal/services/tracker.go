// Package services holds the local-first Tracker and the replicators that
// mirror its mutations to a remote store.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"costbook/internal/aggregate"
	"costbook/internal/chart"
	"costbook/internal/core"
	"costbook/internal/log"
	"costbook/internal/remote"
	"costbook/internal/store"
	"costbook/internal/view"
)

var ErrNoRemote = errors.New("no remote store or user configured")

// Tracker validates input, applies it to the local state and hands every
// change to a Replicator. Local state is never rolled back when replication
// fails.
type Tracker struct {
	state      *store.State
	selector   *aggregate.Selector
	ids        core.IDGenerator
	now        func() time.Time
	locale     language.Tag
	user       string
	remote     remote.Store
	replicator Replicator
	onResult   func(Result)
	logger     *log.Logger
}

type Option func(*Tracker)

func WithIDGenerator(ids core.IDGenerator) Option {
	return func(t *Tracker) { t.ids = ids }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocale sets the collation used by name sorts when a view request does
// not carry its own.
func WithLocale(tag language.Tag) Option {
	return func(t *Tracker) { t.locale = tag }
}

// WithUser scopes replication and hydration to user.
func WithUser(user string) Option {
	return func(t *Tracker) { t.user = user }
}

// WithRemote sets the store Hydrate reads from.
func WithRemote(s remote.Store) Option {
	return func(t *Tracker) { t.remote = s }
}

func WithReplicator(r Replicator) Option {
	return func(t *Tracker) { t.replicator = r }
}

// WithReplicationCallback observes every replication outcome.
func WithReplicationCallback(fn func(Result)) Option {
	return func(t *Tracker) { t.onResult = fn }
}

func WithSummaryCacheSize(n int) Option {
	return func(t *Tracker) { t.selector = aggregate.NewSelector(n) }
}

func WithLogger(logger *log.Logger) Option {
	return func(t *Tracker) { t.logger = logger.WithComponent(log.ComponentTracker) }
}

// NewTracker wraps state. Without a user or replicator the tracker works
// purely locally.
func NewTracker(state *store.State, opts ...Option) *Tracker {
	t := &Tracker{
		state:    state,
		selector: aggregate.NewSelector(64),
		ids:      core.UUIDGenerator{},
		now:      time.Now,
		locale:   language.English,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) State() *store.State { return t.state }

func (t *Tracker) User() string { return t.user }

func (t *Tracker) AddItem(ctx context.Context, name, cost string) (core.Item, error) {
	patch, err := core.NewItemPatch(name, cost)
	if err != nil {
		return core.Item{}, err
	}
	it, err := core.NewItem(t.ids.NewID(), patch, t.now())
	if err != nil {
		return core.Item{}, err
	}
	t.state.Dispatch(store.AddItem{Item: it})
	t.logger.InfoContext(ctx, "Item added", log.FieldRecordID, it.ID, log.FieldAmount, it.Cost.String())
	t.replicate(ctx, core.KindItems, OpCreate, it)
	return it, nil
}

// UpdateItem replaces the name and cost of item id. It reports false, with
// no error, when id is unknown.
func (t *Tracker) UpdateItem(ctx context.Context, id, name, cost string) (core.Item, bool, error) {
	patch, err := core.NewItemPatch(name, cost)
	if err != nil {
		return core.Item{}, false, err
	}
	snap, ok := t.state.Commit(store.UpdateItem{ID: id, Patch: patch})
	if !ok {
		return core.Item{}, false, nil
	}
	it, _ := snap.Item(id)
	t.logger.InfoContext(ctx, "Item updated", log.FieldRecordID, id)
	t.replicate(ctx, core.KindItems, OpUpdate, it)
	return it, true, nil
}

// DeleteItem removes item id and reports whether it existed.
func (t *Tracker) DeleteItem(ctx context.Context, id string) bool {
	it, ok := t.state.Item(id)
	if !ok || !t.state.Dispatch(store.DeleteItem{ID: id}) {
		return false
	}
	t.logger.InfoContext(ctx, "Item deleted", log.FieldRecordID, id)
	t.replicate(ctx, core.KindItems, OpDelete, it)
	return true
}

func (t *Tracker) AddCost(ctx context.Context, description, amount string) (core.Cost, error) {
	patch, err := core.NewCostPatch(description, amount)
	if err != nil {
		return core.Cost{}, err
	}
	c, err := core.NewCost(t.ids.NewID(), patch, t.now())
	if err != nil {
		return core.Cost{}, err
	}
	t.state.Dispatch(store.AddCost{Cost: c})
	t.logger.InfoContext(ctx, "Cost added", log.FieldRecordID, c.ID, log.FieldAmount, c.Amount.String())
	t.replicate(ctx, core.KindCosts, OpCreate, c)
	return c, nil
}

// UpdateCost replaces the description and amount of cost id. It reports
// false, with no error, when id is unknown.
func (t *Tracker) UpdateCost(ctx context.Context, id, description, amount string) (core.Cost, bool, error) {
	patch, err := core.NewCostPatch(description, amount)
	if err != nil {
		return core.Cost{}, false, err
	}
	snap, ok := t.state.Commit(store.UpdateCost{ID: id, Patch: patch})
	if !ok {
		return core.Cost{}, false, nil
	}
	c, _ := snap.Cost(id)
	t.logger.InfoContext(ctx, "Cost updated", log.FieldRecordID, id)
	t.replicate(ctx, core.KindCosts, OpUpdate, c)
	return c, true, nil
}

// DeleteCost removes cost id and reports whether it existed.
func (t *Tracker) DeleteCost(ctx context.Context, id string) bool {
	c, ok := t.state.Cost(id)
	if !ok || !t.state.Dispatch(store.DeleteCost{ID: id}) {
		return false
	}
	t.logger.InfoContext(ctx, "Cost deleted", log.FieldRecordID, id)
	t.replicate(ctx, core.KindCosts, OpDelete, c)
	return true
}

func (t *Tracker) Items() []core.Item { return t.state.Items() }

func (t *Tracker) Costs() []core.Cost { return t.state.Costs() }

// ItemView filters and sorts the items for display.
func (t *Tracker) ItemView(cfg view.Config) view.Result[core.Item] {
	return view.Apply(t.state.Items(), t.withLocale(cfg))
}

// CostView filters and sorts the costs for display.
func (t *Tracker) CostView(cfg view.Config) view.Result[core.Cost] {
	return view.Apply(t.state.Costs(), t.withLocale(cfg))
}

// Summary returns the totals and counts over the whole state.
func (t *Tracker) Summary() aggregate.Summary {
	return t.selector.Summary(t.state.Snapshot())
}

func (t *Tracker) ItemCharts() chart.Bundle { return chart.Build(t.state.Items()) }

func (t *Tracker) CostCharts() chart.Bundle { return chart.Build(t.state.Costs()) }

// Hydrate replaces the local state with the user's remote collections. Both
// are fetched concurrently; the state is left untouched if either fails.
// Remote documents that are not valid records are skipped.
func (t *Tracker) Hydrate(ctx context.Context) error {
	if t.remote == nil || t.user == "" {
		return ErrNoRemote
	}
	var (
		items []core.Item
		costs []core.Cost
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		var rejected []remote.Rejected
		items, rejected, err = remote.ListItems(gctx, t.remote, t.user)
		if err != nil {
			return fmt.Errorf("fetch items: %w", err)
		}
		t.logRejected(gctx, core.KindItems, rejected)
		return nil
	})
	g.Go(func() error {
		var err error
		var rejected []remote.Rejected
		costs, rejected, err = remote.ListCosts(gctx, t.remote, t.user)
		if err != nil {
			return fmt.Errorf("fetch costs: %w", err)
		}
		t.logRejected(gctx, core.KindCosts, rejected)
		return nil
	})
	if err := g.Wait(); err != nil {
		t.logger.ErrorContext(ctx, "Hydration failed", log.FieldOperation, log.OpHydrate, log.FieldError, err)
		return err
	}

	t.state.Dispatch(store.Restore{Snapshot: store.Snapshot{Items: items, Costs: costs}})
	t.logger.InfoContext(ctx, "State hydrated from remote",
		log.FieldOperation, log.OpHydrate,
		log.FieldUserID, t.user,
		log.FieldItems, len(items),
		log.FieldCosts, len(costs))
	return nil
}

func (t *Tracker) logRejected(ctx context.Context, kind core.Kind, rejected []remote.Rejected) {
	for _, r := range rejected {
		t.logger.WarnContext(ctx, "Skipping invalid remote record",
			log.NewFields().
				WithOperation(log.OpHydrate).
				WithRecord(kind.String(), r.ID).
				WithUser(t.user).
				WithError(r.Err).
				ToSlice()...)
	}
}

// Wait blocks until pending replications have completed.
func (t *Tracker) Wait() {
	if t.replicator != nil {
		t.replicator.Wait()
	}
}

func (t *Tracker) replicate(ctx context.Context, kind core.Kind, op Op, r core.Record) {
	if t.replicator == nil || t.user == "" {
		return
	}
	m := Mutation{User: t.user, Kind: kind, Op: op, Document: remote.FromRecord(r)}
	t.replicator.Replicate(ctx, m, t.onResult)
}

func (t *Tracker) withLocale(cfg view.Config) view.Config {
	if cfg.Locale == language.Und {
		cfg.Locale = t.locale
	}
	return cfg
}
