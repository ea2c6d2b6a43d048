package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"costbook/internal/amqp"
	"costbook/internal/core"
	"costbook/internal/remote"
	"costbook/internal/store"
	"costbook/internal/view"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Hour)
	return c.t
}

type recorder struct {
	mu      sync.Mutex
	results []Result
}

func (r *recorder) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func newTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	clock := &fixedClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	base := []Option{
		WithIDGenerator(&core.SequenceGenerator{Prefix: "id"}),
		WithClock(clock.now),
	}
	return NewTracker(store.New(), append(base, opts...)...)
}

func TestTracker_AddValidatesAtTheBoundary(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)

	it, err := tr.AddItem(ctx, "  Sand ", "10,50")
	require.NoError(t, err)
	assert.Equal(t, "id-1", it.ID)
	assert.Equal(t, "Sand", it.Name)
	assert.True(t, it.Cost.Equal(decimal.RequireFromString("10.5")))

	_, err = tr.AddItem(ctx, "", "1")
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = tr.AddCost(ctx, "Fuel", "abc")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = tr.AddCost(ctx, "Fuel", "-3")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	assert.Len(t, tr.Items(), 1)
	assert.Empty(t, tr.Costs())
}

func TestTracker_UpdateAndDeleteUnknownIDAreNoOps(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)
	_, err := tr.AddCost(ctx, "Fuel", "2")
	require.NoError(t, err)
	before := tr.Costs()

	_, changed, err := tr.UpdateCost(ctx, "nope", "Diesel", "3")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, tr.DeleteCost(ctx, "nope"))
	assert.False(t, tr.DeleteItem(ctx, "nope"))
	assert.Equal(t, before, tr.Costs())
}

func TestTracker_UpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)
	orig, err := tr.AddItem(ctx, "Sand", "10")
	require.NoError(t, err)

	updated, changed, err := tr.UpdateItem(ctx, orig.ID, "Fine sand", "12")
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, orig.ID, updated.ID)
	assert.Equal(t, orig.Timestamp, updated.Timestamp)
	assert.Equal(t, "Fine sand", updated.Name)

	_, _, err = tr.UpdateItem(ctx, orig.ID, "Fine sand", "")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestTracker_SummaryTracksMutations(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t)
	_, _ = tr.AddItem(ctx, "Sand", "10")
	_, _ = tr.AddItem(ctx, "Gravel", "5.5")
	c, _ := tr.AddCost(ctx, "Fuel", "2")

	s := tr.Summary()
	assert.True(t, s.Total.Equal(decimal.RequireFromString("17.5")))
	assert.Equal(t, 2, s.ItemCount)
	assert.Equal(t, 1, s.CostCount)

	tr.DeleteCost(ctx, c.ID)
	s = tr.Summary()
	assert.True(t, s.Total.Equal(decimal.RequireFromString("15.5")))
	assert.Equal(t, 0, s.CostCount)
}

func TestTracker_ViewsAndCharts(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, WithLocale(language.English))
	_, _ = tr.AddItem(ctx, "b", "3")
	_, _ = tr.AddItem(ctx, "a", "1")
	_, _ = tr.AddItem(ctx, "c", "2")

	newest := tr.ItemView(view.Config{})
	assert.Equal(t, "c", newest.Records[0].Name)

	byName := tr.ItemView(view.Config{Sort: view.SortNameAsc, Min: decimal.NewNullDecimal(decimal.NewFromInt(2))})
	require.Equal(t, 2, byName.Count)
	assert.Equal(t, "b", byName.Records[0].Name)
	assert.True(t, byName.Total.Equal(decimal.NewFromInt(5)))

	charts := tr.ItemCharts()
	assert.Len(t, charts.Categorical, 3)
	assert.True(t, charts.Renderable)
	assert.False(t, tr.CostCharts().Renderable)
	assert.Empty(t, tr.CostView(view.Config{}).Records)
}

func TestTracker_ReplicatesWithClientIDs(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory(nil)
	rec := &recorder{}
	tr := newTracker(t,
		WithUser("alice"),
		WithReplicator(NewDirectReplicator(mem, nil)),
		WithReplicationCallback(rec.record))

	it, err := tr.AddItem(ctx, "Sand", "10")
	require.NoError(t, err)
	_, _, err = tr.UpdateItem(ctx, it.ID, "Sand", "11")
	require.NoError(t, err)
	c, err := tr.AddCost(ctx, "Fuel", "2")
	require.NoError(t, err)
	tr.DeleteCost(ctx, c.ID)
	tr.Wait()

	results := rec.all()
	require.Len(t, results, 4)
	assert.Equal(t, it.ID, results[0].RemoteID)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}

	items, _, err := remote.ListItems(ctx, mem, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)
	assert.True(t, items[0].Cost.Equal(decimal.NewFromInt(11)))

	costs, _, err := remote.ListCosts(ctx, mem, "alice")
	require.NoError(t, err)
	assert.Empty(t, costs)
}

func TestTracker_UpdateRacingDeleteNeverReplicatesEmptyRecord(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory(nil)
	rec := &recorder{}
	tr := newTracker(t,
		WithUser("alice"),
		WithReplicator(NewDirectReplicator(mem, nil)),
		WithReplicationCallback(rec.record))

	for range 200 {
		it, err := tr.AddItem(ctx, "Sand", "1")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = tr.UpdateItem(ctx, it.ID, "Gravel", "2")
		}()
		go func() {
			defer wg.Done()
			tr.DeleteItem(ctx, it.ID)
		}()
		wg.Wait()
	}
	tr.Wait()

	for _, r := range rec.all() {
		assert.NotEmpty(t, r.Mutation.Document.ID, "op %s", r.Mutation.Op)
	}
	assert.Empty(t, tr.Items())
}

type failingStore struct{ remote.Store }

func (failingStore) Create(context.Context, string, core.Kind, remote.Document) (string, error) {
	return "", errors.New("permission denied")
}

func TestTracker_ReplicationFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	tr := newTracker(t,
		WithUser("alice"),
		WithReplicator(NewDirectReplicator(failingStore{}, nil)),
		WithReplicationCallback(rec.record))

	_, err := tr.AddItem(ctx, "Sand", "10")
	require.NoError(t, err)
	tr.Wait()

	assert.Len(t, tr.Items(), 1)
	results := rec.all()
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "permission denied")
}

func TestTracker_NoUserMeansLocalOnly(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory(nil)
	tr := newTracker(t, WithReplicator(NewDirectReplicator(mem, nil)))

	_, err := tr.AddItem(ctx, "Sand", "10")
	require.NoError(t, err)
	tr.Wait()

	assert.ErrorIs(t, tr.Hydrate(ctx), ErrNoRemote)
}

func TestTracker_Hydrate(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory(nil)
	ts := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err := mem.Create(ctx, "alice", core.KindItems, remote.Document{ID: "i1", Label: "Sand", Amount: decimal.NewFromInt(4), Timestamp: ts})
	require.NoError(t, err)
	_, err = mem.Create(ctx, "alice", core.KindCosts, remote.Document{ID: "c1", Label: "Fuel", Amount: decimal.NewFromInt(1), Timestamp: ts})
	require.NoError(t, err)

	tr := newTracker(t, WithUser("alice"), WithRemote(mem))
	_, _ = tr.AddItem(ctx, "local only", "1")

	require.NoError(t, tr.Hydrate(ctx))
	require.Len(t, tr.Items(), 1)
	assert.Equal(t, "i1", tr.Items()[0].ID)
	require.Len(t, tr.Costs(), 1)
	assert.Equal(t, "Fuel", tr.Costs()[0].Description)
}

type fixedList struct {
	*remote.Memory
	docs map[core.Kind][]remote.Document
}

func (f fixedList) ListAll(_ context.Context, _ string, kind core.Kind) ([]remote.Document, error) {
	return f.docs[kind], nil
}

func TestTracker_HydrateSkipsInvalidRemoteRecords(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	src := fixedList{Memory: remote.NewMemory(nil), docs: map[core.Kind][]remote.Document{
		core.KindItems: {
			{ID: "i1", Label: "  ", Amount: decimal.NewFromInt(-7), Timestamp: ts},
			{ID: "i2", Label: "Sand", Amount: decimal.NewFromInt(4), Timestamp: ts},
			{ID: "i2", Label: "Sand again", Amount: decimal.NewFromInt(9), Timestamp: ts},
		},
		core.KindCosts: {
			{ID: "c1", Label: "", Amount: decimal.NewFromInt(-50), Timestamp: ts},
			{ID: "c2", Label: "Fuel", Amount: decimal.NewFromInt(-1), Timestamp: ts},
			{ID: "c3", Label: "Tolls", Amount: decimal.NewFromInt(2), Timestamp: ts},
		},
	}}
	tr := newTracker(t, WithUser("alice"), WithRemote(src))

	require.NoError(t, tr.Hydrate(ctx))

	items := tr.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Sand", items[0].Name)
	costs := tr.Costs()
	require.Len(t, costs, 1)
	assert.Equal(t, "c3", costs[0].ID)
	for _, it := range items {
		assert.NoError(t, it.Validate())
	}
	for _, c := range costs {
		assert.NoError(t, c.Validate())
	}

	sum := tr.Summary()
	assert.True(t, sum.ItemsTotal.Equal(decimal.NewFromInt(4)), sum.ItemsTotal.String())
	assert.True(t, sum.CostsTotal.Equal(decimal.NewFromInt(2)), sum.CostsTotal.String())
}

type listFailure struct{ *remote.Memory }

func (listFailure) ListAll(context.Context, string, core.Kind) ([]remote.Document, error) {
	return nil, errors.New("offline")
}

func TestTracker_HydrateFailureLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, WithUser("alice"), WithRemote(listFailure{remote.NewMemory(nil)}))
	_, _ = tr.AddItem(ctx, "Sand", "1")

	assert.ErrorContains(t, tr.Hydrate(ctx), "offline")
	assert.Len(t, tr.Items(), 1)
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.RecordSyncMessage
}

func (p *fakePublisher) PublishRecordSync(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestAMQPReplicator_PublishesInOrder(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	tr := newTracker(t, WithUser("alice"), WithReplicator(NewAMQPReplicator(pub, nil)))

	it, _ := tr.AddItem(ctx, "Sand", "10")
	tr.DeleteItem(ctx, it.ID)
	tr.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, amqp.OpCreate, pub.msgs[0].Op)
	assert.Equal(t, amqp.OpDelete, pub.msgs[1].Op)
	assert.Equal(t, it.ID, pub.msgs[1].Document.ID)
	assert.Equal(t, "alice", pub.msgs[0].User)
}

func TestApplyMutation_Upserts(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory(nil)
	doc := remote.Document{ID: "c1", Label: "Fuel"}

	_, err := ApplyMutation(ctx, mem, Mutation{User: "u", Kind: core.KindCosts, Op: OpUpdate, Document: doc})
	require.NoError(t, err)
	docs, _ := mem.ListAll(ctx, "u", core.KindCosts)
	assert.Len(t, docs, 1)

	_, err = ApplyMutation(ctx, mem, Mutation{User: "u", Kind: core.KindCosts, Op: OpDelete, Document: remote.Document{ID: "gone"}})
	assert.NoError(t, err)

	_, err = ApplyMutation(ctx, mem, Mutation{User: "u", Kind: core.KindCosts, Op: Op("merge"), Document: doc})
	assert.Error(t, err)
}
