package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costbook/internal/core"
	"costbook/internal/store"
)

func sampleItem(id string) core.Item {
	return core.Item{ID: id, Name: "Sand", Cost: decimal.NewFromInt(10), Timestamp: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestMemory_LoadEmptyReturnsNil(t *testing.T) {
	snap, err := NewMemory().Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	want := store.Snapshot{
		Items: []core.Item{sampleItem("i1")},
		Costs: []core.Cost{{ID: "c1", Description: "Fuel", Amount: decimal.RequireFromString("2.50"), Timestamp: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}},
	}
	require.NoError(t, m.Save(context.Background(), want))

	got, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "i1", got.Items[0].ID)
	assert.True(t, got.Items[0].Cost.Equal(want.Items[0].Cost))
	assert.True(t, got.Costs[0].Amount.Equal(want.Costs[0].Amount))
	assert.True(t, got.Costs[0].Timestamp.Equal(want.Costs[0].Timestamp))
}

func TestBridge_RestoresOnAttach(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Save(context.Background(), store.Snapshot{Items: []core.Item{sampleItem("i1")}}))

	state := store.New()
	b, err := Attach(context.Background(), state, m, nil)
	require.NoError(t, err)
	defer b.Close()

	require.Len(t, state.Items(), 1)
	assert.Equal(t, "i1", state.Items()[0].ID)
}

func TestBridge_SavesLatestSnapshotOnClose(t *testing.T) {
	m := NewMemory()
	state := store.New()
	b, err := Attach(context.Background(), state, m, nil)
	require.NoError(t, err)

	state.Dispatch(store.AddItem{Item: sampleItem("i1")})
	state.Dispatch(store.AddItem{Item: sampleItem("i2")})
	state.Dispatch(store.DeleteItem{ID: "i1"})
	b.Close()
	b.Close()

	got, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "i2", got.Items[0].ID)

	// detached after close
	saves := m.Saves()
	state.Dispatch(store.AddItem{Item: sampleItem("i3")})
	assert.Equal(t, saves, m.Saves())
}

type failingSnapshotter struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSnapshotter) Load(context.Context) (*store.Snapshot, error) { return nil, nil }

func (f *failingSnapshotter) Save(context.Context, store.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func TestBridge_SaveFailureKeepsLocalState(t *testing.T) {
	f := &failingSnapshotter{}
	state := store.New()
	b, err := Attach(context.Background(), state, f, nil)
	require.NoError(t, err)

	assert.True(t, state.Dispatch(store.AddItem{Item: sampleItem("i1")}))
	b.Close()

	assert.Len(t, state.Items(), 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.GreaterOrEqual(t, f.calls, 1)
}

type brokenLoad struct{ failingSnapshotter }

func (*brokenLoad) Load(context.Context) (*store.Snapshot, error) {
	return nil, errors.New("corrupt")
}

func TestBridge_LoadErrorIsReturned(t *testing.T) {
	_, err := Attach(context.Background(), store.New(), &brokenLoad{}, nil)
	assert.ErrorContains(t, err, "load snapshot")
}
