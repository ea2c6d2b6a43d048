package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costbook/internal/core"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func item(id, name string, cost int64) core.Item {
	return core.Item{ID: id, Name: name, Cost: decimal.NewFromInt(cost), Timestamp: t0}
}

func cost(id, desc string, amount int64) core.Cost {
	return core.Cost{ID: id, Description: desc, Amount: decimal.NewFromInt(amount), Timestamp: t0}
}

func TestCollection_AddPreservesInsertionOrder(t *testing.T) {
	c := NewCollection[core.Item](nil)
	c.Add(item("b", "B", 1))
	c.Add(item("a", "A", 2))
	c.Add(item("c", "C", 3))

	ids := []string{}
	for _, it := range c.All() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Equal(t, 3, c.Len())
}

func TestCollection_UpdateKeepsIdentity(t *testing.T) {
	c := NewCollection([]core.Item{item("a", "A", 1)})
	ok := c.UpdateByID("a", core.ItemPatch{Name: "A2", Cost: decimal.NewFromInt(9)}.Apply)
	require.True(t, ok)

	got, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "A2", got.Name)
	assert.True(t, got.Cost.Equal(decimal.NewFromInt(9)))
	assert.Equal(t, t0, got.Timestamp)
}

func TestCollection_MissingIDIsNoOp(t *testing.T) {
	c := NewCollection([]core.Cost{cost("a", "A", 1), cost("b", "B", 2)})
	before := c.All()
	version := c.Version()

	assert.False(t, c.UpdateByID("zzz", core.CostPatch{Description: "x"}.Apply))
	assert.False(t, c.DeleteByID("zzz"))

	assert.Equal(t, before, c.All())
	assert.Equal(t, version, c.Version())
}

func TestCollection_DeleteKeepsRelativeOrder(t *testing.T) {
	c := NewCollection([]core.Cost{cost("a", "A", 1), cost("b", "B", 2), cost("c", "C", 3)})
	require.True(t, c.DeleteByID("b"))

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[1].ID)
}

func TestCollection_AllReturnsCopy(t *testing.T) {
	c := NewCollection([]core.Item{item("a", "A", 1)})
	all := c.All()
	all[0].Name = "mutated"

	got, _ := c.Get("a")
	assert.Equal(t, "A", got.Name)
}

func TestCollection_VersionsAreUnique(t *testing.T) {
	a := NewCollection[core.Item](nil)
	b := NewCollection[core.Item](nil)
	assert.NotEqual(t, a.Version(), b.Version())

	v := a.Version()
	a.Add(item("x", "X", 1))
	assert.NotEqual(t, v, a.Version())
}

func TestState_DispatchNotifiesOnChangeOnly(t *testing.T) {
	s := New()
	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	assert.True(t, s.Dispatch(AddItem{Item: item("i1", "Sand", 10)}))
	assert.True(t, s.Dispatch(AddCost{Cost: cost("c1", "Fuel", 2)}))
	assert.False(t, s.Dispatch(DeleteItem{ID: "missing"}))
	assert.False(t, s.Dispatch(UpdateCost{ID: "missing", Patch: core.CostPatch{Description: "x"}}))

	require.Len(t, got, 2)
	assert.Len(t, got[1].Items, 1)
	assert.Len(t, got[1].Costs, 1)

	unsubscribe()
	unsubscribe()
	s.Dispatch(DeleteItem{ID: "i1"})
	assert.Len(t, got, 2, "unsubscribed listener must not be called")
	assert.Empty(t, s.Items())
}

func TestState_SubscribersRunInOrder(t *testing.T) {
	s := New()
	var order []string
	s.Subscribe(func(Snapshot) { order = append(order, "first") })
	s.Subscribe(func(Snapshot) { order = append(order, "second") })

	s.Dispatch(AddItem{Item: item("i1", "Sand", 10)})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestState_Restore(t *testing.T) {
	s := New()
	s.Dispatch(AddItem{Item: item("old", "Old", 1)})

	snap := Snapshot{
		Items: []core.Item{item("i1", "Sand", 10), item("i2", "Gravel", 5)},
		Costs: []core.Cost{cost("c1", "Fuel", 2)},
	}
	require.True(t, s.Dispatch(Restore{Snapshot: snap}))

	assert.Equal(t, snap.Items, s.Items())
	assert.Equal(t, snap.Costs, s.Costs())

	_, found := s.Item("old")
	assert.False(t, found)
	c, found := s.Cost("c1")
	require.True(t, found)
	assert.Equal(t, "Fuel", c.Description)
}

func TestState_SnapshotVersionsTrackMutations(t *testing.T) {
	s := NewFromSnapshot(Snapshot{Items: []core.Item{item("i1", "Sand", 10)}})
	before := s.Snapshot()

	s.Dispatch(AddCost{Cost: cost("c1", "Fuel", 2)})
	after := s.Snapshot()

	assert.Equal(t, before.ItemsVersion, after.ItemsVersion)
	assert.NotEqual(t, before.CostsVersion, after.CostsVersion)
}

func TestState_ListenersMayReadWhileOthersDispatch(t *testing.T) {
	s := New()
	var reads atomic.Int64
	s.Subscribe(func(Snapshot) {
		time.Sleep(time.Millisecond)
		_ = s.Items()
		_ = s.Snapshot()
		reads.Add(1)
	})

	const workers, perWorker = 4, 20
	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perWorker {
					s.Dispatch(AddItem{Item: item(fmt.Sprintf("w%d-%d", w, i), "Sand", 1)})
				}
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("dispatch did not complete while a listener was reading state")
	}
	assert.Equal(t, int64(workers*perWorker), reads.Load())
	assert.Len(t, s.Items(), workers*perWorker)
}

func TestState_CommitReturnsOwnChange(t *testing.T) {
	s := NewFromSnapshot(Snapshot{Items: []core.Item{item("i1", "Sand", 10)}})

	snap, ok := s.Commit(UpdateItem{ID: "i1", Patch: core.ItemPatch{Name: "Gravel", Cost: decimal.NewFromInt(4)}})
	require.True(t, ok)
	require.True(t, s.Dispatch(DeleteItem{ID: "i1"}))

	got, found := snap.Item("i1")
	require.True(t, found)
	assert.Equal(t, "Gravel", got.Name)
	_, found = s.Item("i1")
	assert.False(t, found)

	_, ok = s.Commit(UpdateItem{ID: "i1", Patch: core.ItemPatch{Name: "x"}})
	assert.False(t, ok)
	_, found = snap.Cost("i1")
	assert.False(t, found)
}
