package store

import (
	"slices"
	"sync"

	"costbook/internal/core"
)

// Snapshot is a point-in-time copy of the whole state. It is what gets
// persisted locally and handed to subscribers.
type Snapshot struct {
	Items []core.Item `json:"items"`
	Costs []core.Cost `json:"costs"`

	// Versions identify the collections the snapshot was taken from.
	ItemsVersion uint64 `json:"-"`
	CostsVersion uint64 `json:"-"`
}

// Item looks up an item of the snapshot by id.
func (s Snapshot) Item(id string) (core.Item, bool) {
	return find(s.Items, id)
}

// Cost looks up a cost of the snapshot by id.
func (s Snapshot) Cost(id string) (core.Cost, bool) {
	return find(s.Costs, id)
}

func find[T core.Record](records []T, id string) (T, bool) {
	if i := slices.IndexFunc(records, func(r T) bool { return r.Identity() == id }); i >= 0 {
		return records[i], true
	}
	var zero T
	return zero, false
}

// Listener receives the state after every transition. Listeners run
// synchronously in dispatch order and may read the state, but must not
// call Dispatch, Commit or Subscribe.
type Listener func(Snapshot)

type subscription struct {
	id int
	fn Listener
}

// State owns the item and cost collections. Mutations go through Dispatch;
// reads return copies.
type State struct {
	mu    sync.RWMutex
	items *Collection[core.Item]
	costs *Collection[core.Cost]

	// notifyMu keeps notifications in dispatch order.
	notifyMu  sync.Mutex
	listeners []subscription
	nextSubID int
}

// New returns an empty state.
func New() *State {
	return &State{
		items: NewCollection[core.Item](nil),
		costs: NewCollection[core.Cost](nil),
	}
}

// NewFromSnapshot returns a state preloaded with snap.
func NewFromSnapshot(snap Snapshot) *State {
	return &State{
		items: NewCollection(snap.Items),
		costs: NewCollection(snap.Costs),
	}
}

// Dispatch applies a and, when it changed anything, notifies subscribers.
// It reports whether the state changed; unknown ids are a silent no-op.
func (s *State) Dispatch(a Action) bool {
	_, changed := s.Commit(a)
	return changed
}

// Commit is Dispatch that also returns the state as it was right after a,
// so a caller can read back its own change even while other goroutines
// dispatch concurrently.
func (s *State) Commit(a Action) (Snapshot, bool) {
	// notifyMu is always taken before mu. Listeners run with mu released so
	// they can read the state.
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !a.apply(s) {
		s.mu.Unlock()
		return Snapshot{}, false
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, sub := range s.listeners {
		sub.fn(snap)
	}
	return snap, true
}

// Subscribe registers fn and returns a function that removes it.
func (s *State) Subscribe(fn Listener) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			defer s.notifyMu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Items returns the items in insertion order.
func (s *State) Items() []core.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.All()
}

// Costs returns the costs in insertion order.
func (s *State) Costs() []core.Cost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.costs.All()
}

// Item looks up an item by id.
func (s *State) Item(id string) (core.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Get(id)
}

// Cost looks up a cost by id.
func (s *State) Cost(id string) (core.Cost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.costs.Get(id)
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Items:        s.items.All(),
		Costs:        s.costs.All(),
		ItemsVersion: s.items.Version(),
		CostsVersion: s.costs.Version(),
	}
}
