package store

import "costbook/internal/core"

// Action is a state transition. Actions are built from already validated
// values; the store itself never rejects one.
type Action interface {
	// Name identifies the action in logs.
	Name() string
	apply(s *State) bool
}

type (
	AddItem    struct{ Item core.Item }
	UpdateItem struct {
		ID    string
		Patch core.ItemPatch
	}
	DeleteItem struct{ ID string }

	AddCost    struct{ Cost core.Cost }
	UpdateCost struct {
		ID    string
		Patch core.CostPatch
	}
	DeleteCost struct{ ID string }

	// Restore replaces both collections, as on startup or after a remote pull.
	Restore struct{ Snapshot Snapshot }
)

func (AddItem) Name() string    { return "items/add" }
func (UpdateItem) Name() string { return "items/update" }
func (DeleteItem) Name() string { return "items/delete" }
func (AddCost) Name() string    { return "costs/add" }
func (UpdateCost) Name() string { return "costs/update" }
func (DeleteCost) Name() string { return "costs/delete" }
func (Restore) Name() string    { return "state/restore" }

func (a AddItem) apply(s *State) bool {
	s.items.Add(a.Item)
	return true
}

func (a UpdateItem) apply(s *State) bool {
	return s.items.UpdateByID(a.ID, a.Patch.Apply)
}

func (a DeleteItem) apply(s *State) bool {
	return s.items.DeleteByID(a.ID)
}

func (a AddCost) apply(s *State) bool {
	s.costs.Add(a.Cost)
	return true
}

func (a UpdateCost) apply(s *State) bool {
	return s.costs.UpdateByID(a.ID, a.Patch.Apply)
}

func (a DeleteCost) apply(s *State) bool {
	return s.costs.DeleteByID(a.ID)
}

func (a Restore) apply(s *State) bool {
	s.items.Replace(a.Snapshot.Items)
	s.costs.Replace(a.Snapshot.Costs)
	return true
}
