// Package aggregate derives totals and counts from the item and cost
// collections.
package aggregate

import (
	"github.com/shopspring/decimal"

	"costbook/internal/cache"
	"costbook/internal/core"
	"costbook/internal/store"
)

// Summary is what the dashboard cards show.
type Summary struct {
	Total      decimal.Decimal `json:"total"`
	ItemsTotal decimal.Decimal `json:"items_total"`
	CostsTotal decimal.Decimal `json:"costs_total"`
	ItemCount  int             `json:"item_count"`
	CostCount  int             `json:"cost_count"`
}

// Sum adds up the value of every record. A zero (missing) value counts as 0.
func Sum[T core.Record](records []T) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value())
	}
	return total
}

// TotalCost is the sum of every item cost and every cost amount.
func TotalCost(items []core.Item, costs []core.Cost) decimal.Decimal {
	return Sum(items).Add(Sum(costs))
}

func ItemCount(items []core.Item) int { return len(items) }

func CostCount(costs []core.Cost) int { return len(costs) }

// Summarize computes a Summary from scratch.
func Summarize(items []core.Item, costs []core.Cost) Summary {
	itemsTotal, costsTotal := Sum(items), Sum(costs)
	return Summary{
		Total:      itemsTotal.Add(costsTotal),
		ItemsTotal: itemsTotal,
		CostsTotal: costsTotal,
		ItemCount:  ItemCount(items),
		CostCount:  CostCount(costs),
	}
}

type versionKey struct {
	items, costs uint64
}

// Selector memoizes Summarize on the identity of the two collections a
// snapshot was taken from. Every mutation produces a new collection version,
// so a cached Summary is never stale.
type Selector struct {
	memo cache.Cache[versionKey, Summary]
}

// NewSelector keeps up to size summaries.
func NewSelector(size int) *Selector {
	return &Selector{memo: cache.NewLRUCache[versionKey, Summary](size)}
}

// Summary returns the summary of snap, computing it at most once per pair
// of collection versions.
func (s *Selector) Summary(snap store.Snapshot) Summary {
	key := versionKey{items: snap.ItemsVersion, costs: snap.CostsVersion}
	if key == (versionKey{}) {
		return Summarize(snap.Items, snap.Costs)
	}
	if v, ok := s.memo.Get(key); ok {
		return v
	}
	v := Summarize(snap.Items, snap.Costs)
	s.memo.Set(key, v)
	return v
}
