// Package view builds the ordered, range filtered lists shown to users.
package view

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"costbook/internal/aggregate"
	"costbook/internal/core"
)

// SortKey selects the list ordering.
type SortKey string

const (
	SortNone      SortKey = "none"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortValueAsc  SortKey = "value-asc"
	SortValueDesc SortKey = "value-desc"
	SortDateAsc   SortKey = "date-asc"
	SortDateDesc  SortKey = "date-desc"
)

var ErrUnknownSortKey = errors.New("unknown sort key")

// SortKeys lists every accepted key in menu order.
func SortKeys() []SortKey {
	return []SortKey{SortNone, SortNameAsc, SortNameDesc, SortValueAsc, SortValueDesc, SortDateAsc, SortDateDesc}
}

// ParseSortKey accepts the canonical keys, "" for none, and the cost-/amount-
// spellings of the value keys.
func ParseSortKey(s string) (SortKey, error) {
	switch k := strings.ToLower(strings.TrimSpace(s)); k {
	case "", "none", "newest":
		return SortNone, nil
	case "cost-asc", "amount-asc":
		return SortValueAsc, nil
	case "cost-desc", "amount-desc":
		return SortValueDesc, nil
	default:
		if slices.Contains(SortKeys(), SortKey(k)) {
			return SortKey(k), nil
		}
		return SortNone, fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

// Config parameterizes one view request. An invalid (unset) bound leaves
// that side unbounded.
type Config struct {
	Min  decimal.NullDecimal
	Max  decimal.NullDecimal
	Sort SortKey

	// Locale drives name collation. The zero Tag uses the root collation.
	Locale language.Tag
}

// ParseBound turns a form value into a bound. Blank input means "no bound",
// which is different from a bound of 0.
func ParseBound(s string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := core.ParseSignedAmount(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid bound %q: %w", s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseConfig builds a Config from raw form values.
func ParseConfig(minValue, maxValue, sortKey string, locale language.Tag) (Config, error) {
	lo, err := ParseBound(minValue)
	if err != nil {
		return Config{}, err
	}
	hi, err := ParseBound(maxValue)
	if err != nil {
		return Config{}, err
	}
	key, err := ParseSortKey(sortKey)
	if err != nil {
		return Config{}, err
	}
	return Config{Min: lo, Max: hi, Sort: key, Locale: locale}, nil
}

// Result is the displayed list plus its count and sum.
type Result[T core.Record] struct {
	Records []T             `json:"records"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
}

// Apply filters records to [Min, Max] and orders them by cfg.Sort, newest
// first when no sort is chosen. Ties keep their input order. The input slice
// is not modified.
func Apply[T core.Record](records []T, cfg Config) Result[T] {
	out := Filter(records, cfg.Min, cfg.Max)
	slices.SortStableFunc(out, comparator[T](cfg))
	return Result[T]{
		Records: out,
		Count:   len(out),
		Total:   aggregate.Sum(out),
	}
}

// Filter returns a new slice with the records whose value lies within the
// given bounds.
func Filter[T core.Record](records []T, lo, hi decimal.NullDecimal) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v := r.Value()
		if lo.Valid && v.LessThan(lo.Decimal) {
			continue
		}
		if hi.Valid && v.GreaterThan(hi.Decimal) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func comparator[T core.Record](cfg Config) func(a, b T) int {
	switch cfg.Sort {
	case SortNameAsc, SortNameDesc:
		col := collate.New(cfg.Locale)
		if cfg.Sort == SortNameDesc {
			return func(a, b T) int { return col.CompareString(b.Label(), a.Label()) }
		}
		return func(a, b T) int { return col.CompareString(a.Label(), b.Label()) }
	case SortValueAsc:
		return func(a, b T) int { return a.Value().Cmp(b.Value()) }
	case SortValueDesc:
		return func(a, b T) int { return b.Value().Cmp(a.Value()) }
	case SortDateAsc:
		return func(a, b T) int { return a.When().Compare(b.When()) }
	default:
		return func(a, b T) int { return b.When().Compare(a.When()) }
	}
}
