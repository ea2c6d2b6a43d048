// Package chart reshapes records into series for categorical (pie, bar) and
// temporal (line) charts.
package chart

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/core"
)

// DateLayout is the calendar date format used for temporal points.
const DateLayout = "2006-01-02"

// MinTemporalPoints is the number of points a line needs to be drawn.
const MinTemporalPoints = 2

// Slice is one pie slice or bar. Duplicate labels are not merged.
type Slice struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// Point is one point of a trend line.
type Point struct {
	Time  string          `json:"time"`
	Value decimal.Decimal `json:"value"`
}

// Bundle holds every projection of one collection.
type Bundle struct {
	Categorical []Slice `json:"categorical"`
	Temporal    []Point `json:"temporal"`
	// Renderable is false when the temporal series has too few points.
	Renderable bool `json:"temporal_renderable"`
}

// Categorical maps each record to its own slice, in input order.
func Categorical[T core.Record](records []T) []Slice {
	out := make([]Slice, 0, len(records))
	for _, r := range records {
		out = append(out, Slice{Label: r.Label(), Value: r.Value()})
	}
	return out
}

// Temporal keeps the records that carry a timestamp, labels each with its
// UTC calendar date and orders them by date, ties in input order.
func Temporal[T core.Record](records []T) []Point {
	type dated struct {
		day   time.Time
		point Point
	}
	points := make([]dated, 0, len(records))
	for _, r := range records {
		when := r.When()
		if when.IsZero() {
			continue
		}
		y, m, d := when.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		points = append(points, dated{day: day, point: Point{Time: day.Format(DateLayout), Value: r.Value()}})
	}
	slices.SortStableFunc(points, func(a, b dated) int { return a.day.Compare(b.day) })

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p.point
	}
	return out
}

// Renderable reports whether a temporal series can be drawn as a line.
func Renderable(series []Point) bool {
	return len(series) >= MinTemporalPoints
}

// Build computes every projection of records.
func Build[T core.Record](records []T) Bundle {
	temporal := Temporal(records)
	return Bundle{
		Categorical: Categorical(records),
		Temporal:    temporal,
		Renderable:  Renderable(temporal),
	}
}
