// Package remote defines the per-user document store records are replicated
// to, and an in-memory implementation of it.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/core"
)

var (
	ErrNotFound    = errors.New("remote document not found")
	ErrEmptyUser   = errors.New("remote user is required")
	ErrDuplicateID = errors.New("duplicate remote document id")
)

// Document is the stored shape of an item or a cost. Label holds the name or
// description and Amount the cost or amount, depending on the kind.
type Document struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is a remote collection of documents scoped by user and kind.
// Create returns the remote id, which equals doc.ID when one is supplied.
type Store interface {
	Create(ctx context.Context, user string, kind core.Kind, doc Document) (string, error)
	Update(ctx context.Context, user string, kind core.Kind, id string, doc Document) error
	Delete(ctx context.Context, user string, kind core.Kind, id string) error
	ListAll(ctx context.Context, user string, kind core.Kind) ([]Document, error)
}

// FromRecord converts an item or a cost to a Document.
func FromRecord(r core.Record) Document {
	return Document{
		ID:        r.Identity(),
		Label:     r.Label(),
		Amount:    r.Value(),
		Timestamp: r.When(),
	}
}

func (d Document) Item() core.Item {
	return core.Item{ID: d.ID, Name: d.Label, Cost: d.Amount, Timestamp: d.Timestamp}
}

func (d Document) Cost() core.Cost {
	return core.Cost{ID: d.ID, Description: d.Label, Amount: d.Amount, Timestamp: d.Timestamp}
}

// Rejected is a remote document left out of a listing because it breaks a
// record invariant or repeats an id already listed.
type Rejected struct {
	ID  string
	Err error
}

// ListItems fetches every valid item stored for user. Invalid documents and
// repeated ids are returned as rejected instead of failing the listing.
func ListItems(ctx context.Context, s Store, user string) ([]core.Item, []Rejected, error) {
	return list(ctx, s, user, core.KindItems, Document.Item)
}

// ListCosts fetches every valid cost stored for user, like ListItems.
func ListCosts(ctx context.Context, s Store, user string) ([]core.Cost, []Rejected, error) {
	return list(ctx, s, user, core.KindCosts, Document.Cost)
}

type validatable interface {
	core.Record
	Validate() error
}

func list[T validatable](ctx context.Context, s Store, user string, kind core.Kind, convert func(Document) T) ([]T, []Rejected, error) {
	docs, err := s.ListAll(ctx, user, kind)
	if err != nil {
		return nil, nil, err
	}
	records := make([]T, 0, len(docs))
	var rejected []Rejected
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		r := convert(d)
		if err := r.Validate(); err != nil {
			rejected = append(rejected, Rejected{ID: d.ID, Err: err})
			continue
		}
		if _, dup := seen[d.ID]; dup {
			rejected = append(rejected, Rejected{ID: d.ID, Err: ErrDuplicateID})
			continue
		}
		seen[d.ID] = struct{}{}
		records = append(records, r)
	}
	return records, rejected, nil
}

// CheckScope validates the user and kind every Store call is scoped by.
func CheckScope(user string, kind core.Kind) error {
	if user == "" {
		return ErrEmptyUser
	}
	return kind.Validate()
}
