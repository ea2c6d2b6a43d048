package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	KindItems Kind = "items"
	KindCosts Kind = "costs"
)

// MaxLabelLength caps item names and cost descriptions.
const MaxLabelLength = 200

type (
	// Kind names an entity collection. Item and cost ids live in separate
	// identity spaces, one per kind.
	Kind string

	// Item is a purchased unit.
	Item struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Cost      decimal.Decimal `json:"cost"`
		Timestamp time.Time       `json:"timestamp"`
	}

	// Cost is a miscellaneous project expense ("other expense").
	Cost struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Timestamp   time.Time       `json:"timestamp"`
	}

	// ItemPatch holds the mutable fields of an Item.
	ItemPatch struct {
		Name string
		Cost decimal.Decimal
	}

	// CostPatch holds the mutable fields of a Cost.
	CostPatch struct {
		Description string
		Amount      decimal.Decimal
	}
)

// Record is the shape shared by items and costs. Stores, aggregation, views
// and chart mapping are written against it.
type Record interface {
	Identity() string
	Label() string
	Value() decimal.Decimal
	When() time.Time
}

var (
	_ Record = Item{}
	_ Record = Cost{}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrTooLong          = errors.New("label too long (max 200 characters)")
	ErrEmptyID          = errors.New("empty id")
	ErrInvalidKind      = errors.New("invalid kind")
)

func (k Kind) String() string { return string(k) }

// Validate reports whether k names a known collection.
func (k Kind) Validate() error {
	switch k {
	case KindItems, KindCosts:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ParseKind accepts the plural collection name or its singular form.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "items", "item":
		return KindItems, nil
	case "costs", "cost":
		return KindCosts, nil
	default:
		return "", ErrInvalidKind
	}
}

func (i Item) Identity() string       { return i.ID }
func (i Item) Label() string          { return i.Name }
func (i Item) Value() decimal.Decimal { return i.Cost }
func (i Item) When() time.Time        { return i.Timestamp }

func (c Cost) Identity() string       { return c.ID }
func (c Cost) Label() string          { return c.Description }
func (c Cost) Value() decimal.Decimal { return c.Amount }
func (c Cost) When() time.Time        { return c.Timestamp }

// Validate checks the invariants every stored Item must hold.
func (i Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrEmptyID
	}
	return ItemPatch{Name: i.Name, Cost: i.Cost}.Validate()
}

// Validate checks the invariants every stored Cost must hold.
func (c Cost) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	return CostPatch{Description: c.Description, Amount: c.Amount}.Validate()
}

func (p ItemPatch) Validate() error {
	if err := validateLabel(p.Name, ErrEmptyName); err != nil {
		return err
	}
	if p.Cost.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (p CostPatch) Validate() error {
	if err := validateLabel(p.Description, ErrEmptyDescription); err != nil {
		return err
	}
	if p.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Apply returns it with the patched fields replaced. ID and Timestamp are kept.
func (p ItemPatch) Apply(it Item) Item {
	it.Name = p.Name
	it.Cost = p.Cost
	return it
}

// Apply returns c with the patched fields replaced. ID and Timestamp are kept.
func (p CostPatch) Apply(c Cost) Cost {
	c.Description = p.Description
	c.Amount = p.Amount
	return c
}

// NewItemPatch parses raw form input into a validated patch.
func NewItemPatch(name, cost string) (ItemPatch, error) {
	amount, err := ParseAmount(cost)
	if err != nil {
		return ItemPatch{}, err
	}
	p := ItemPatch{Name: strings.TrimSpace(name), Cost: amount}
	if err := p.Validate(); err != nil {
		return ItemPatch{}, err
	}
	return p, nil
}

// NewCostPatch parses raw form input into a validated patch.
func NewCostPatch(description, amount string) (CostPatch, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return CostPatch{}, err
	}
	p := CostPatch{Description: strings.TrimSpace(description), Amount: value}
	if err := p.Validate(); err != nil {
		return CostPatch{}, err
	}
	return p, nil
}

// NewItem builds a validated Item stamped with now.
func NewItem(id string, p ItemPatch, now time.Time) (Item, error) {
	it := p.Apply(Item{ID: id, Timestamp: now.UTC()})
	if err := it.Validate(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// NewCost builds a validated Cost stamped with now.
func NewCost(id string, p CostPatch, now time.Time) (Cost, error) {
	c := p.Apply(Cost{ID: id, Timestamp: now.UTC()})
	if err := c.Validate(); err != nil {
		return Cost{}, err
	}
	return c, nil
}

func validateLabel(s string, emptyErr error) error {
	if len(strings.TrimSpace(s)) == 0 {
		return emptyErr
	}
	if utf8.RuneCountInString(s) > MaxLabelLength {
		return ErrTooLong
	}
	return nil
}
