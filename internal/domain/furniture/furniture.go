// Package furniture defines the catalog item model: a closed set of furniture
// kinds, the item record shared by the catalog and the cart, and a factory
// keyed by kind.
package furniture

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported furniture categories.
type Kind string

const (
	KindChair Kind = "chair"
	KindTable Kind = "table"
	KindSofa  Kind = "sofa"
	KindLamp  Kind = "lamp"
	KindShelf Kind = "shelf"
)

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	_, ok := builders[k]
	return ok
}

// ErrNegativePrice is returned when an item is created or updated with a
// price below zero.
var ErrNegativePrice = errors.New("price must not be negative")

// InvalidTypeError indicates an unknown furniture kind discriminant.
type InvalidTypeError struct {
	Kind Kind
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("unknown furniture kind %q", e.Kind)
}

// Attributes holds the kind-specific fields. Only the field matching the
// item's kind is meaningful; the rest stay at their zero values.
type Attributes struct {
	CushionMaterial string  // chair
	FrameMaterial   string  // table
	Capacity        int     // sofa
	LightSource     string  // lamp
	WallMounted     bool    // shelf
}

// Item is a single catalog entry. Identity is the ID: two items with the same
// ID are the same entry.
type Item struct {
	ID          int
	Kind        Kind
	Name        string
	Description string
	Price       decimal.Decimal
	Dimensions  [3]float64
	Attributes  Attributes
}

// Spec carries the caller-supplied fields for the factory. ID is optional;
// the catalog assigns one when it is zero.
type Spec struct {
	ID          int
	Name        string
	Description string
	Price       decimal.Decimal
	Dimensions  [3]float64
	Attributes  Attributes
}

// builders maps each kind to its constructor. Each constructor keeps only the
// attribute that belongs to its kind, so a chair spec carrying a stray
// frame material does not leak into the item.
var builders = map[Kind]func(s Spec) *Item{
	KindChair: func(s Spec) *Item {
		return build(KindChair, s, Attributes{CushionMaterial: s.Attributes.CushionMaterial})
	},
	KindTable: func(s Spec) *Item {
		return build(KindTable, s, Attributes{FrameMaterial: s.Attributes.FrameMaterial})
	},
	KindSofa: func(s Spec) *Item {
		return build(KindSofa, s, Attributes{Capacity: s.Attributes.Capacity})
	},
	KindLamp: func(s Spec) *Item {
		return build(KindLamp, s, Attributes{LightSource: s.Attributes.LightSource})
	},
	KindShelf: func(s Spec) *Item {
		return build(KindShelf, s, Attributes{WallMounted: s.Attributes.WallMounted})
	},
}

func build(kind Kind, s Spec, attrs Attributes) *Item {
	return &Item{
		ID:          s.ID,
		Kind:        kind,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		Dimensions:  s.Dimensions,
		Attributes:  attrs,
	}
}

// New constructs an item of the given kind. It returns InvalidTypeError for a
// kind outside the closed set and ErrNegativePrice for a negative price.
func New(kind Kind, s Spec) (*Item, error) {
	b, ok := builders[kind]
	if !ok {
		return nil, &InvalidTypeError{Kind: kind}
	}
	if s.Price.IsNegative() {
		return nil, ErrNegativePrice
	}
	return b(s), nil
}
