// Package cart implements the composite shopping cart: leaf purchase lines
// and nested discountable bundles sharing one pricing contract, plus the
// per-user cart registry.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/catalog"
)

// FurnitureNotFoundError indicates an add referenced a missing catalog entry.
type FurnitureNotFoundError struct {
	FurnitureID int
}

func (e *FurnitureNotFoundError) Error() string {
	return fmt.Sprintf("furniture %d not found in catalog", e.FurnitureID)
}

// ItemNotFoundError indicates no cart leaf matched the given criteria.
type ItemNotFoundError struct {
	FurnitureID int
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("cart has no item for furniture %d", e.FurnitureID)
}

// InvalidQuantityError indicates a non-positive quantity.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be a positive integer, got %d", e.Quantity)
}

// InvalidDiscountError indicates a discount below zero or above the unit
// price. Discounts are rejected, never clamped.
type InvalidDiscountError struct {
	FurnitureID int
	Discount    decimal.Decimal
	UnitPrice   decimal.Decimal
}

func (e *InvalidDiscountError) Error() string {
	return fmt.Sprintf("discount %s exceeds unit price %s for furniture %d",
		e.Discount, e.UnitPrice, e.FurnitureID)
}

// Node is a cart tree node: either a *Leaf or a *Bundle. Every node answers
// the same pricing contract, so arbitrarily nested bundles need no special
// handling at call sites.
type Node interface {
	TotalPrice() decimal.Decimal

	appendLeaves(dst []*Leaf) []*Leaf
}

// Leaf is an indivisible cart entry: one catalog item, a quantity, the unit
// price captured when the item was added, and an optional flat discount.
// Later catalog price changes do not affect existing leaves.
type Leaf struct {
	FurnitureID int
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

// TotalPrice returns max(0, unit price - discount) * quantity.
func (l *Leaf) TotalPrice() decimal.Decimal {
	unit := l.UnitPrice.Sub(l.Discount)
	if unit.IsNegative() {
		unit = decimal.Zero
	}
	return unit.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l *Leaf) appendLeaves(dst []*Leaf) []*Leaf {
	return append(dst, l)
}

// Bundle is a composite node owning an ordered collection of children,
// leaves or nested bundles.
type Bundle struct {
	Name     string
	children []Node
}

// NewBundle creates a bundle with the given children.
func NewBundle(name string, children ...Node) *Bundle {
	return &Bundle{Name: name, children: children}
}

// Add appends a child node.
func (b *Bundle) Add(n Node) {
	b.children = append(b.children, n)
}

// Children returns the ordered child nodes.
func (b *Bundle) Children() []Node {
	return b.children
}

// TotalPrice is the recursive sum of the children's totals.
func (b *Bundle) TotalPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, n := range b.children {
		sum = sum.Add(n.TotalPrice())
	}
	return sum
}

func (b *Bundle) appendLeaves(dst []*Leaf) []*Leaf {
	for _, n := range b.children {
		dst = n.appendLeaves(dst)
	}
	return dst
}

// removeFirst removes the first child (depth-first) whose leaf matches.
func (b *Bundle) removeFirst(match func(*Leaf) bool) bool {
	for i, n := range b.children {
		switch v := n.(type) {
		case *Leaf:
			if match(v) {
				b.children = append(b.children[:i], b.children[i+1:]...)
				return true
			}
		case *Bundle:
			if v.removeFirst(match) {
				return true
			}
		}
	}
	return false
}

// findFirst returns the first leaf (depth-first) that matches.
func (b *Bundle) findFirst(match func(*Leaf) bool) *Leaf {
	for _, n := range b.children {
		switch v := n.(type) {
		case *Leaf:
			if match(v) {
				return v
			}
		case *Bundle:
			if l := v.findFirst(match); l != nil {
				return l
			}
		}
	}
	return nil
}

// Flatten collects every leaf under the node, depth-first. Leaves for the
// same furniture ID in different branches stay separate; nothing is merged.
func Flatten(n Node) []*Leaf {
	return n.appendLeaves(nil)
}

// Line is a flattened, read-only projection of one leaf.
type Line struct {
	FurnitureID int
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

// Cart is one user's shopping cart: a single root bundle keyed by email.
type Cart struct {
	UserEmail string
	root      *Bundle
}

// New creates an empty cart for the given user email.
func New(email string) *Cart {
	return &Cart{UserEmail: email, root: NewBundle("root")}
}

// AddItem appends a new leaf for the given catalog item. The current catalog
// price is captured as the leaf's unit price. A second add for the same
// furniture ID appends a second leaf rather than merging quantities; replace
// semantics are handled by clearing first.
func (c *Cart) AddItem(cat *catalog.Catalog, furnitureID, quantity int, discount decimal.Decimal) error {
	if quantity <= 0 {
		return &InvalidQuantityError{Quantity: quantity}
	}
	it, ok := cat.Get(furnitureID)
	if !ok {
		return &FurnitureNotFoundError{FurnitureID: furnitureID}
	}
	if discount.IsNegative() || discount.GreaterThan(it.Price) {
		return &InvalidDiscountError{FurnitureID: furnitureID, Discount: discount, UnitPrice: it.Price}
	}

	c.root.Add(&Leaf{
		FurnitureID: furnitureID,
		Quantity:    quantity,
		UnitPrice:   it.Price,
		Discount:    discount,
	})
	return nil
}

// Add appends an arbitrary node (typically a nested bundle) to the root.
func (c *Cart) Add(n Node) {
	c.root.Add(n)
}

// RemoveItem removes the first leaf whose furniture ID, unit price, and
// quantity all match exactly. Removal is a structural edit of the tree, not
// a quantity decrement.
func (c *Cart) RemoveItem(furnitureID, quantity int, unitPrice decimal.Decimal) error {
	removed := c.root.removeFirst(func(l *Leaf) bool {
		return l.FurnitureID == furnitureID &&
			l.Quantity == quantity &&
			l.UnitPrice.Equal(unitPrice)
	})
	if !removed {
		return &ItemNotFoundError{FurnitureID: furnitureID}
	}
	return nil
}

// ApplyDiscount sets a flat discount on the first leaf for the given
// furniture ID. A discount above the unit price or below zero is rejected
// and the leaf keeps its previous discount.
func (c *Cart) ApplyDiscount(furnitureID int, amount decimal.Decimal) error {
	l := c.root.findFirst(func(l *Leaf) bool {
		return l.FurnitureID == furnitureID
	})
	if l == nil {
		return &ItemNotFoundError{FurnitureID: furnitureID}
	}
	if amount.IsNegative() || amount.GreaterThan(l.UnitPrice) {
		return &InvalidDiscountError{FurnitureID: furnitureID, Discount: amount, UnitPrice: l.UnitPrice}
	}
	l.Discount = amount
	return nil
}

// TotalPrice returns the recursive total of the whole tree.
func (c *Cart) TotalPrice() decimal.Decimal {
	return c.root.TotalPrice()
}

// Lines returns a flattened projection of every leaf. It never mutates the
// cart.
func (c *Cart) Lines() []Line {
	leaves := Flatten(c.root)
	out := make([]Line, len(leaves))
	for i, l := range leaves {
		out[i] = Line{
			FurnitureID: l.FurnitureID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
		}
	}
	return out
}

// Empty reports whether the cart has no leaves.
func (c *Cart) Empty() bool {
	return len(Flatten(c.root)) == 0
}

// Clear resets the root bundle's children.
func (c *Cart) Clear() {
	c.root = NewBundle("root")
}

// Root exposes the root bundle, used by snapshot serialization.
func (c *Cart) Root() *Bundle {
	return c.root
}
