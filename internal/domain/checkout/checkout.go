// Package checkout implements the pipeline that converts a validated cart
// into an order: availability validation, atomic stock decrement, simulated
// payment, and order finalization.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/furniture"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/user"
)

// Shortfall describes one cart line that cannot be satisfied from stock.
type Shortfall struct {
	FurnitureID int
	Requested   int
	Available   int
}

// CartInvalidError aggregates every failing line so callers see the full
// picture instead of just the first shortfall.
type CartInvalidError struct {
	Shortfalls []Shortfall
}

func (e *CartInvalidError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("furniture %d: requested %d, available %d",
			s.FurnitureID, s.Requested, s.Available)
	}
	return "cart validation failed: " + strings.Join(parts, "; ")
}

// Persister pushes a snapshot of the mutated entity sets to the persistence
// collaborator after a successful finalization.
type Persister interface {
	Persist(ctx context.Context) error
}

// Checkout is a transient pipeline scoped to one attempt, bound to one cart
// and the shared catalog. Users and persister are optional collaborators.
type Checkout struct {
	cart    *cart.Cart
	catalog *catalog.Catalog
	history *order.History
	users   *user.Registry
	persist Persister

	paymentMethod string
	address       string
}

// New creates a checkout for the given cart against the shared catalog and
// order history. users and persist may be nil.
func New(crt *cart.Cart, cat *catalog.Catalog, hist *order.History, users *user.Registry, persist Persister) *Checkout {
	return &Checkout{
		cart:    crt,
		catalog: cat,
		history: hist,
		users:   users,
		persist: persist,
	}
}

// SetPaymentMethod records the payment method for finalization. Pure setter,
// no side effects.
func (c *Checkout) SetPaymentMethod(method string) {
	c.paymentMethod = method
}

// SetAddress records the shipping address for finalization.
func (c *Checkout) SetAddress(address string) {
	c.address = address
}

// ProcessPayment simulates the gateway: it succeeds iff a payment method has
// been set. This is the seam where a real integration would plug in; it
// never mutates inventory.
func (c *Checkout) ProcessPayment() bool {
	return c.paymentMethod != ""
}

// FindFurnitureByName resolves a catalog item by name substring, or nil when
// absent.
func (c *Checkout) FindFurnitureByName(name string) *furniture.Item {
	return c.catalog.FindByName(name)
}

// Validate flattens the cart to leaf lines and checks each against available
// stock. Duplicate furniture IDs in different branches are checked
// independently, without merging. All failing lines are reported; an empty
// result means the cart is satisfiable. Calling Validate repeatedly without
// intervening mutation yields the same result.
func (c *Checkout) Validate() []Shortfall {
	var shortfalls []Shortfall
	for _, l := range c.cart.Lines() {
		available := c.catalog.Quantity(l.FurnitureID)
		if l.Quantity > available {
			shortfalls = append(shortfalls, Shortfall{
				FurnitureID: l.FurnitureID,
				Requested:   l.Quantity,
				Available:   available,
			})
		}
	}
	return shortfalls
}

// Finalize runs the full pipeline: re-validate, decrement stock atomically
// across all lines, create a PENDING order with price snapshots from the
// cart leaves, append it to the history, clear the cart, and persist.
//
// Validation failure and reservation failure both leave the catalog
// byte-for-byte unchanged. Reserve re-checks every line under the catalog
// lock, so a concurrent checkout that exhausted stock between Validate and
// Reserve surfaces as InsufficientStockError with no partial decrement.
func (c *Checkout) Finalize(ctx context.Context) (*order.Order, error) {
	if shortfalls := c.Validate(); len(shortfalls) > 0 {
		return nil, &CartInvalidError{Shortfalls: shortfalls}
	}

	lines := c.cart.Lines()
	reserve := make([]catalog.Line, len(lines))
	orderLines := make([]order.Line, len(lines))
	for i, l := range lines {
		reserve[i] = catalog.Line{FurnitureID: l.FurnitureID, Quantity: l.Quantity}
		orderLines[i] = order.Line{
			FurnitureID: l.FurnitureID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
		}
	}

	if err := c.catalog.Reserve(reserve); err != nil {
		return nil, err
	}

	total := c.cart.TotalPrice().Round(2)
	o := c.history.Append(c.cart.UserEmail, orderLines, total, c.paymentMethod, c.address)
	if c.users != nil {
		c.users.AttachOrder(c.cart.UserEmail, o.ID)
	}
	c.cart.Clear()

	if c.persist != nil {
		if err := c.persist.Persist(ctx); err != nil {
			// Business state is committed at this point; only the snapshot
			// write failed. Callers may retry persistence.
			return nil, errors.Wrap(err, "persist snapshot")
		}
	}
	return o, nil
}
