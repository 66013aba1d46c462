// Package order defines the immutable order record, its status state
// machine, and the append-only order history.
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a recognized status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCancelled:
		return true
	}
	return false
}

// transitions is the strict edge table: PENDING -> PAID -> SHIPPED, with
// CANCELLED reachable from any non-terminal state. SHIPPED and CANCELLED
// are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
}

// CanTransition reports whether the edge from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// InvalidStatusError indicates a value outside the status enum.
type InvalidStatusError struct {
	Status Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("unknown order status %q", e.Status)
}

// InvalidTransitionError indicates a legal status value on an illegal edge.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Line is one purchase line: the furniture ID, quantity, and the unit price
// and discount captured from the cart leaf at checkout time. Lines carry
// snapshots, not live catalog references.
type Line struct {
	FurnitureID int
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

// Order is a record of a completed purchase. Only the status changes after
// creation, and only along the legal transition edges.
type Order struct {
	ID              int
	UserEmail       string
	Lines           []Line
	Total           decimal.Decimal
	Status          Status
	PaymentMethod   string
	ShippingAddress string
	CreatedAt       time.Time
}

// SetStatus moves the order to the given status. It fails with
// InvalidStatusError for values outside the enum and InvalidTransitionError
// for recognized values on an illegal edge.
func (o *Order) SetStatus(next Status) error {
	if !next.Valid() {
		return &InvalidStatusError{Status: next}
	}
	if !o.Status.CanTransition(next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}
	o.Status = next
	return nil
}
