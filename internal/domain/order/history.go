package order

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// NotFoundError indicates the requested order ID is absent from the history.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %d not found", e.ID)
}

// History is the append-only collection of finalized orders, indexed by
// monotonically assigned ID. Orders are never removed.
type History struct {
	mu     sync.RWMutex
	orders []*Order
	byID   map[int]*Order
	nextID int
	now    func() time.Time
}

// NewHistory returns an empty order history.
func NewHistory() *History {
	return &History{
		byID:   make(map[int]*Order),
		nextID: 1,
		now:    time.Now,
	}
}

// Append creates a PENDING order with the next monotonic ID and records it.
func (h *History) Append(userEmail string, lines []Line, total decimal.Decimal, paymentMethod, address string) *Order {
	h.mu.Lock()
	defer h.mu.Unlock()

	o := &Order{
		ID:              h.nextID,
		UserEmail:       userEmail,
		Lines:           lines,
		Total:           total,
		Status:          StatusPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: address,
		CreatedAt:       h.now(),
	}
	h.nextID++
	h.orders = append(h.orders, o)
	h.byID[o.ID] = o

	out := *o
	return &out
}

// Get returns a copy of the order with the given ID.
func (h *History) Get(id int) (Order, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	o, ok := h.byID[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// SetStatus applies a status transition to the stored order.
func (h *History) SetStatus(id int, next Status) (Order, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	o, ok := h.byID[id]
	if !ok {
		return Order{}, &NotFoundError{ID: id}
	}
	if err := o.SetStatus(next); err != nil {
		return Order{}, err
	}
	return *o, nil
}

// List returns copies of all orders in append order.
func (h *History) List() []Order {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Order, len(h.orders))
	for i, o := range h.orders {
		out[i] = *o
	}
	return out
}

// ByUser returns copies of the user's orders in append order.
func (h *History) ByUser(email string) []Order {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Order
	for _, o := range h.orders {
		if o.UserEmail == email {
			out = append(out, *o)
		}
	}
	return out
}

// Restore replaces the history with the given orders and advances the ID
// allocator past the highest seen ID.
func (h *History) Restore(orders []Order) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sort.SliceStable(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })

	h.orders = h.orders[:0]
	h.byID = make(map[int]*Order, len(orders))
	h.nextID = 1
	for i := range orders {
		o := orders[i]
		h.orders = append(h.orders, &o)
		h.byID[o.ID] = &o
		if o.ID >= h.nextID {
			h.nextID = o.ID + 1
		}
	}
}
