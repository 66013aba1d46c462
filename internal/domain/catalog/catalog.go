// Package catalog implements the shared stock registry: furniture items with
// their available quantities, search, CRUD, and atomic quantity adjustment.
package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/furniture"
)

// NotFoundError indicates the requested item ID is absent from the catalog.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("furniture %d not found", e.ID)
}

// DuplicateIDError indicates a create collided with an existing item ID.
type DuplicateIDError struct {
	ID int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("furniture %d already exists", e.ID)
}

// InsufficientStockError indicates an adjustment would drive a quantity
// below zero.
type InsufficientStockError struct {
	ID        int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for furniture %d: requested %d, available %d",
		e.ID, e.Requested, e.Available)
}

// NegativeQuantityError indicates an update supplied a quantity below zero.
type NegativeQuantityError struct {
	ID       int
	Quantity int
}

func (e *NegativeQuantityError) Error() string {
	return fmt.Sprintf("quantity %d for furniture %d must not be negative", e.Quantity, e.ID)
}

type entry struct {
	item     *furniture.Item
	quantity int
}

// Catalog is the process-wide registry of items and their stock levels.
// It is safe for concurrent use; every check-then-write sequence happens
// under one mutex so quantities are never observably negative.
type Catalog struct {
	mu      sync.RWMutex
	entries map[int]*entry
	ids     []int // insertion order
	nextID  int
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		entries: make(map[int]*entry),
		nextID:  1,
	}
}

// Filter restricts a Search. Zero-valued fields are no-ops: empty name and
// kind match everything, nil price bounds are unbounded.
type Filter struct {
	Name     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Kind     furniture.Kind
}

func (f Filter) matches(it *furniture.Item) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.MinPrice != nil && it.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && it.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	return true
}

// Search returns copies of all items matching the filter, in catalog
// insertion order.
func (c *Catalog) Search(f Filter) []furniture.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []furniture.Item
	for _, id := range c.ids {
		if e := c.entries[id]; f.matches(e.item) {
			out = append(out, *e.item)
		}
	}
	return out
}

// Get returns a copy of the item with the given ID.
func (c *Catalog) Get(id int) (furniture.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return furniture.Item{}, false
	}
	return *e.item, true
}

// FindByName returns the first item whose name contains the given substring
// (case-insensitive), or nil when no item matches. Absence is not an error.
func (c *Catalog) FindByName(name string) *furniture.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(name)
	for _, id := range c.ids {
		e := c.entries[id]
		if strings.Contains(strings.ToLower(e.item.Name), needle) {
			it := *e.item
			return &it
		}
	}
	return nil
}

// Quantity returns the available stock for the given ID. Unknown IDs report
// zero: absence is out-of-stock, not an error.
func (c *Catalog) Quantity(id int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[id]; ok {
		return e.quantity
	}
	return 0
}

// Create registers a new item with the given starting quantity. When the
// item carries no ID, the catalog assigns the next monotonic one. A quantity
// below zero is rejected, and an existing ID fails with DuplicateIDError.
func (c *Catalog) Create(it *furniture.Item, quantity int) (*furniture.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity < 0 {
		return nil, &NegativeQuantityError{ID: it.ID, Quantity: quantity}
	}
	if it.ID == 0 {
		it.ID = c.nextID
	} else if _, ok := c.entries[it.ID]; ok {
		return nil, &DuplicateIDError{ID: it.ID}
	}
	if it.ID >= c.nextID {
		c.nextID = it.ID + 1
	}

	stored := *it
	c.entries[it.ID] = &entry{item: &stored, quantity: quantity}
	c.ids = append(c.ids, it.ID)

	out := stored
	return &out, nil
}

// Patch carries the optional fields for Update. Nil fields are left as-is.
// Quantity updates are routed through here as well.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Dimensions  *[3]float64
	Attributes  *furniture.Attributes
	Quantity    *int
}

// Update overwrites only the supplied fields of the item with the given ID.
// It fails with NotFoundError when the ID is absent, ErrNegativePrice for a
// negative price, and NegativeQuantityError for a negative quantity.
func (c *Catalog) Update(id int, p Patch) (*furniture.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if p.Price != nil && p.Price.IsNegative() {
		return nil, furniture.ErrNegativePrice
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return nil, &NegativeQuantityError{ID: id, Quantity: *p.Quantity}
	}

	if p.Name != nil {
		e.item.Name = *p.Name
	}
	if p.Description != nil {
		e.item.Description = *p.Description
	}
	if p.Price != nil {
		e.item.Price = *p.Price
	}
	if p.Dimensions != nil {
		e.item.Dimensions = *p.Dimensions
	}
	if p.Attributes != nil {
		e.item.Attributes = *p.Attributes
	}
	if p.Quantity != nil {
		e.quantity = *p.Quantity
	}

	out := *e.item
	return &out, nil
}

// Delete removes the item and its quantity entry. Orders created earlier are
// unaffected: their purchase lines carry price snapshots, not references.
func (c *Catalog) Delete(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(c.entries, id)
	for i, v := range c.ids {
		if v == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return nil
}

// AdjustQuantity applies a delta to the stock of the given item. The
// non-negativity check and the write happen under the same lock, so two
// concurrent decrements can never interleave into a negative quantity.
func (c *Catalog) AdjustQuantity(id, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adjustLocked(id, delta)
}

func (c *Catalog) adjustLocked(id, delta int) error {
	e, ok := c.entries[id]
	if !ok {
		// Unknown ID has quantity zero; any decrement is a shortfall.
		if delta < 0 {
			return &InsufficientStockError{ID: id, Requested: -delta, Available: 0}
		}
		return &NotFoundError{ID: id}
	}
	next := e.quantity + delta
	if next < 0 {
		return &InsufficientStockError{ID: id, Requested: -delta, Available: e.quantity}
	}
	e.quantity = next
	return nil
}

// Line is a single reservation request: a furniture ID and the quantity to
// take from stock.
type Line struct {
	FurnitureID int
	Quantity    int
}

// Reserve decrements stock for every line, all-or-nothing. The whole
// operation holds the catalog lock, so a shortfall on any line leaves every
// quantity exactly as it was and no concurrent checkout can observe a
// partial decrement. Each line is re-checked here even if the caller
// validated earlier; carts built against stale quantities fail cleanly.
func (c *Catalog) Reserve(lines []Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// First pass: verify. Duplicate IDs across lines accumulate.
	needed := make(map[int]int, len(lines))
	for _, l := range lines {
		needed[l.FurnitureID] += l.Quantity
	}
	for _, l := range lines {
		e, ok := c.entries[l.FurnitureID]
		available := 0
		if ok {
			available = e.quantity
		}
		if needed[l.FurnitureID] > available {
			return &InsufficientStockError{
				ID:        l.FurnitureID,
				Requested: needed[l.FurnitureID],
				Available: available,
			}
		}
	}

	// Second pass: apply. Cannot fail after verification under the same lock.
	for _, l := range lines {
		e := c.entries[l.FurnitureID]
		e.quantity -= l.Quantity
	}
	return nil
}

// Entry pairs an item with its stock level for snapshots.
type Entry struct {
	Item     furniture.Item
	Quantity int
}

// Snapshot returns all entries in insertion order.
func (c *Catalog) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		e := c.entries[id]
		out = append(out, Entry{Item: *e.item, Quantity: e.quantity})
	}
	return out
}

// Restore replaces the catalog contents with the given entries, preserving
// their order and advancing the ID allocator past the highest seen ID.
func (c *Catalog) Restore(entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int]*entry, len(entries))
	c.ids = c.ids[:0]
	c.nextID = 1
	for _, e := range entries {
		it := e.Item
		c.entries[it.ID] = &entry{item: &it, quantity: e.Quantity}
		c.ids = append(c.ids, it.ID)
		if it.ID >= c.nextID {
			c.nextID = it.ID + 1
		}
	}
}

// Len returns the number of items currently registered.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
