// Package snapshot implements the persistence collaborator: a keyed snapshot
// of the catalog, users, order history, and per-user carts, read once at
// startup and written after mutating operations.
//
// Two stores are provided: a pgzip-compressed file store and a PostgreSQL
// store. Both carry the same Snapshot payload, encoded with the jx streaming
// codec.
package snapshot

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/furniture"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/user"
)

// Store loads and saves snapshots. Load on an empty store returns an empty
// snapshot, not an error.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Catalog []CatalogEntry
	Users   []User
	Orders  []Order
	Carts   []Cart
}

// CatalogEntry pairs an item record with its stock level.
type CatalogEntry struct {
	Item     Item
	Quantity int
}

// Item is the persisted furniture record.
type Item struct {
	ID              int
	Kind            string
	Name            string
	Description     string
	Price           decimal.Decimal
	Dimensions      [3]float64
	CushionMaterial string
	FrameMaterial   string
	Capacity        int
	LightSource     string
	WallMounted     bool
}

// User is the persisted account record.
type User struct {
	Email        string
	Name         string
	Address      string
	PasswordHash string
	OrderIDs     []int
}

// OrderLine is one persisted purchase line.
type OrderLine struct {
	FurnitureID int
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

// Order is the persisted order record.
type Order struct {
	ID              int
	UserEmail       string
	Lines           []OrderLine
	Total           decimal.Decimal
	Status          string
	PaymentMethod   string
	ShippingAddress string
	CreatedAt       time.Time
}

// Node is a persisted cart tree node, either a leaf or a bundle.
type Node struct {
	Kind string // "leaf" or "bundle"

	// Bundle fields.
	Name     string
	Children []Node

	// Leaf fields.
	FurnitureID int
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

const (
	nodeLeaf   = "leaf"
	nodeBundle = "bundle"
)

// Cart is the persisted cart of one user.
type Cart struct {
	UserEmail string
	Root      Node
}

// Capture builds a snapshot of the current state of all registries.
func Capture(cat *catalog.Catalog, users *user.Registry, hist *order.History, carts *cart.Registry) *Snapshot {
	s := &Snapshot{}

	for _, e := range cat.Snapshot() {
		s.Catalog = append(s.Catalog, CatalogEntry{Item: itemRecord(e.Item), Quantity: e.Quantity})
	}
	for _, u := range users.List() {
		s.Users = append(s.Users, User(u))
	}
	for _, o := range hist.List() {
		s.Orders = append(s.Orders, orderRecord(o))
	}
	for _, c := range carts.All() {
		s.Carts = append(s.Carts, Cart{UserEmail: c.UserEmail, Root: nodeRecord(c.Root())})
	}
	return s
}

// Restore applies a snapshot into the given registries.
func Restore(s *Snapshot, cat *catalog.Catalog, users *user.Registry, hist *order.History, carts *cart.Registry) {
	entries := make([]catalog.Entry, len(s.Catalog))
	for i, e := range s.Catalog {
		entries[i] = catalog.Entry{Item: domainItem(e.Item), Quantity: e.Quantity}
	}
	cat.Restore(entries)

	us := make([]user.User, len(s.Users))
	for i, u := range s.Users {
		us[i] = user.User(u)
	}
	users.Restore(us)

	orders := make([]order.Order, len(s.Orders))
	for i, o := range s.Orders {
		orders[i] = domainOrder(o)
	}
	hist.Restore(orders)

	cs := make([]*cart.Cart, 0, len(s.Carts))
	for _, c := range s.Carts {
		restored := cart.New(c.UserEmail)
		for _, child := range c.Root.Children {
			restored.Add(domainNode(child))
		}
		cs = append(cs, restored)
	}
	carts.Restore(cs)
}

func itemRecord(it furniture.Item) Item {
	return Item{
		ID:              it.ID,
		Kind:            string(it.Kind),
		Name:            it.Name,
		Description:     it.Description,
		Price:           it.Price,
		Dimensions:      it.Dimensions,
		CushionMaterial: it.Attributes.CushionMaterial,
		FrameMaterial:   it.Attributes.FrameMaterial,
		Capacity:        it.Attributes.Capacity,
		LightSource:     it.Attributes.LightSource,
		WallMounted:     it.Attributes.WallMounted,
	}
}

func domainItem(r Item) furniture.Item {
	return furniture.Item{
		ID:          r.ID,
		Kind:        furniture.Kind(r.Kind),
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Dimensions:  r.Dimensions,
		Attributes: furniture.Attributes{
			CushionMaterial: r.CushionMaterial,
			FrameMaterial:   r.FrameMaterial,
			Capacity:        r.Capacity,
			LightSource:     r.LightSource,
			WallMounted:     r.WallMounted,
		},
	}
}

func orderRecord(o order.Order) Order {
	lines := make([]OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLine(l)
	}
	return Order{
		ID:              o.ID,
		UserEmail:       o.UserEmail,
		Lines:           lines,
		Total:           o.Total,
		Status:          string(o.Status),
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

func domainOrder(r Order) order.Order {
	lines := make([]order.Line, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = order.Line(l)
	}
	return order.Order{
		ID:              r.ID,
		UserEmail:       r.UserEmail,
		Lines:           lines,
		Total:           r.Total,
		Status:          order.Status(r.Status),
		PaymentMethod:   r.PaymentMethod,
		ShippingAddress: r.ShippingAddress,
		CreatedAt:       r.CreatedAt,
	}
}

func nodeRecord(b *cart.Bundle) Node {
	n := Node{Kind: nodeBundle, Name: b.Name}
	for _, child := range b.Children() {
		switch v := child.(type) {
		case *cart.Leaf:
			n.Children = append(n.Children, Node{
				Kind:        nodeLeaf,
				FurnitureID: v.FurnitureID,
				Quantity:    v.Quantity,
				UnitPrice:   v.UnitPrice,
				Discount:    v.Discount,
			})
		case *cart.Bundle:
			n.Children = append(n.Children, nodeRecord(v))
		}
	}
	return n
}

func domainNode(n Node) cart.Node {
	if n.Kind == nodeLeaf {
		return &cart.Leaf{
			FurnitureID: n.FurnitureID,
			Quantity:    n.Quantity,
			UnitPrice:   n.UnitPrice,
			Discount:    n.Discount,
		}
	}
	b := cart.NewBundle(n.Name)
	for _, child := range n.Children {
		b.Add(domainNode(child))
	}
	return b
}

// Saver bundles the registries with a store so collaborators can persist the
// full state after a mutation with one call. It satisfies checkout.Persister.
type Saver struct {
	store   Store
	catalog *catalog.Catalog
	users   *user.Registry
	orders  *order.History
	carts   *cart.Registry
}

// NewSaver creates a Saver over the given store and registries.
func NewSaver(store Store, cat *catalog.Catalog, users *user.Registry, hist *order.History, carts *cart.Registry) *Saver {
	return &Saver{store: store, catalog: cat, users: users, orders: hist, carts: carts}
}

// Persist captures the current state and writes it to the store.
func (s *Saver) Persist(ctx context.Context) error {
	return s.store.Save(ctx, Capture(s.catalog, s.users, s.orders, s.carts))
}
