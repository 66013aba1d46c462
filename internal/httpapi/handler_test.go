package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/furniture"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/user"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) string       { return "h:" + password }
func (plainHasher) Verify(hash, password string) bool { return hash == "h:"+password }

type fixture struct {
	handler *Handler
	mux     *http.ServeMux
	catalog *catalog.Catalog
	orders  *order.History
	users   *user.Registry
	carts   *cart.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := catalog.New()
	items := []struct {
		kind     furniture.Kind
		name     string
		price    string
		quantity int
	}{
		{furniture.KindChair, "Windsor Chair", "129.99", 10},
		{furniture.KindTable, "Oak Table", "749", 2},
		{furniture.KindLamp, "Arc Lamp", "179.99", 5},
	}
	for _, it := range items {
		created, err := furniture.New(it.kind, furniture.Spec{
			Name:  it.name,
			Price: decimal.RequireFromString(it.price),
		})
		require.NoError(t, err)
		_, err = cat.Create(created, it.quantity)
		require.NoError(t, err)
	}

	users := user.NewRegistry(plainHasher{})
	_, err := users.Register("a@example.com", "pw", "Alice", "12 Main St")
	require.NoError(t, err)

	carts := cart.NewRegistry()
	orders := order.NewHistory()
	h := NewHandler(cat, carts, users, orders, nil)

	return &fixture{
		handler: h,
		mux:     h.Routes(),
		catalog: cat,
		orders:  orders,
		users:   users,
		carts:   carts,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestSearchFurniture(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"by name", "?name=chair", 1},
		{"by type", "?type=table", 1},
		{"by price range", "?min_price=150&max_price=200", 1},
		{"no match", "?name=wardrobe", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/furniture"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, decodeInto[[]furnitureJSON](t, w), tt.want)
		})
	}
}

func TestSearchFurniture_BadParams(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/furniture?min_price=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/furniture?type=bed", nil).Code)
}

func TestCreateFurniture(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/inventory", map[string]any{
		"type":             "sofa",
		"name":             "Oslo Sofa",
		"price":            899.99,
		"quantity":         4,
		"capacity":         3,
		"cushion_material": "linen",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	got := decodeInto[furnitureJSON](t, w)
	assert.Equal(t, 4, got.ID, "next monotonic ID")
	assert.Equal(t, "sofa", got.Type)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, 3, got.Capacity)
	assert.Empty(t, got.CushionMaterial, "sofa keeps only its own attribute")
}

func TestCreateFurniture_Invalid(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/inventory", map[string]any{"type": "bed", "name": "x", "price": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/inventory", map[string]any{"type": "chair", "name": "x", "price": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/inventory", map[string]any{"type": "chair", "name": "x", "price": 1, "id": 1})
	assert.Equal(t, http.StatusConflict, w.Code, "duplicate ID")
}

func TestUpdateFurniture(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/inventory/1", map[string]any{
		"price":    149.99,
		"quantity": 20,
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeInto[furnitureJSON](t, w)
	assert.Equal(t, 149.99, got.Price)
	assert.Equal(t, 20, got.Quantity)
	assert.Equal(t, "Windsor Chair", got.Name, "unsupplied fields untouched")
}

func TestUpdateFurniture_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/inventory/999", map[string]any{"price": 1.0}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/inventory/1", map[string]any{"quantity": -5}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/inventory/abc", nil).Code)
}

func TestDeleteFurniture(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/inventory/3", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/inventory/3", nil).Code)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/users", map[string]any{
		"email":    "b@example.com",
		"password": "secret",
		"name":     "Bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate registration conflicts.
	w = f.do(t, http.MethodPost, "/api/users", map[string]any{"email": "b@example.com", "password": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Login with right and wrong credentials.
	w = f.do(t, http.MethodPost, "/api/login", map[string]any{"email": "b@example.com", "password": "secret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/login", map[string]any{"email": "b@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/login", map[string]any{"email": "ghost@example.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unknown email is indistinguishable")
}

func TestRegister_MissingFields(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/users", map[string]any{"email": "", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/users/a@example.com/profile", map[string]any{"name": "Alice B"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeInto[userJSON](t, w)
	assert.Equal(t, "Alice B", got.Name)
	assert.Equal(t, "12 Main St", got.Address)

	w = f.do(t, http.MethodPost, "/api/users/a@example.com/password", map[string]any{"password": "rotated"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/login", map[string]any{"email": "a@example.com", "password": "rotated"})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPost, "/api/users/ghost@example.com/profile", map[string]any{"name": "x"}).Code)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/users/a@example.com", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/users/a@example.com", nil).Code)
}

func TestCartLifecycle(t *testing.T) {
	f := newFixture(t)

	// Empty cart is created on first access.
	w := f.do(t, http.MethodGet, "/api/cart/a@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeInto[cartJSON](t, w).Items)

	// PUT replaces the full item set.
	w = f.do(t, http.MethodPut, "/api/cart/a@example.com", map[string]any{
		"items": []map[string]any{
			{"furniture_id": 1, "quantity": 2},
			{"furniture_id": 3, "quantity": 1, "discount": 20},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeInto[cartJSON](t, w)
	require.Len(t, got.Items, 2)
	// 2*129.99 + (179.99-20) = 419.97
	assert.Equal(t, 419.97, got.Total)

	// A second PUT does not merge with the first.
	w = f.do(t, http.MethodPut, "/api/cart/a@example.com", map[string]any{
		"items": []map[string]any{{"furniture_id": 2, "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[cartJSON](t, w).Items, 1)

	// Remove the only line.
	w = f.do(t, http.MethodDelete, "/api/cart/a@example.com/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/cart/a@example.com/2", nil).Code)
}

func TestCartErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/cart/a@example.com", map[string]any{
		"items": []map[string]any{{"furniture_id": 999, "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/cart/a@example.com", map[string]any{
		"items": []map[string]any{{"furniture_id": 1, "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/cart/a@example.com", map[string]any{
		"items": []map[string]any{{"furniture_id": 1, "quantity": 1, "discount": 500}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func putCart(t *testing.T, f *fixture, email string, items []map[string]any) {
	t.Helper()
	w := f.do(t, http.MethodPut, "/api/cart/"+email, map[string]any{"items": items})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	putCart(t, f, "a@example.com", []map[string]any{
		{"furniture_id": 1, "quantity": 2},
		{"furniture_id": 2, "quantity": 1},
	})

	w := f.do(t, http.MethodPost, "/api/checkout", map[string]any{
		"user_email":     "a@example.com",
		"payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decodeInto[orderJSON](t, w)
	assert.Equal(t, 1, got.OrderID)
	assert.Equal(t, "PENDING", got.Status)
	assert.Equal(t, "12 Main St", got.ShippingAddress, "defaults to the account address")
	// 2*129.99 + 749 = 1008.98
	assert.Equal(t, 1008.98, got.Total)

	// Stock decremented and cart cleared.
	assert.Equal(t, 8, f.catalog.Quantity(1))
	w = f.do(t, http.MethodGet, "/api/cart/a@example.com", nil)
	assert.Empty(t, decodeInto[cartJSON](t, w).Items)

	// The order shows up on the user.
	w = f.do(t, http.MethodGet, "/api/users", nil)
	users := decodeInto[[]userJSON](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, []int{1}, users[0].OrderHistory)
}

func TestCheckout_Failures(t *testing.T) {
	f := newFixture(t)

	// Empty cart.
	w := f.do(t, http.MethodPost, "/api/checkout", map[string]any{
		"user_email":     "a@example.com",
		"payment_method": "card",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing payment method.
	putCart(t, f, "a@example.com", []map[string]any{{"furniture_id": 1, "quantity": 1}})
	w = f.do(t, http.MethodPost, "/api/checkout", map[string]any{"user_email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Insufficient stock reports every shortfall with 422.
	putCart(t, f, "a@example.com", []map[string]any{
		{"furniture_id": 2, "quantity": 5},
		{"furniture_id": 3, "quantity": 20},
	})
	w = f.do(t, http.MethodPost, "/api/checkout", map[string]any{
		"user_email":     "a@example.com",
		"payment_method": "card",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	invalid := decodeInto[cartInvalidResponse](t, w)
	require.Len(t, invalid.Shortfalls, 2)
	assert.Equal(t, 2, invalid.Shortfalls[0].FurnitureID)
	assert.Equal(t, 5, invalid.Shortfalls[0].Requested)
	assert.Equal(t, 2, invalid.Shortfalls[0].Available)

	// Failed checkout keeps the cart.
	w = f.do(t, http.MethodGet, "/api/cart/a@example.com", nil)
	assert.Len(t, decodeInto[cartJSON](t, w).Items, 2)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", map[string]any{
		"user_email":     "guest@example.com",
		"payment_method": "card",
		"address":        "99 Side Rd",
		"items": []map[string]any{
			{"furniture_id": 3, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decodeInto[orderJSON](t, w)
	assert.Equal(t, "guest@example.com", got.UserEmail)
	assert.Equal(t, "99 Side Rd", got.ShippingAddress)
	assert.Equal(t, 3, f.catalog.Quantity(3))

	// The persistent cart for that email is untouched by the transient one.
	w = f.do(t, http.MethodGet, "/api/cart/guest@example.com", nil)
	assert.Empty(t, decodeInto[cartJSON](t, w).Items)
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", map[string]any{
		"user_email": "a@example.com", "payment_method": "card", "items": []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/orders", map[string]any{
		"user_email": "a@example.com", "payment_method": "card",
		"items": []map[string]any{{"furniture_id": 999, "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderListingAndStatus(t *testing.T) {
	f := newFixture(t)
	putCart(t, f, "a@example.com", []map[string]any{{"furniture_id": 1, "quantity": 1}})
	w := f.do(t, http.MethodPost, "/api/checkout", map[string]any{
		"user_email": "a@example.com", "payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// List all and by user.
	w = f.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]orderJSON](t, w), 1)

	w = f.do(t, http.MethodGet, "/api/orders?user_email=b@example.com", nil)
	assert.Empty(t, decodeInto[[]orderJSON](t, w))

	// Get by ID.
	w = f.do(t, http.MethodGet, "/api/orders/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/orders/99", nil).Code)

	// Legal transition chain, then illegal edges.
	for _, status := range []string{"PAID", "SHIPPED"} {
		w = f.do(t, http.MethodPost, "/api/orders/1/status", map[string]any{"status": status})
		require.Equal(t, http.StatusOK, w.Code, status)
		assert.Equal(t, status, decodeInto[orderJSON](t, w).Status)
	}

	w = f.do(t, http.MethodPost, "/api/orders/1/status", map[string]any{"status": "CANCELLED"})
	assert.Equal(t, http.StatusConflict, w.Code, "SHIPPED is terminal")

	w = f.do(t, http.MethodPost, "/api/orders/1/status", map[string]any{"status": "DELIVERED"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown status value")
}

func TestConcurrentCheckouts_LastUnit(t *testing.T) {
	f := newFixture(t)

	// Two users racing for the 2 remaining tables, wanting 2 each: exactly
	// one checkout succeeds.
	emails := []string{"a@example.com", "b@example.com"}
	for i, email := range emails {
		if email != "a@example.com" {
			_, err := f.users.Register(email, "pw", fmt.Sprintf("User %d", i), "")
			require.NoError(t, err)
		}
		putCart(t, f, email, []map[string]any{{"furniture_id": 2, "quantity": 2}})
	}

	codes := make([]int, len(emails))
	done := make(chan struct{})
	for i, email := range emails {
		go func() {
			defer func() { done <- struct{}{} }()
			w := f.do(t, http.MethodPost, "/api/checkout", map[string]any{
				"user_email": email, "payment_method": "card",
			})
			codes[i] = w.Code
		}()
	}
	for range emails {
		<-done
	}

	var created int
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, f.catalog.Quantity(2))
}
