// Package httpapi is the thin HTTP adapter over the domain core. Handlers
// translate requests into core calls and core results (including typed
// domain errors) into JSON responses; no business rules live here.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/user"
	"github.com/xenking/furniture-store/internal/snapshot"
)

// Handler exposes the core operations over HTTP. saver may be nil in tests;
// when set, every mutating operation pushes a fresh snapshot.
type Handler struct {
	catalog *catalog.Catalog
	carts   *cart.Registry
	users   *user.Registry
	orders  *order.History
	saver   *snapshot.Saver
}

// NewHandler constructs a Handler over the shared registries.
func NewHandler(
	cat *catalog.Catalog,
	carts *cart.Registry,
	users *user.Registry,
	orders *order.History,
	saver *snapshot.Saver,
) *Handler {
	return &Handler{
		catalog: cat,
		carts:   carts,
		users:   users,
		orders:  orders,
		saver:   saver,
	}
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/furniture", h.searchFurniture)
	mux.HandleFunc("POST /api/inventory", h.createFurniture)
	mux.HandleFunc("PUT /api/inventory/{id}", h.updateFurniture)
	mux.HandleFunc("DELETE /api/inventory/{id}", h.deleteFurniture)

	mux.HandleFunc("GET /api/users", h.listUsers)
	mux.HandleFunc("POST /api/users", h.registerUser)
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/users/{email}/profile", h.updateProfile)
	mux.HandleFunc("POST /api/users/{email}/password", h.setPassword)
	mux.HandleFunc("DELETE /api/users/{email}", h.deleteUser)

	mux.HandleFunc("GET /api/cart/{email}", h.getCart)
	mux.HandleFunc("PUT /api/cart/{email}", h.replaceCart)
	mux.HandleFunc("DELETE /api/cart/{email}/{furnitureID}", h.removeCartItem)

	mux.HandleFunc("POST /api/checkout", h.checkoutCart)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", h.setOrderStatus)

	return mux
}

// persist pushes a snapshot after a mutation. Persistence failures do not
// fail the request: the mutation is already committed, so they are logged
// and the next successful save catches up.
func (h *Handler) persist(r *http.Request) {
	if h.saver == nil {
		return
	}
	ctx := r.Context()
	if err := h.saver.Persist(ctx); err != nil {
		zctx.From(ctx).Error("persist snapshot", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
