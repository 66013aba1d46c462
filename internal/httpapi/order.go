package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/checkout"
	"github.com/xenking/furniture-store/internal/domain/order"
)

type orderLineJSON struct {
	FurnitureID int     `json:"furniture_id"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount,omitempty"`
}

type orderJSON struct {
	OrderID         int             `json:"order_id"`
	UserEmail       string          `json:"user_email"`
	Lines           []orderLineJSON `json:"items"`
	Total           float64         `json:"total"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func orderToJSON(o order.Order) orderJSON {
	lines := make([]orderLineJSON, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineJSON{
			FurnitureID: l.FurnitureID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.InexactFloat64(),
			Discount:    l.Discount.InexactFloat64(),
		}
	}
	return orderJSON{
		OrderID:         o.ID,
		UserEmail:       o.UserEmail,
		Lines:           lines,
		Total:           o.Total.InexactFloat64(),
		Status:          string(o.Status),
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

type checkoutRequest struct {
	UserEmail     string `json:"user_email"`
	PaymentMethod string `json:"payment_method"`
	Address       string `json:"address"`
}

// checkoutCart handles POST /api/checkout: runs the full pipeline against
// the user's existing cart.
func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserEmail == "" {
		writeError(w, http.StatusBadRequest, "user_email is required")
		return
	}

	c := h.carts.Get(req.UserEmail)
	if c.Empty() {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	h.finalizeCheckout(w, r, c, req.PaymentMethod, req.Address)
}

type placeOrderRequest struct {
	UserEmail string `json:"user_email"`
	Items     []struct {
		FurnitureID int `json:"furniture_id"`
		Quantity    int `json:"quantity"`
	} `json:"items"`
	PaymentMethod string `json:"payment_method"`
	Address       string `json:"address"`
}

// placeOrder handles POST /api/orders: builds a transient cart from the
// item list and runs the same checkout pipeline.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserEmail == "" {
		writeError(w, http.StatusBadRequest, "user_email is required")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	c := cart.New(req.UserEmail)
	for _, item := range req.Items {
		if err := c.AddItem(h.catalog, item.FurnitureID, item.Quantity, decimal.Zero); err != nil {
			respondError(w, err)
			return
		}
	}

	h.finalizeCheckout(w, r, c, req.PaymentMethod, req.Address)
}

func (h *Handler) finalizeCheckout(w http.ResponseWriter, r *http.Request, c *cart.Cart, payment, address string) {
	var persist checkout.Persister
	if h.saver != nil {
		persist = h.saver
	}
	co := checkout.New(c, h.catalog, h.orders, h.users, persist)
	co.SetPaymentMethod(payment)
	co.SetAddress(address)
	if address == "" {
		if u, ok := h.users.Get(c.UserEmail); ok {
			co.SetAddress(u.Address)
		}
	}

	if !co.ProcessPayment() {
		writeError(w, http.StatusBadRequest, "payment method is required")
		return
	}

	o, err := co.Finalize(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderToJSON(*o))
}

// listOrders handles GET /api/orders with an optional user_email filter.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var orders []order.Order
	if email := r.URL.Query().Get("user_email"); email != "" {
		orders = h.orders.ByUser(email)
	} else {
		orders = h.orders.List()
	}

	out := make([]orderJSON, len(orders))
	for i, o := range orders {
		out[i] = orderToJSON(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// getOrder handles GET /api/orders/{id}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, ok := h.orders.Get(id)
	if !ok {
		respondError(w, &order.NotFoundError{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, orderToJSON(o))
}

type statusRequest struct {
	Status string `json:"status"`
}

// setOrderStatus handles POST /api/orders/{id}/status, enforcing the strict
// transition table.
func (h *Handler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.SetStatus(id, order.Status(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusOK, orderToJSON(o))
}
