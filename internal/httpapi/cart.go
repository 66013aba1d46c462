package httpapi

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/cart"
)

type cartItemJSON struct {
	FurnitureID int     `json:"furniture_id"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount,omitempty"`
}

type cartJSON struct {
	UserEmail string         `json:"user_email"`
	Items     []cartItemJSON `json:"items"`
	Total     float64        `json:"total"`
}

func cartToJSON(c *cart.Cart) cartJSON {
	lines := c.Lines()
	items := make([]cartItemJSON, len(lines))
	for i, l := range lines {
		items[i] = cartItemJSON{
			FurnitureID: l.FurnitureID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.InexactFloat64(),
			Discount:    l.Discount.InexactFloat64(),
		}
	}
	return cartJSON{
		UserEmail: c.UserEmail,
		Items:     items,
		Total:     c.TotalPrice().Round(2).InexactFloat64(),
	}
}

// getCart handles GET /api/cart/{email}; the cart is created on first
// access.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c := h.carts.Get(r.PathValue("email"))
	writeJSON(w, http.StatusOK, cartToJSON(c))
}

type replaceCartRequest struct {
	Items []struct {
		FurnitureID int     `json:"furniture_id"`
		Quantity    int     `json:"quantity"`
		Discount    float64 `json:"discount,omitempty"`
	} `json:"items"`
}

// replaceCart handles PUT /api/cart/{email}: each call supplies the full
// desired item set, so the cart is replaced rather than merged.
func (h *Handler) replaceCart(w http.ResponseWriter, r *http.Request) {
	var req replaceCartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c := h.carts.Replace(r.PathValue("email"))
	for _, item := range req.Items {
		err := c.AddItem(h.catalog, item.FurnitureID, item.Quantity,
			decimal.NewFromFloat(item.Discount))
		if err != nil {
			respondError(w, err)
			return
		}
	}
	h.persist(r)
	writeJSON(w, http.StatusOK, cartToJSON(c))
}

// removeCartItem handles DELETE /api/cart/{email}/{furnitureID}: the first
// leaf for the furniture ID is removed with its exact quantity and price.
func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("furnitureID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid furniture id")
		return
	}

	c := h.carts.Get(r.PathValue("email"))
	var target *cart.Line
	for _, l := range c.Lines() {
		if l.FurnitureID == id {
			target = &l
			break
		}
	}
	if target == nil {
		respondError(w, &cart.ItemNotFoundError{FurnitureID: id})
		return
	}
	if err := c.RemoveItem(target.FurnitureID, target.Quantity, target.UnitPrice); err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}
