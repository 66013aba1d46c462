package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/checkout"
	"github.com/xenking/furniture-store/internal/domain/furniture"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/user"
)

// respondError maps typed domain errors onto HTTP status codes: 404 for
// absent entities, 409 for uniqueness and stock conflicts, 422 for a cart
// that fails checkout validation, 400 for malformed values.
func respondError(w http.ResponseWriter, err error) {
	var (
		catalogNotFound   *catalog.NotFoundError
		duplicateID       *catalog.DuplicateIDError
		insufficientStock *catalog.InsufficientStockError
		negativeQuantity  *catalog.NegativeQuantityError
		invalidType       *furniture.InvalidTypeError
		furnitureNotFound *cart.FurnitureNotFoundError
		itemNotFound      *cart.ItemNotFoundError
		invalidQuantity   *cart.InvalidQuantityError
		invalidDiscount   *cart.InvalidDiscountError
		cartInvalid       *checkout.CartInvalidError
		orderNotFound     *order.NotFoundError
		invalidStatus     *order.InvalidStatusError
		invalidTransition *order.InvalidTransitionError
		userNotFound      *user.NotFoundError
		duplicateEmail    *user.DuplicateEmailError
	)

	switch {
	case errors.As(err, &catalogNotFound),
		errors.As(err, &furnitureNotFound),
		errors.As(err, &itemNotFound),
		errors.As(err, &orderNotFound),
		errors.As(err, &userNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.As(err, &duplicateID),
		errors.As(err, &duplicateEmail),
		errors.As(err, &insufficientStock),
		errors.As(err, &invalidTransition):
		writeError(w, http.StatusConflict, err.Error())

	case errors.As(err, &cartInvalid):
		writeCartInvalid(w, cartInvalid)

	case errors.As(err, &negativeQuantity),
		errors.As(err, &invalidType),
		errors.As(err, &invalidQuantity),
		errors.As(err, &invalidDiscount),
		errors.As(err, &invalidStatus),
		errors.Is(err, furniture.ErrNegativePrice):
		writeError(w, http.StatusBadRequest, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type shortfallJSON struct {
	FurnitureID int `json:"furniture_id"`
	Requested   int `json:"requested"`
	Available   int `json:"available"`
}

type cartInvalidResponse struct {
	Code       int             `json:"code"`
	Message    string          `json:"message"`
	Shortfalls []shortfallJSON `json:"shortfalls"`
}

func writeCartInvalid(w http.ResponseWriter, err *checkout.CartInvalidError) {
	resp := cartInvalidResponse{
		Code:    http.StatusUnprocessableEntity,
		Message: "checkout failed: cart validation",
	}
	for _, s := range err.Shortfalls {
		resp.Shortfalls = append(resp.Shortfalls, shortfallJSON(s))
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}
