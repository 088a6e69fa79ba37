package httpx

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/shopspring/decimal"
	"log/slog"
	"net/http"
)

var (
	errBadJSON        = errors.New("invalid json body")
	errIdemInProgress = errors.New("a request with this Idempotency-Key is still in progress")
)

type errorBody struct {
	Error     string           `json:"error"`
	Code      string           `json:"code"`
	ProductID string           `json:"product_id,omitempty"`
	Available *int             `json:"available,omitempty"`
	Requested *int             `json:"requested,omitempty"`
	Field     string           `json:"field,omitempty"`
	Expected  *decimal.Decimal `json:"expected,omitempty"`
	Actual    *decimal.Decimal `json:"actual,omitempty"`
}

// httpStatusFromErr maps domain errors to (status, code, message).
func httpStatusFromErr(err error) (int, string, string) {
	var (
		inputErr *checkout.InputError
		nf       *checkout.ProductNotFoundError
		stock    *checkout.InsufficientStockError
		price    *checkout.PriceMismatchError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, "EMPTY_CART", "Cart is empty"
	case errors.As(err, &nf):
		return http.StatusBadRequest, "PRODUCT_NOT_FOUND", err.Error()
	case errors.As(err, &stock):
		return http.StatusBadRequest, "INSUFFICIENT_STOCK", err.Error()
	case errors.As(err, &price):
		if price.Field == checkout.FieldTotal {
			return http.StatusBadRequest, "TOTAL_MISMATCH", err.Error()
		}
		return http.StatusBadRequest, "SUBTOTAL_MISMATCH", err.Error()
	case checkout.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "service temporarily unavailable, please retry"

	case errors.Is(err, orders.ErrNotFound), errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound), errors.Is(err, cart.ErrProductNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, orders.ErrForbidden), errors.Is(err, catalog.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", err.Error()
	case errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusBadRequest, "INVALID_TRANSITION", err.Error()
	case errors.Is(err, orders.ErrStatusConflict), errors.Is(err, errIdemInProgress):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, errBadJSON), errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, catalog.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	}
	// detail error cuma ke log, jangan bocor ke client
	return http.StatusInternalServerError, "INTERNAL", "internal error"
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, code, msg := httpStatusFromErr(err)
	body := errorBody{Error: msg, Code: code}

	var (
		nf    *checkout.ProductNotFoundError
		stock *checkout.InsufficientStockError
		price *checkout.PriceMismatchError
	)
	switch {
	case errors.As(err, &stock):
		body.ProductID, body.Available, body.Requested = stock.ProductID, &stock.Available, &stock.Requested
	case errors.As(err, &nf):
		body.ProductID = nf.ProductID
	case errors.As(err, &price):
		body.Field, body.Expected, body.Actual = price.Field, &price.Expected, &price.Actual
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, body)
}
