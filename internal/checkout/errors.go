package checkout

import (
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubtotalMismatch = errors.New("subtotal mismatch")
	ErrTotalMismatch    = errors.New("total amount mismatch")
	ErrTransient        = errors.New("transient store error")
)

type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Shortfall() int { return e.Requested - e.Available }

// PriceMismatchError: Expected = hitungan server, Actual = nilai dari client.
type PriceMismatchError struct {
	Field    string // "subtotal_items" | "total_amount"
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

const (
	FieldSubtotal = "subtotal_items"
	FieldTotal    = "total_amount"
)

func (e *PriceMismatchError) Error() string {
	what := "subtotal"
	if e.Field == FieldTotal {
		what = "total amount"
	}
	return fmt.Sprintf("%s mismatch: client %s, server %s", what, e.Actual.StringFixed(2), e.Expected.StringFixed(2))
}

func (e *PriceMismatchError) Is(target error) bool {
	switch target {
	case ErrSubtotalMismatch:
		return e.Field == FieldSubtotal
	case ErrTotalMismatch:
		return e.Field == FieldTotal
	}
	return false
}

// TransientStoreError menandai kegagalan store yang aman di-retry dari awal
// (serialization conflict, deadlock, commit gagal, koneksi putus).
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	if e.Err == nil {
		return "transient store error: " + e.Op
	}
	return fmt.Sprintf("transient store error: %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

func (e *TransientStoreError) Is(target error) bool { return target == ErrTransient }

func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// Outcome dipakai sebagai label metrics/log.
func Outcome(err error) string {
	var (
		inputErr *InputError
		nf       *ProductNotFoundError
		stock    *InsufficientStockError
		price    *PriceMismatchError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &inputErr):
		return "invalid_input"
	case errors.As(err, &nf):
		return "product_not_found"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &price):
		return "price_mismatch"
	case IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
