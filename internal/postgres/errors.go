package postgres

import (
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

var errStockGuard = errors.New("stock guard rejected decrement")

// classify: konflik/deadlock/timeout jadi TransientStoreError, sisanya dibungkus biasa.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return &checkout.TransientStoreError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return &checkout.TransientStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
