package checkout

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
)

// Store menyediakan batas transaksi. fn dijalankan di dalam satu transaksi
// serializable; return error apa pun dari fn berarti rollback.
// Konflik/abort dari backend harus dilaporkan sebagai *TransientStoreError.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx adalah operasi cart/product/order yang terikat pada satu transaksi.
type Tx interface {
	ListCartItems(ctx context.Context, buyerID string) ([]orders.CartItem, error)
	// BatchGetProducts: produk yang tidak ada cukup tidak muncul di map.
	BatchGetProducts(ctx context.Context, productIDs []string) (map[string]orders.Product, error)
	DecrementStock(ctx context.Context, productID string, qty int) error
	CreateOrder(ctx context.Context, o orders.Order) error
	CreateOrderItems(ctx context.Context, orderID string, items []orders.OrderItem) error
	DeleteCartItems(ctx context.Context, buyerID string, itemIDs []string) error
	AppendOutbox(ctx context.Context, ev orders.OutboxEvent) error
}
