package checkout

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/shopspring/decimal"
	"sync"
)

var errBoom = errors.New("boom")

// memStore runs every transaction serially against a copy of its state and
// swaps the copy in only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	products map[string]orders.Product
	carts    map[string][]orders.CartItem
	orders   map[string]orders.Order
	items    map[string][]orders.OrderItem
	outbox   []orders.OutboxEvent

	conflicts int    // commit berikutnya yang dipaksa gagal transient
	failOn    string // nama operasi Tx yang dipaksa error
	txCount   int
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]orders.Product{},
		carts:    map[string][]orders.CartItem{},
		orders:   map[string]orders.Order{},
		items:    map[string][]orders.OrderItem{},
	}
}

func (s *memStore) putProduct(id, seller, price string, stock int) {
	s.products[id] = orders.Product{
		ID: id, SellerID: seller, Name: "product " + id,
		Price: decimal.RequireFromString(price), Stock: stock, Status: orders.ProductAvailable,
	}
}

func (s *memStore) addCart(buyer, itemID, productID string, qty int, price string) {
	s.carts[buyer] = append(s.carts[buyer], orders.CartItem{
		ID: itemID, CartID: buyer, ProductID: productID, Quantity: qty,
		PricePerItem: decimal.RequireFromString(price),
	})
}

func (s *memStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) cartLen(buyer string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[buyer])
}

func (s *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	tx := &memTx{
		failOn:   s.failOn,
		products: make(map[string]orders.Product, len(s.products)),
		carts:    make(map[string][]orders.CartItem, len(s.carts)),
		orders:   make(map[string]orders.Order, len(s.orders)),
		items:    make(map[string][]orders.OrderItem, len(s.items)),
		outbox:   append([]orders.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.products {
		tx.products[k] = v
	}
	for k, v := range s.carts {
		tx.carts[k] = append([]orders.CartItem(nil), v...)
	}
	for k, v := range s.orders {
		tx.orders[k] = v
	}
	for k, v := range s.items {
		tx.items[k] = v
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if s.conflicts > 0 {
		s.conflicts--
		return &TransientStoreError{Op: "commit", Err: errors.New("could not serialize access")}
	}
	s.products, s.carts, s.orders, s.items, s.outbox = tx.products, tx.carts, tx.orders, tx.items, tx.outbox
	return nil
}

type memTx struct {
	failOn   string
	products map[string]orders.Product
	carts    map[string][]orders.CartItem
	orders   map[string]orders.Order
	items    map[string][]orders.OrderItem
	outbox   []orders.OutboxEvent
}

func (t *memTx) fail(op string) error {
	if t.failOn == op {
		return fmt.Errorf("%s: %w", op, errBoom)
	}
	return nil
}

func (t *memTx) ListCartItems(ctx context.Context, buyerID string) ([]orders.CartItem, error) {
	if err := t.fail("list_cart_items"); err != nil {
		return nil, err
	}
	return append([]orders.CartItem(nil), t.carts[buyerID]...), nil
}

func (t *memTx) BatchGetProducts(ctx context.Context, ids []string) (map[string]orders.Product, error) {
	if err := t.fail("batch_get_products"); err != nil {
		return nil, err
	}
	out := map[string]orders.Product{}
	for _, id := range ids {
		if p, ok := t.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	if err := t.fail("decrement_stock"); err != nil {
		return err
	}
	p := t.products[productID]
	if p.Stock < qty {
		return &TransientStoreError{Op: "decrement_stock", Err: errors.New("stock guard")}
	}
	p.Stock -= qty
	t.products[productID] = p
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, o orders.Order) error {
	if err := t.fail("create_order"); err != nil {
		return err
	}
	t.orders[o.ID] = o
	return nil
}

func (t *memTx) CreateOrderItems(ctx context.Context, orderID string, items []orders.OrderItem) error {
	if err := t.fail("create_order_items"); err != nil {
		return err
	}
	t.items[orderID] = append([]orders.OrderItem(nil), items...)
	return nil
}

func (t *memTx) DeleteCartItems(ctx context.Context, buyerID string, itemIDs []string) error {
	if err := t.fail("delete_cart_items"); err != nil {
		return err
	}
	drop := map[string]bool{}
	for _, id := range itemIDs {
		drop[id] = true
	}
	kept := t.carts[buyerID][:0:0]
	for _, it := range t.carts[buyerID] {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	t.carts[buyerID] = kept
	return nil
}

func (t *memTx) AppendOutbox(ctx context.Context, ev orders.OutboxEvent) error {
	if err := t.fail("append_outbox"); err != nil {
		return err
	}
	t.outbox = append(t.outbox, ev)
	return nil
}
