package postgres

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckoutStore menjalankan checkout di transaksi SERIALIZABLE.
type CheckoutStore struct{ DB *pgxpool.Pool }

func (s *CheckoutStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &checkoutTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit", err)
	}
	return nil
}

type checkoutTx struct{ tx pgx.Tx }

func (t *checkoutTx) ListCartItems(ctx context.Context, buyerID string) ([]orders.CartItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+cartItemCols+` FROM cart_items
		WHERE cart_id=$1 ORDER BY added_at, id`, buyerID)
	if err != nil {
		return nil, classify("list cart items", err)
	}
	items, err := collect(rows, scanCartItem)
	return items, classify("list cart items", err)
}

// BatchGetProducts mengunci baris produk (urut id) sampai tx selesai.
func (t *checkoutTx) BatchGetProducts(ctx context.Context, ids []string) (map[string]orders.Product, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+productCols+` FROM products
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, classify("batch get products", err)
	}
	list, err := collect(rows, scanProduct)
	if err != nil {
		return nil, classify("batch get products", err)
	}
	out := make(map[string]orders.Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (t *checkoutTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1 AND stock >= $2`, productID, qty)
	if err != nil {
		return classify("decrement stock", err)
	}
	if ct.RowsAffected() != 1 {
		// stok berubah di antara read dan write; ulangi dari awal
		return &checkout.TransientStoreError{Op: "decrement stock", Err: errStockGuard}
	}
	return nil
}

func (t *checkoutTx) CreateOrder(ctx context.Context, o orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, seller_ids, shipping_address, order_status, subtotal_items,
			shipping_cost, shipping_insurance_fee, application_fee, product_discount, shipping_discount,
			total_amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID, o.BuyerID, o.SellerIDs, o.ShippingAddress, string(o.Status), o.SubtotalItems,
		o.ShippingCost, o.ShippingInsuranceFee, o.ApplicationFee, o.ProductDiscount, o.ShippingDiscount,
		o.TotalAmount, o.CreatedAt,
	)
	return classify("create order", err)
}

func (t *checkoutTx) CreateOrderItems(ctx context.Context, orderID string, items []orders.OrderItem) error {
	b := &pgx.Batch{}
	for _, it := range items {
		b.Queue(`INSERT INTO order_items(id, order_id, product_id, quantity, price_per_item)
			VALUES ($1,$2,$3,$4,$5)`, it.ID, orderID, it.ProductID, it.Quantity, it.PricePerItem)
	}
	return classify("create order items", t.tx.SendBatch(ctx, b).Close())
}

func (t *checkoutTx) DeleteCartItems(ctx context.Context, buyerID string, itemIDs []string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND id = ANY($2)`, buyerID, itemIDs)
	if err != nil {
		return classify("delete cart items", err)
	}
	if int(ct.RowsAffected()) != len(itemIDs) {
		// cart diubah request lain di tengah checkout
		return &checkout.TransientStoreError{Op: "delete cart items", Err: pgx.ErrNoRows}
	}
	return nil
}

func (t *checkoutTx) AppendOutbox(ctx context.Context, ev orders.OutboxEvent) error {
	return insertOutbox(ctx, t.tx, ev)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, ev orders.OutboxEvent) error {
	headers, err := json.Marshal(ev.Headers)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox(event_id, topic, aggregate_id, event_type, payload, headers, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.Topic, ev.AggregateID, ev.EventType, ev.Payload, headers, ev.CreatedAt)
	return classify("append outbox", err)
}
