package postgres

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepo struct{ DB *pgxpool.Pool }

// ListItems: item terbaru dulu.
func (r *CartRepo) ListItems(ctx context.Context, buyerID string) ([]orders.CartItem, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+cartItemCols+` FROM cart_items
		WHERE cart_id=$1 ORDER BY added_at DESC, id`, buyerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCartItem)
}

func (r *CartRepo) ListAll(ctx context.Context, offset, limit int) ([]orders.CartItem, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM cart_items`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.Query(ctx, `SELECT `+cartItemCols+` FROM cart_items
		ORDER BY added_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	list, err := collect(rows, scanCartItem)
	return list, total, err
}

func (r *CartRepo) AddItem(ctx context.Context, it orders.CartItem) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items(id, cart_id, product_id, quantity, price_per_item, added_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		it.ID, it.CartID, it.ProductID, it.Quantity, it.PricePerItem, it.AddedAt)
	return err
}

func (r *CartRepo) UpdateQuantity(ctx context.Context, buyerID, itemID string, qty int) error {
	ct, err := r.DB.Exec(ctx, `UPDATE cart_items SET quantity=$3 WHERE cart_id=$1 AND id=$2`, buyerID, itemID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

func (r *CartRepo) DeleteItem(ctx context.Context, buyerID, itemID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND id=$2`, buyerID, itemID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}
