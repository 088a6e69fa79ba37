package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

// OrderRepo: sisi baca order + update status.
type OrderRepo struct{ DB *pgxpool.Pool }

func (r *OrderRepo) Get(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, err
}

func (r *OrderRepo) Items(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderItemCols+` FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrderItem)
}

func (r *OrderRepo) List(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error) {
	where, args := "", []any{}
	switch {
	case f.BuyerID != "":
		where, args = ` WHERE buyer_id=$1`, append(args, f.BuyerID)
	case f.SellerID != "":
		// GIN index di seller_ids
		where, args = ` WHERE seller_ids @> ARRAY[$1]::text[]`, append(args, f.SellerID)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders`+where+
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collect(rows, scanOrder)
	return list, total, err
}

func (r *OrderRepo) ProductsByIDs(ctx context.Context, ids []string) (map[string]orders.Product, error) {
	return productsByIDs(ctx, r.DB, ids)
}

func (r *OrderRepo) UsersByIDs(ctx context.Context, ids []string) (map[string]orders.User, error) {
	out := make(map[string]orders.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT id, username, email, role FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u orders.User
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &role); err != nil {
			return nil, err
		}
		u.Role = orders.Role(role)
		out[u.ID] = u
	}
	return out, rows.Err()
}

// UpdateStatus: compare-and-set di kolom order_status + tulis event ke outbox dalam 1 tx.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to orders.Status, at time.Time, ev orders.OutboxEvent) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `UPDATE orders SET order_status=$3, updated_at=$4 WHERE id=$1 AND order_status=$2`,
		id, string(from), string(to), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrStatusConflict
	}
	if err := insertOutbox(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
