package postgres

import (
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/jackc/pgx/v5"
)

const (
	productCols  = `id, seller_id, name, description, price, stock, status, category_id, region_id, images, created_at, updated_at`
	cartItemCols = `id, cart_id, product_id, quantity, price_per_item, added_at`
	orderCols    = `id, buyer_id, seller_ids, shipping_address, order_status, subtotal_items, shipping_cost,
		shipping_insurance_fee, application_fee, product_discount, shipping_discount, total_amount, created_at, updated_at`
	orderItemCols = `id, order_id, product_id, quantity, price_per_item`
)

func scanProduct(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	var status string
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price, &p.Stock, &status,
		&p.CategoryID, &p.RegionID, &p.Images, &p.CreatedAt, &p.UpdatedAt)
	p.Status = orders.ProductStatus(status)
	return p, err
}

func scanCartItem(row pgx.Row) (orders.CartItem, error) {
	var c orders.CartItem
	err := row.Scan(&c.ID, &c.CartID, &c.ProductID, &c.Quantity, &c.PricePerItem, &c.AddedAt)
	return c, err
}

func scanOrder(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	var status string
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerIDs, &o.ShippingAddress, &status,
		&o.SubtotalItems, &o.ShippingCost, &o.ShippingInsuranceFee, &o.ApplicationFee,
		&o.ProductDiscount, &o.ShippingDiscount, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	o.Status = orders.Status(status)
	return o, err
}

func scanOrderItem(row pgx.Row) (orders.OrderItem, error) {
	var it orders.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PricePerItem)
	return it, err
}

// collect membaca semua baris dengan fungsi scan yang sama.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
