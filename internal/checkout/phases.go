package checkout

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/shopspring/decimal"
	"sort"
	"strings"
	"time"
)

// totalTolerance: toleransi pembulatan untuk total_amount.
var totalTolerance = decimal.New(1, -2)

type CheckoutData struct {
	ShippingAddress      string
	SubtotalItems        decimal.Decimal
	ShippingCost         decimal.Decimal
	ShippingInsuranceFee decimal.Decimal
	ApplicationFee       decimal.Decimal
	ProductDiscount      decimal.Decimal // 0 kalau tidak dikirim
	ShippingDiscount     decimal.Decimal // 0 kalau tidak dikirim
	TotalAmount          decimal.Decimal
}

// ReadSet is everything checkout reads, captured before any write.
type ReadSet struct {
	BuyerID   string
	CartItems []orders.CartItem
	Products  map[string]orders.Product
}

// Totals is the outcome of a successful Validate.
type Totals struct {
	Subtotal  decimal.Decimal
	Total     decimal.Decimal
	SellerIDs []string
	Demand    map[string]int // product_id -> total qty di cart
}

type StockDecrement struct {
	ProductID string
	Quantity  int
}

// WriteSet is applied as a whole inside the same transaction as the ReadSet.
type WriteSet struct {
	Decrements  []StockDecrement
	Order       orders.Order
	Items       []orders.OrderItem
	CartItemIDs []string
	Event       *orders.OutboxEvent
}

func ValidateInput(in CheckoutData) error {
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return &InputError{Field: "shipping_address", Reason: "required"}
	}
	amounts := []struct {
		name string
		v    decimal.Decimal
	}{
		{"subtotal_items", in.SubtotalItems},
		{"shipping_cost", in.ShippingCost},
		{"shipping_insurance_fee", in.ShippingInsuranceFee},
		{"application_fee", in.ApplicationFee},
		{"product_discount", in.ProductDiscount},
		{"shipping_discount", in.ShippingDiscount},
		{"total_amount", in.TotalAmount},
	}
	for _, a := range amounts {
		if a.v.IsNegative() {
			return &InputError{Field: a.name, Reason: "must not be negative"}
		}
	}
	return nil
}

// Read loads the cart and then every referenced product in one batch.
func Read(ctx context.Context, tx Tx, buyerID string) (ReadSet, error) {
	items, err := tx.ListCartItems(ctx, buyerID)
	if err != nil {
		return ReadSet{}, fmt.Errorf("list cart items: %w", err)
	}
	rs := ReadSet{BuyerID: buyerID, CartItems: items, Products: map[string]orders.Product{}}
	if len(items) == 0 {
		return rs, nil
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := tx.BatchGetProducts(ctx, ids)
	if err != nil {
		return ReadSet{}, fmt.Errorf("batch get products: %w", err)
	}
	if products != nil {
		rs.Products = products
	}
	return rs, nil
}

// Validate is pure: it only looks at the read set and the client's numbers.
// Stock is checked against the summed demand per product, so a product that
// appears on two cart lines cannot be oversold.
func Validate(rs ReadSet, in CheckoutData) (Totals, error) {
	if len(rs.CartItems) == 0 {
		return Totals{}, ErrEmptyCart
	}

	demand := make(map[string]int, len(rs.Products))
	subtotal := decimal.Zero
	var sellers []string
	seenSeller := map[string]bool{}

	for _, it := range rs.CartItems {
		p, ok := rs.Products[it.ProductID]
		if !ok {
			return Totals{}, &ProductNotFoundError{ProductID: it.ProductID}
		}
		demand[p.ID] += it.Quantity
		if p.Stock < demand[p.ID] {
			return Totals{}, &InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: demand[p.ID]}
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if !seenSeller[p.SellerID] {
			seenSeller[p.SellerID] = true
			sellers = append(sellers, p.SellerID)
		}
	}

	// harga produk saat ini yang jadi acuan, bukan snapshot di cart
	if !subtotal.Equal(in.SubtotalItems) {
		return Totals{}, &PriceMismatchError{Field: FieldSubtotal, Expected: subtotal, Actual: in.SubtotalItems}
	}

	total := in.SubtotalItems.
		Add(in.ShippingCost).
		Add(in.ShippingInsuranceFee).
		Add(in.ApplicationFee).
		Sub(in.ProductDiscount).
		Sub(in.ShippingDiscount)
	if total.Sub(in.TotalAmount).Abs().GreaterThan(totalTolerance) {
		return Totals{}, &PriceMismatchError{Field: FieldTotal, Expected: total, Actual: in.TotalAmount}
	}

	return Totals{Subtotal: subtotal, Total: total, SellerIDs: sellers, Demand: demand}, nil
}

// Plan builds the write set. Order items carry the cart snapshot price.
func Plan(rs ReadSet, in CheckoutData, t Totals, newID func() string, now time.Time) WriteSet {
	orderID := newID()
	order := orders.Order{
		ID:                   orderID,
		BuyerID:              rs.BuyerID,
		SellerIDs:            t.SellerIDs,
		ShippingAddress:      strings.TrimSpace(in.ShippingAddress),
		Status:               orders.StatusPending,
		SubtotalItems:        in.SubtotalItems,
		ShippingCost:         in.ShippingCost,
		ShippingInsuranceFee: in.ShippingInsuranceFee,
		ApplicationFee:       in.ApplicationFee,
		ProductDiscount:      in.ProductDiscount,
		ShippingDiscount:     in.ShippingDiscount,
		TotalAmount:          in.TotalAmount,
		CreatedAt:            now,
	}

	ws := WriteSet{
		Order:       order,
		Items:       make([]orders.OrderItem, 0, len(rs.CartItems)),
		CartItemIDs: make([]string, 0, len(rs.CartItems)),
		Decrements:  make([]StockDecrement, 0, len(t.Demand)),
	}
	for _, it := range rs.CartItems {
		ws.Items = append(ws.Items, orders.OrderItem{
			ID:           newID(),
			OrderID:      orderID,
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			PricePerItem: it.PricePerItem,
		})
		ws.CartItemIDs = append(ws.CartItemIDs, it.ID)
	}
	for pid, qty := range t.Demand {
		ws.Decrements = append(ws.Decrements, StockDecrement{ProductID: pid, Quantity: qty})
	}
	// urutan tetap, biar lock antar tx tidak saling silang
	sort.Slice(ws.Decrements, func(i, j int) bool { return ws.Decrements[i].ProductID < ws.Decrements[j].ProductID })
	return ws
}

func Apply(ctx context.Context, tx Tx, ws WriteSet) error {
	for _, d := range ws.Decrements {
		if err := tx.DecrementStock(ctx, d.ProductID, d.Quantity); err != nil {
			return fmt.Errorf("decrement stock %s: %w", d.ProductID, err)
		}
	}
	if err := tx.CreateOrder(ctx, ws.Order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if err := tx.CreateOrderItems(ctx, ws.Order.ID, ws.Items); err != nil {
		return fmt.Errorf("create order items: %w", err)
	}
	if err := tx.DeleteCartItems(ctx, ws.Order.BuyerID, ws.CartItemIDs); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	if ws.Event != nil {
		if err := tx.AppendOutbox(ctx, *ws.Event); err != nil {
			return fmt.Errorf("append outbox: %w", err)
		}
	}
	return nil
}
