package checkout

import (
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/shopspring/decimal"
	"testing"
	"time"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func product(id, seller, price string, stock int) orders.Product {
	return orders.Product{ID: id, SellerID: seller, Price: d(price), Stock: stock, Status: orders.ProductAvailable}
}

func cartItem(id, productID string, qty int, price string) orders.CartItem {
	return orders.CartItem{ID: id, CartID: "buyer-1", ProductID: productID, Quantity: qty, PricePerItem: d(price)}
}

func baseData() CheckoutData {
	return CheckoutData{
		ShippingAddress:      "Jl. Sudirman 1, Jakarta",
		SubtotalItems:        d("20000"),
		ShippingCost:         d("5000"),
		ShippingInsuranceFee: d("1000"),
		ApplicationFee:       d("500"),
		TotalAmount:          d("26500"),
	}
}

func TestValidate(t *testing.T) {
	rsA := ReadSet{
		BuyerID:   "buyer-1",
		CartItems: []orders.CartItem{cartItem("c1", "A", 2, "10000")},
		Products:  map[string]orders.Product{"A": product("A", "seller-1", "10000", 10)},
	}

	t.Run("happy path -> totals", func(t *testing.T) {
		got, err := Validate(rsA, baseData())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !got.Subtotal.Equal(d("20000")) || !got.Total.Equal(d("26500")) {
			t.Fatalf("got subtotal=%s total=%s", got.Subtotal, got.Total)
		}
		if len(got.SellerIDs) != 1 || got.SellerIDs[0] != "seller-1" {
			t.Fatalf("seller ids = %v", got.SellerIDs)
		}
		if got.Demand["A"] != 2 {
			t.Fatalf("demand = %v", got.Demand)
		}
	})

	t.Run("empty cart -> ErrEmptyCart", func(t *testing.T) {
		_, err := Validate(ReadSet{BuyerID: "buyer-1"}, baseData())
		if !errors.Is(err, ErrEmptyCart) {
			t.Fatalf("expected ErrEmptyCart, got %v", err)
		}
	})

	t.Run("missing product -> ProductNotFoundError", func(t *testing.T) {
		rs := ReadSet{CartItems: []orders.CartItem{cartItem("c1", "GONE", 1, "10")}, Products: map[string]orders.Product{}}
		_, err := Validate(rs, baseData())
		var nf *ProductNotFoundError
		if !errors.As(err, &nf) || nf.ProductID != "GONE" {
			t.Fatalf("expected ProductNotFoundError(GONE), got %v", err)
		}
	})

	t.Run("stock 1 qty 2 -> InsufficientStockError", func(t *testing.T) {
		rs := ReadSet{
			CartItems: []orders.CartItem{cartItem("c1", "A", 2, "10000")},
			Products:  map[string]orders.Product{"A": product("A", "s", "10000", 1)},
		}
		_, err := Validate(rs, baseData())
		var se *InsufficientStockError
		if !errors.As(err, &se) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if se.ProductID != "A" || se.Available != 1 || se.Requested != 2 || se.Shortfall() != 1 {
			t.Fatalf("got %+v", se)
		}
	})

	t.Run("duplicate lines are summed against stock", func(t *testing.T) {
		rs := ReadSet{
			CartItems: []orders.CartItem{cartItem("c1", "A", 2, "10000"), cartItem("c2", "A", 2, "10000")},
			Products:  map[string]orders.Product{"A": product("A", "s", "10000", 3)},
		}
		in := baseData()
		in.SubtotalItems = d("40000")
		in.TotalAmount = d("46500")
		_, err := Validate(rs, in)
		var se *InsufficientStockError
		if !errors.As(err, &se) || se.Requested != 4 || se.Available != 3 {
			t.Fatalf("expected aggregated InsufficientStockError, got %v", err)
		}
	})

	t.Run("subtotal 19000 vs 20000 -> subtotal mismatch", func(t *testing.T) {
		in := baseData()
		in.SubtotalItems = d("19000")
		in.TotalAmount = d("25500")
		_, err := Validate(rsA, in)
		if !errors.Is(err, ErrSubtotalMismatch) || errors.Is(err, ErrTotalMismatch) {
			t.Fatalf("expected subtotal mismatch, got %v", err)
		}
		var pm *PriceMismatchError
		errors.As(err, &pm)
		if !pm.Expected.Equal(d("20000")) || !pm.Actual.Equal(d("19000")) {
			t.Fatalf("got %+v", pm)
		}
	})

	t.Run("subtotal check uses current price not cart snapshot", func(t *testing.T) {
		rs := ReadSet{
			CartItems: []orders.CartItem{cartItem("c1", "A", 2, "9000")},
			Products:  map[string]orders.Product{"A": product("A", "s", "10000", 5)},
		}
		if _, err := Validate(rs, baseData()); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		in := baseData()
		in.SubtotalItems = d("18000")
		in.TotalAmount = d("24500")
		if _, err := Validate(rs, in); !errors.Is(err, ErrSubtotalMismatch) {
			t.Fatalf("expected subtotal mismatch, got %v", err)
		}
	})

	t.Run("total off by more than 0.01 -> total mismatch", func(t *testing.T) {
		in := baseData()
		in.TotalAmount = d("26500.02")
		if _, err := Validate(rsA, in); !errors.Is(err, ErrTotalMismatch) {
			t.Fatalf("expected total mismatch, got %v", err)
		}
	})

	t.Run("total within 0.01 -> ok", func(t *testing.T) {
		in := baseData()
		in.TotalAmount = d("26500.01")
		if _, err := Validate(rsA, in); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	})

	t.Run("discounts are subtracted", func(t *testing.T) {
		in := baseData()
		in.ProductDiscount = d("2000")
		in.ShippingDiscount = d("1500")
		in.TotalAmount = d("23000")
		if _, err := Validate(rsA, in); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	})

	t.Run("seller ids distinct in cart order", func(t *testing.T) {
		rs := ReadSet{
			CartItems: []orders.CartItem{
				cartItem("c1", "B", 1, "100"),
				cartItem("c2", "A", 1, "100"),
				cartItem("c3", "C", 1, "100"),
			},
			Products: map[string]orders.Product{
				"A": product("A", "s1", "100", 1),
				"B": product("B", "s2", "100", 1),
				"C": product("C", "s2", "100", 1),
			},
		}
		in := CheckoutData{ShippingAddress: "x", SubtotalItems: d("300"), TotalAmount: d("300")}
		got, err := Validate(rs, in)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if len(got.SellerIDs) != 2 || got.SellerIDs[0] != "s2" || got.SellerIDs[1] != "s1" {
			t.Fatalf("seller ids = %v", got.SellerIDs)
		}
	})
}

func TestValidateInput(t *testing.T) {
	t.Run("blank address -> invalid", func(t *testing.T) {
		in := baseData()
		in.ShippingAddress = "   "
		var ie *InputError
		if err := ValidateInput(in); !errors.As(err, &ie) || ie.Field != "shipping_address" {
			t.Fatalf("expected InputError(shipping_address), got %v", err)
		}
	})

	t.Run("negative fee -> invalid", func(t *testing.T) {
		in := baseData()
		in.ApplicationFee = d("-1")
		var ie *InputError
		if err := ValidateInput(in); !errors.As(err, &ie) || ie.Field != "application_fee" {
			t.Fatalf("expected InputError(application_fee), got %v", err)
		}
	})

	t.Run("zero discounts -> ok", func(t *testing.T) {
		if err := ValidateInput(baseData()); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	})
}

func TestPlan(t *testing.T) {
	rs := ReadSet{
		BuyerID: "buyer-1",
		CartItems: []orders.CartItem{
			cartItem("c1", "B", 1, "500"),
			cartItem("c2", "A", 2, "900"),
			cartItem("c3", "B", 3, "500"),
		},
		Products: map[string]orders.Product{
			"A": product("A", "s1", "1000", 10),
			"B": product("B", "s2", "500", 10),
		},
	}
	in := CheckoutData{ShippingAddress: "  Jl. Merdeka 2 ", SubtotalItems: d("4000"), TotalAmount: d("4000")}
	totals, err := Validate(rs, in)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ws := Plan(rs, in, totals, seqIDs(), now)

	if ws.Order.ID != "id-1" || ws.Order.Status != orders.StatusPending || !ws.Order.CreatedAt.Equal(now) {
		t.Fatalf("order = %+v", ws.Order)
	}
	if ws.Order.ShippingAddress != "Jl. Merdeka 2" {
		t.Fatalf("address not trimmed: %q", ws.Order.ShippingAddress)
	}
	if len(ws.Items) != 3 {
		t.Fatalf("items = %d", len(ws.Items))
	}
	if !ws.Items[1].PricePerItem.Equal(d("900")) {
		t.Fatalf("item price should come from cart snapshot, got %s", ws.Items[1].PricePerItem)
	}
	for _, it := range ws.Items {
		if it.OrderID != ws.Order.ID {
			t.Fatalf("item %s not linked to order", it.ID)
		}
	}
	want := []StockDecrement{{"A", 2}, {"B", 4}}
	if len(ws.Decrements) != len(want) {
		t.Fatalf("decrements = %+v", ws.Decrements)
	}
	for i := range want {
		if ws.Decrements[i] != want[i] {
			t.Fatalf("decrements = %+v, want %+v", ws.Decrements, want)
		}
	}
	if len(ws.CartItemIDs) != 3 {
		t.Fatalf("cart item ids = %v", ws.CartItemIDs)
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                 nil,
		"empty_cart":         ErrEmptyCart,
		"invalid_input":      &InputError{Field: "x", Reason: "y"},
		"product_not_found":  fmt.Errorf("wrap: %w", &ProductNotFoundError{ProductID: "A"}),
		"insufficient_stock": &InsufficientStockError{ProductID: "A"},
		"price_mismatch":     &PriceMismatchError{Field: FieldTotal},
		"transient":          &TransientStoreError{Op: "commit"},
		"error":              errBoom,
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) = %s, want %s", err, got, want)
		}
	}
}
