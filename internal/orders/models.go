package orders

import (
	"github.com/shopspring/decimal"
	"time"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

type ProductStatus string

const (
	ProductAvailable   ProductStatus = "available"
	ProductUnavailable ProductStatus = "unavailable"
)

func (s ProductStatus) Valid() bool {
	return s == ProductAvailable || s == ProductUnavailable
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type Product struct {
	ID          string          `json:"id"`
	SellerID    string          `json:"seller_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      ProductStatus   `json:"status"`
	CategoryID  string          `json:"category_id"`
	RegionID    string          `json:"region_id"`
	Images      []string        `json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CartItem: cart_id selalu = buyer_id (1 cart per buyer).
type CartItem struct {
	ID           string          `json:"id"`
	CartID       string          `json:"cart_id"`
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"` // snapshot saat add-to-cart
	AddedAt      time.Time       `json:"added_at"`
}

type Order struct {
	ID                   string          `json:"id"`
	BuyerID              string          `json:"buyer_id"`
	SellerIDs            []string        `json:"seller_ids"`
	ShippingAddress      string          `json:"shipping_address"`
	Status               Status          `json:"order_status"` // lihat status.go
	SubtotalItems        decimal.Decimal `json:"subtotal_items"`
	ShippingCost         decimal.Decimal `json:"shipping_cost"`
	ShippingInsuranceFee decimal.Decimal `json:"shipping_insurance_fee"`
	ApplicationFee       decimal.Decimal `json:"application_fee"`
	ProductDiscount      decimal.Decimal `json:"product_discount"`
	ShippingDiscount     decimal.Decimal `json:"shipping_discount"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            *time.Time      `json:"updated_at,omitempty"`
}

// HasSeller dipakai untuk cek akses seller ke order.
func (o Order) HasSeller(sellerID string) bool {
	for _, id := range o.SellerIDs {
		if id == sellerID {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.PricePerItem.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
