package cart

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/google/uuid"
	"log/slog"
	"time"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrProductNotFound = errors.New("product not found")
)

type Repository interface {
	ListItems(ctx context.Context, buyerID string) ([]orders.CartItem, error)
	ListAll(ctx context.Context, offset, limit int) ([]orders.CartItem, int, error)
	AddItem(ctx context.Context, it orders.CartItem) error
	UpdateQuantity(ctx context.Context, buyerID, itemID string, qty int) error
	DeleteItem(ctx context.Context, buyerID, itemID string) error
}

type Products interface {
	Get(ctx context.Context, id string) (orders.Product, error)
	ByIDs(ctx context.Context, ids []string) (map[string]orders.Product, error)
}

type Item struct {
	orders.CartItem
	ProductDetails *orders.ProductDetails `json:"product_details,omitempty"`
}

type Service struct {
	repo     Repository
	products Products
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, products Products, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, products: products, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Items returns the cart, newest first, with product name/images attached
// when the product still exists.
func (s *Service) Items(ctx context.Context, buyerID string) ([]Item, error) {
	items, err := s.repo.ListItems(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	out := make([]Item, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.ByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("cart: product lookup failed", "buyer_id", buyerID, "err", err)
	}
	for _, it := range items {
		item := Item{CartItem: it}
		if p, ok := products[it.ProductID]; ok {
			item.ProductDetails = &orders.ProductDetails{Name: p.Name, Images: p.Images}
		}
		out = append(out, item)
	}
	return out, nil
}

// All: semua cart item lintas buyer, untuk admin. Default 10 per halaman.
func (s *Service) All(ctx context.Context, page, limit int) (orders.QueryResult[orders.CartItem], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	list, total, err := s.repo.ListAll(ctx, (page-1)*limit, limit)
	if err != nil {
		return orders.QueryResult[orders.CartItem]{}, fmt.Errorf("list all carts: %w", err)
	}
	if list == nil {
		list = []orders.CartItem{}
	}
	return orders.QueryResult[orders.CartItem]{Data: list, Total: total, Page: page, Limit: limit}, nil
}

// Add always creates a new line; price_per_item is the product price right now.
func (s *Service) Add(ctx context.Context, buyerID, productID string, qty int) (orders.CartItem, error) {
	if qty <= 0 {
		return orders.CartItem{}, ErrInvalidQuantity
	}
	p, err := s.products.Get(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return orders.CartItem{}, ErrProductNotFound
	}
	if err != nil {
		return orders.CartItem{}, fmt.Errorf("load product: %w", err)
	}

	it := orders.CartItem{
		ID:           uuid.NewString(),
		CartID:       buyerID,
		ProductID:    p.ID,
		Quantity:     qty,
		PricePerItem: p.Price,
		AddedAt:      s.now(),
	}
	if err := s.repo.AddItem(ctx, it); err != nil {
		return orders.CartItem{}, fmt.Errorf("add cart item: %w", err)
	}
	return it, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, buyerID, itemID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return s.repo.UpdateQuantity(ctx, buyerID, itemID, qty)
}

func (s *Service) Remove(ctx context.Context, buyerID, itemID string) error {
	return s.repo.DeleteItem(ctx, buyerID, itemID)
}
