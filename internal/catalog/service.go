package catalog

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrForbidden    = errors.New("product belongs to another seller")
	ErrInvalidInput = errors.New("invalid product input")
)

type Repository interface {
	Get(ctx context.Context, id string) (orders.Product, error)
	List(ctx context.Context, f Filter) ([]orders.Product, int, error)
	Create(ctx context.Context, p orders.Product) error
	// Update menulis hanya kolom yang di-set di patch; stok dari checkout tidak ikut tertimpa.
	Update(ctx context.Context, id, sellerID string, patch Patch, at time.Time) (orders.Product, error)
	Search(ctx context.Context, prefix string, limit int) ([]orders.Product, error)
	Delete(ctx context.Context, id string) error
}

type Filter struct {
	SellerID   string
	CategoryID string
	RegionID   string
	Status     orders.ProductStatus
	Offset     int
	Limit      int
}

type CreateInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Price       decimal.Decimal      `json:"price"`
	Stock       int                  `json:"stock"`
	Status      orders.ProductStatus `json:"status"`
	CategoryID  string               `json:"category_id"`
	RegionID    string               `json:"region_id"`
	Images      []string             `json:"images"`
}

// Patch: nil = tidak diubah.
type Patch struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Price       *decimal.Decimal      `json:"price"`
	Stock       *int                  `json:"stock"`
	Status      *orders.ProductStatus `json:"status"`
	CategoryID  *string               `json:"category_id"`
	RegionID    *string               `json:"region_id"`
	Images      []string              `json:"images"`
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Get(ctx context.Context, id string) (orders.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, page, limit int) (orders.QueryResult[orders.Product], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	f.Offset, f.Limit = (page-1)*limit, limit
	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return orders.QueryResult[orders.Product]{}, fmt.Errorf("list products: %w", err)
	}
	if list == nil {
		list = []orders.Product{}
	}
	return orders.QueryResult[orders.Product]{Data: list, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) Create(ctx context.Context, sellerID string, in CreateInput) (orders.Product, error) {
	if in.Status == "" {
		in.Status = orders.ProductAvailable
	}
	if err := validate(in.Name, in.Price, in.Stock, in.Status); err != nil {
		return orders.Product{}, err
	}
	now := s.now()
	p := orders.Product{
		ID:          uuid.NewString(),
		SellerID:    sellerID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Status:      in.Status,
		CategoryID:  in.CategoryID,
		RegionID:    in.RegionID,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return orders.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// Update: hanya pemilik produk. Stok di-set langsung (bukan delta), dan
// hanya kalau patch membawa field stock.
func (s *Service) Update(ctx context.Context, sellerID, id string, patch Patch) (orders.Product, error) {
	if _, err := s.owned(ctx, sellerID, id); err != nil {
		return orders.Product{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validatePatch(patch); err != nil {
		return orders.Product{}, err
	}
	p, err := s.repo.Update(ctx, id, sellerID, patch, s.now())
	if err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

const maxSearch = 15

// Search: prefix nama, hanya produk available.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]orders.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	if limit < 1 || limit > 100 {
		limit = maxSearch
	}
	list, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	if list == nil {
		list = []orders.Product{}
	}
	return list, nil
}

func (s *Service) Delete(ctx context.Context, sellerID, id string) error {
	if _, err := s.owned(ctx, sellerID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, sellerID, id string) (orders.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return orders.Product{}, err
	}
	if p.SellerID != sellerID {
		return orders.Product{}, ErrForbidden
	}
	return p, nil
}

func validatePatch(p Patch) error {
	switch {
	case p.Name != nil && *p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case p.Price != nil && p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case p.Stock != nil && *p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	case p.Status != nil && !p.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *p.Status)
	}
	return nil
}

func validate(name string, price decimal.Decimal, stock int, status orders.ProductStatus) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	case !status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return nil
}
