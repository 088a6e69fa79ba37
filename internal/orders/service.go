package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrStatusConflict: status di DB sudah berubah sejak dibaca.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

const (
	placeholderDeleted  = "[Product Deleted]"
	placeholderNotFound = "[Product Not Found]"
	placeholderError    = "[Error]"
	placeholderNoItems  = "No items"

	enrichLimit = 8
)

// Repository is the order read model plus the status update path.
type Repository interface {
	Get(ctx context.Context, id string) (Order, error)
	Items(ctx context.Context, orderID string) ([]OrderItem, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	ProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]User, error)
	// UpdateStatus hanya berhasil kalau status masih `from`; event ditulis di tx yang sama.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time, ev OutboxEvent) error
}

type ListFilter struct {
	BuyerID  string
	SellerID string
	Offset   int
	Limit    int
}

type Viewer struct {
	UserID string
	Role   Role
}

type QueryResult[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type ProductDetails struct {
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

type ItemDetail struct {
	OrderItem
	ProductDetails *ProductDetails `json:"product_details,omitempty"`
}

type Detail struct {
	Order
	Items []ItemDetail `json:"items"`
}

type ItemsSummary struct {
	TotalItems        int      `json:"total_items"`
	FirstProductName  string   `json:"first_product_name,omitempty"`
	FirstProductImage string   `json:"first_product_image,omitempty"`
	ProductNames      []string `json:"product_names,omitempty"`
}

type BuyerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Summary struct {
	Order
	BuyerInfo    *BuyerInfo   `json:"buyer_info,omitempty"`
	ItemsSummary ItemsSummary `json:"items_summary"`
}

type Service struct {
	repo    Repository
	log     *slog.Logger
	now     func() time.Time
	service string
}

func NewService(repo Repository, log *slog.Logger, serviceName string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }, service: serviceName}
}

func CanView(v Viewer, o Order) bool {
	switch v.Role {
	case RoleAdmin:
		return true
	case RoleSeller:
		return o.BuyerID == v.UserID || o.HasSeller(v.UserID)
	default:
		return o.BuyerID == v.UserID
	}
}

// Get returns the order with its items; each item carries product name/images
// when the product still exists.
func (s *Service) Get(ctx context.Context, v Viewer, id string) (Detail, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if !CanView(v, o) {
		return Detail{}, ErrForbidden
	}

	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("load items: %w", err)
	}
	products, err := s.repo.ProductsByIDs(ctx, productIDs(items))
	if err != nil {
		// detail produk cuma pelengkap
		s.log.Warn("order detail: product lookup failed", "order_id", id, "err", err)
		products = nil
	}

	out := Detail{Order: o, Items: make([]ItemDetail, 0, len(items))}
	for _, it := range items {
		d := ItemDetail{OrderItem: it}
		if p, ok := products[it.ProductID]; ok {
			d.ProductDetails = &ProductDetails{Name: p.Name, Images: p.Images}
		}
		out.Items = append(out.Items, d)
	}
	return out, nil
}

// List picks the query by role: admin sees everything, seller sees orders
// containing their products, buyer sees their own.
func (s *Service) List(ctx context.Context, v Viewer, page, limit int) (QueryResult[Summary], error) {
	page, limit = normalizePage(page, limit)
	f := ListFilter{Offset: (page - 1) * limit, Limit: limit}
	switch v.Role {
	case RoleAdmin:
	case RoleSeller:
		f.SellerID = v.UserID
	default:
		f.BuyerID = v.UserID
	}

	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return QueryResult[Summary]{}, fmt.Errorf("list orders: %w", err)
	}

	var data []Summary
	if f.BuyerID != "" {
		data = s.buyerSummaries(ctx, list)
	} else {
		data = s.fullSummaries(ctx, list)
	}
	return QueryResult[Summary]{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) buyerSummaries(ctx context.Context, list []Order) []Summary {
	out := make([]Summary, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichLimit)
	for i, o := range list {
		i, o := i, o
		out[i] = Summary{Order: o}
		g.Go(func() error {
			sum, err := s.firstItemSummary(gctx, o.ID)
			if err != nil {
				s.log.Error("items summary failed", "order_id", o.ID, "err", err)
				sum = ItemsSummary{FirstProductName: placeholderError}
			}
			out[i].ItemsSummary = sum
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) firstItemSummary(ctx context.Context, orderID string) (ItemsSummary, error) {
	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return ItemsSummary{}, err
	}
	if len(items) == 0 {
		return ItemsSummary{FirstProductName: placeholderNoItems}, nil
	}
	sum := ItemsSummary{TotalItems: len(items), FirstProductName: placeholderDeleted}
	products, err := s.repo.ProductsByIDs(ctx, []string{items[0].ProductID})
	if err != nil {
		return ItemsSummary{}, err
	}
	if p, ok := products[items[0].ProductID]; ok {
		sum.FirstProductName = p.Name
		if len(p.Images) > 0 {
			sum.FirstProductImage = p.Images[0]
		}
	}
	return sum, nil
}

func (s *Service) fullSummaries(ctx context.Context, list []Order) []Summary {
	out := make([]Summary, len(list))

	buyerIDs := make([]string, 0, len(list))
	for _, o := range list {
		if o.BuyerID != "" {
			buyerIDs = append(buyerIDs, o.BuyerID)
		}
	}
	users, err := s.repo.UsersByIDs(ctx, dedupe(buyerIDs))
	if err != nil {
		s.log.Error("buyer info lookup failed", "err", err)
		users = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichLimit)
	for i, o := range list {
		i, o := i, o
		out[i] = Summary{Order: o}
		if u, ok := users[o.BuyerID]; ok {
			out[i].BuyerInfo = &BuyerInfo{ID: u.ID, Username: u.Username, Email: u.Email}
		}
		g.Go(func() error {
			sum, err := s.namesSummary(gctx, o.ID)
			if err != nil {
				s.log.Error("items summary failed", "order_id", o.ID, "err", err)
				return nil
			}
			out[i].ItemsSummary = sum
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) namesSummary(ctx context.Context, orderID string) (ItemsSummary, error) {
	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return ItemsSummary{}, err
	}
	sum := ItemsSummary{TotalItems: len(items), ProductNames: []string{}}
	if len(items) == 0 {
		return sum, nil
	}
	products, err := s.repo.ProductsByIDs(ctx, productIDs(items))
	if err != nil {
		return ItemsSummary{}, err
	}
	for _, it := range items {
		if p, ok := products[it.ProductID]; ok {
			sum.ProductNames = append(sum.ProductNames, p.Name)
		} else {
			sum.ProductNames = append(sum.ProductNames, placeholderNotFound)
		}
	}
	return sum, nil
}

// UpdateStatus moves an order along the status table. Sellers of the order
// and admins may move it; the buyer may only cancel while it is pending.
func (s *Service) UpdateStatus(ctx context.Context, v Viewer, id string, to Status) (Order, error) {
	if !to.Valid() {
		return Order{}, ErrInvalidStatus
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}

	switch {
	case v.Role == RoleAdmin:
	case v.Role == RoleSeller && o.HasSeller(v.UserID):
	case o.BuyerID == v.UserID && o.Status == StatusPending && to == StatusCancelled:
	default:
		return Order{}, ErrForbidden
	}
	if !CanTransition(o.Status, to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	at := s.now()
	ev, err := s.statusEvent(o, to, v.UserID, at)
	if err != nil {
		return Order{}, err
	}
	if err := s.repo.UpdateStatus(ctx, id, o.Status, to, at, ev); err != nil {
		return Order{}, err
	}

	s.log.Info("order status updated", "order_id", id, "from", o.Status, "to", to, "by", v.UserID)
	o.Status = to
	o.UpdatedAt = &at
	return o, nil
}

func (s *Service) statusEvent(o Order, to Status, by string, at time.Time) (OutboxEvent, error) {
	payload, err := json.Marshal(OrderStatusChangedPayload{
		OrderID: o.ID, From: o.Status, To: to, ChangedBy: by, SellerIDs: o.SellerIDs,
	})
	if err != nil {
		return OutboxEvent{}, err
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    at,
		Producer:      s.service,
		CorrelationID: o.ID,
		Payload:       payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		EventID:     env.EventID,
		Topic:       TopicOrderStatusChanged,
		AggregateID: o.ID,
		EventType:   EventOrderStatusChanged,
		Payload:     body,
		Headers:     map[string]string{"x-event-type": EventOrderStatusChanged, "x-event-version": "1"},
		CreatedAt:   at,
	}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func productIDs(items []OrderItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return dedupe(ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
