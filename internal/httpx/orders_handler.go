package httpx

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"log/slog"
	"net/http"
	"strings"
)

type Checkout interface {
	CreateOrderFromCart(ctx context.Context, buyerID string, in checkout.CheckoutData) (orders.Order, error)
}

type OrderService interface {
	Get(ctx context.Context, v orders.Viewer, id string) (orders.Detail, error)
	List(ctx context.Context, v orders.Viewer, page, limit int) (orders.QueryResult[orders.Summary], error)
	UpdateStatus(ctx context.Context, v orders.Viewer, id string, to orders.Status) (orders.Order, error)
}

// Idempotency: redisx.Store.
type Idempotency interface {
	Reserve(ctx context.Context, buyerID, key string) (orderID string, inFlight bool, err error)
	Complete(ctx context.Context, buyerID, key, orderID string) error
	Release(ctx context.Context, buyerID, key string) error
}

// OrderCache: redisx.Store.
type OrderCache interface {
	CachedOrder(ctx context.Context, orderID string) (orders.Detail, bool)
	CacheOrder(ctx context.Context, d orders.Detail) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

type OrdersHandler struct {
	Checkout Checkout
	Orders   OrderService
	Idem     Idempotency // optional
	Cache    OrderCache  // optional
	Log      *slog.Logger
	Tracer   trace.Tracer
}

// CreateOrderReq: field nil = tidak dikirim client.
type CreateOrderReq struct {
	ShippingAddress      string           `json:"shipping_address"`
	SubtotalItems        *decimal.Decimal `json:"subtotal_items"`
	ShippingCost         *decimal.Decimal `json:"shipping_cost"`
	ShippingInsuranceFee *decimal.Decimal `json:"shipping_insurance_fee"`
	ApplicationFee       *decimal.Decimal `json:"application_fee"`
	ProductDiscount      *decimal.Decimal `json:"product_discount"`
	ShippingDiscount     *decimal.Decimal `json:"shipping_discount"`
	TotalAmount          *decimal.Decimal `json:"total_amount"`
}

func (req CreateOrderReq) CheckoutData() (checkout.CheckoutData, error) {
	required := []struct {
		name string
		v    *decimal.Decimal
	}{
		{"subtotal_items", req.SubtotalItems},
		{"shipping_cost", req.ShippingCost},
		{"shipping_insurance_fee", req.ShippingInsuranceFee},
		{"application_fee", req.ApplicationFee},
		{"total_amount", req.TotalAmount},
	}
	for _, f := range required {
		if f.v == nil {
			return checkout.CheckoutData{}, &checkout.InputError{Field: f.name, Reason: "required"}
		}
	}
	orZero := func(d *decimal.Decimal) decimal.Decimal {
		if d == nil {
			return decimal.Zero
		}
		return *d
	}
	return checkout.CheckoutData{
		ShippingAddress:      req.ShippingAddress,
		SubtotalItems:        *req.SubtotalItems,
		ShippingCost:         *req.ShippingCost,
		ShippingInsuranceFee: *req.ShippingInsuranceFee,
		ApplicationFee:       *req.ApplicationFee,
		ProductDiscount:      orZero(req.ProductDiscount),
		ShippingDiscount:     orZero(req.ShippingDiscount),
		TotalAmount:          *req.TotalAmount,
	}, nil
}

type updateStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.With(auth.RequireRole(orders.RoleBuyer)).Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) tracer() trace.Tracer {
	if h.Tracer == nil {
		return otel.Tracer("httpx")
	}
	return h.Tracer
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	log := logger(h.Log)
	id := identity(r)
	ctx, span := h.tracer().Start(r.Context(), "POST /orders", trace.WithAttributes(attribute.String("buyer_id", id.UserID)))
	defer span.End()

	var req CreateOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	in, err := req.CheckoutData()
	if err != nil {
		writeError(w, log, err)
		return
	}

	// 1) Idempotency-Key (opsional)
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.Idem != nil {
		existing, inFlight, err := h.Idem.Reserve(ctx, id.UserID, key)
		switch {
		case err != nil:
			// redis down: lanjut tanpa idempotency
			log.Warn("idempotency unavailable", "buyer_id", id.UserID, "err", err)
			key = ""
		case inFlight:
			writeError(w, log, errIdemInProgress)
			return
		case existing != "":
			d, err := h.Orders.Get(ctx, id.Viewer(), existing)
			if err != nil {
				writeError(w, log, err)
				return
			}
			w.Header().Set("Idempotent-Replayed", "true")
			writeJSON(w, http.StatusOK, d.Order)
			return
		}
	} else {
		key = ""
	}

	// 2) checkout
	o, err := h.Checkout.CreateOrderFromCart(ctx, id.UserID, in)
	if err != nil {
		if key != "" {
			if rErr := h.Idem.Release(ctx, id.UserID, key); rErr != nil {
				log.Warn("release idempotency key", "err", rErr)
			}
		}
		span.SetAttributes(attribute.String("checkout.outcome", checkout.Outcome(err)))
		writeError(w, log, err)
		return
	}
	if key != "" {
		if err := h.Idem.Complete(ctx, id.UserID, key, o.ID); err != nil {
			log.Warn("complete idempotency key", "order_id", o.ID, "err", err)
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	res, err := h.Orders.List(r.Context(), identity(r).Viewer(), page, limit)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := identity(r).Viewer()
	orderID := chi.URLParam(r, "id")

	// cache dulu; akses tetap dicek
	if h.Cache != nil {
		if d, ok := h.Cache.CachedOrder(ctx, orderID); ok {
			if !orders.CanView(v, d.Order) {
				writeError(w, logger(h.Log), orders.ErrForbidden)
				return
			}
			w.Header().Set("X-Cache", "HIT")
			writeJSON(w, http.StatusOK, d)
			return
		}
	}

	d, err := h.Orders.Get(ctx, v, orderID)
	if err != nil {
		writeError(w, logger(h.Log), err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.CacheOrder(ctx, d); err != nil {
			logger(h.Log).Warn("cache order", "order_id", orderID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	log := logger(h.Log)
	var req updateStatusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	orderID := chi.URLParam(r, "id")
	o, err := h.Orders.UpdateStatus(r.Context(), identity(r).Viewer(), orderID, req.Status)
	if err != nil {
		writeError(w, log, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.InvalidateOrder(r.Context(), orderID); err != nil {
			log.Warn("invalidate order cache", "order_id", orderID, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, o)
}
