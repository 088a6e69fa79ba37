package httpx

import (
	"encoding/json"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

type RouterDeps struct {
	Log       *slog.Logger
	JWTSecret []byte
	Metrics   *metrics.Metrics    // optional
	Gatherer  prometheus.Gatherer // optional, untuk /metrics

	Orders        *OrdersHandler
	Cart          *CartHandler
	Products      *ProductsHandler
	Notifications *NotificationsHandler
}

func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	// public
	if d.Products != nil {
		r.Get("/products", d.Products.list)
		r.Get("/products/search", d.Products.search)
		r.Get("/products/{id}", d.Products.get)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.JWTSecret, d.Log))
		if d.Orders != nil {
			d.Orders.Register(r)
		}
		if d.Cart != nil {
			r.With(auth.RequireRole(orders.RoleBuyer, orders.RoleAdmin)).Route("/cart", d.Cart.Register)
		}
		if d.Products != nil {
			r.With(auth.RequireRole(orders.RoleSeller)).Group(d.Products.Register)
		}
		if d.Notifications != nil {
			r.With(auth.RequireRole(orders.RoleSeller)).Route("/sellers/me/notifications", d.Notifications.Register)
		}
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// pageParams: nilai tidak valid dianggap tidak dikirim (service yang kasih default).
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
