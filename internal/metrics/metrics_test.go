package metrics

import (
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserve(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.ObserveCheckout("ok", 20*time.Millisecond)
	m.ObserveCheckout("ok", 30*time.Millisecond)
	m.ObserveCheckout("insufficient_stock", time.Millisecond)
	if got := testutil.ToFloat64(m.Checkouts.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok checkouts = %v", got)
	}

	m.ObservePublish("order.created", nil)
	m.ObservePublish("order.created", errors.New("broker down"))
	if got := testutil.ToFloat64(m.Published.WithLabelValues("order.created", "error")); got != 1 {
		t.Fatalf("publish errors = %v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/metrics", Handler(reg).ServeHTTP)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("/orders/{id}", "GET", "404")); got != 3 {
		t.Fatalf("requests = %v", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "marketplace_test_http_requests_total") {
		t.Fatalf("metrics output missing counter")
	}
}

func TestNewSanitizesServiceName(t *testing.T) {
	m := New("marketplace-api", prometheus.NewRegistry())
	m.ObserveNotification("notified")
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("notified")); got != 1 {
		t.Fatalf("notifications = %v", got)
	}
}
