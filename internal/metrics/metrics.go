package metrics

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Metrics struct {
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	Checkouts       *prometheus.CounterVec
	CheckoutSeconds prometheus.Histogram
	Published       *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer in
// main and a fresh registry in tests.
func New(service string, reg prometheus.Registerer) *Metrics {
	// nama metric tidak boleh mengandung '-'
	service = strings.NewReplacer("-", "_", ".", "_").Replace(service)
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		CheckoutSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "checkout_duration_seconds",
			Help:      "Checkout duration including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "outbox_published_total",
			Help:      "Outbox events handed to Kafka, by topic and result.",
		}, []string{"topic", "result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: service,
			Name:      "seller_notifications_total",
			Help:      "Consumed order events, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.CheckoutSeconds, m.Published, m.Notifications)
	return m
}

func (m *Metrics) ObserveCheckout(outcome string, d time.Duration) {
	m.Checkouts.WithLabelValues(outcome).Inc()
	m.CheckoutSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObservePublish(topic string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Published.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) ObserveNotification(result string) {
	m.Notifications.WithLabelValues(result).Inc()
}

// Middleware labels by chi route pattern so ids don't blow up cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
