package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/config"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/httpx"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/redisx"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/shutdown"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"net/http"
	"os"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(logging.Options{Service: cfg.ServiceName, Env: cfg.Env, Level: cfg.LogLevel})
	if err := cfg.Validate(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 && cfg.Env == "dev" {
		log.Warn("JWT_SECRET empty, using dev secret")
		secret = []byte("dev-secret")
	}

	decimal.MarshalJSONWithoutQuotes = true
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolConfig{MaxConns: int32(cfg.PGMaxConns)})
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	store := redisx.NewStore(rdb, cfg.ServiceName)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.ServiceName, reg)

	// Services
	products := &postgres.ProductRepo{DB: db}
	engine := checkout.NewEngine(&postgres.CheckoutStore{DB: db},
		checkout.WithLogger(log),
		checkout.WithRecorder(m),
		checkout.WithServiceName(cfg.ServiceName),
		checkout.WithMaxAttempts(cfg.CheckoutMaxAttempts),
	)
	orderSvc := orders.NewService(&postgres.OrderRepo{DB: db}, log, cfg.ServiceName)
	cartSvc := cart.NewService(&postgres.CartRepo{DB: db}, products, log)
	catalogSvc := catalog.NewService(products)

	router := httpx.NewRouter(httpx.RouterDeps{
		Log:       log,
		JWTSecret: secret,
		Metrics:   m,
		Gatherer:  reg,
		Orders: &httpx.OrdersHandler{
			Checkout: engine,
			Orders:   orderSvc,
			Idem:     store,
			Cache:    store,
			Log:      log,
		},
		Cart:          &httpx.CartHandler{Cart: cartSvc, Log: log},
		Products:      &httpx.ProductsHandler{Catalog: catalogSvc, Log: log},
		Notifications: &httpx.NotificationsHandler{Store: store, Log: log},
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown", "err", err)
	}
}
