package main

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/outbox"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/shutdown"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"net/http"
	"os"
	"time"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(logging.Options{Service: cfg.ServiceName + "-relay", Env: cfg.Env, Level: cfg.LogLevel})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolConfig{MaxConns: 4})
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	w := kafkax.NewWriter(cfg.KafkaBrokers)
	defer w.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(cfg.ServiceName+"_relay", reg)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: getenv("RELAY_METRICS_ADDR", ":9101"), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		if err := srv.ListenAndServe(); err != nil {
			log.Warn("metrics server", "err", err)
		}
	}()

	hostname, _ := os.Hostname()
	relay := outbox.NewRelay(&postgres.OutboxStore{DB: db}, w, m, log, outbox.Options{
		RelayID:   "relay-" + hostname,
		BatchSize: cfg.RelayBatchSize,
		Interval:  cfg.RelayInterval,
	})
	if err := relay.Run(ctx); err != nil {
		log.Error("relay exit", "err", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
