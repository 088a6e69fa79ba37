package main

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/redisx"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/shutdown"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"os"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(logging.Options{Service: cfg.ServiceName + "-notifier", Env: cfg.Env, Level: cfg.LogLevel})
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis ping", "err", err)
		os.Exit(1)
	}

	m := metrics.New(cfg.ServiceName+"_notifier", prometheus.DefaultRegisterer)
	svc := &notify.Service{
		Store: redisx.NewStore(rdb, "notifier"),
		Obs:   m,
		Log:   log,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderCreated, cfg.NotifierWorkers, log)
	log.Info("notifier consumer started", "group", cfg.NotifierGroup, "topic", orders.TopicOrderCreated, "workers", cfg.NotifierWorkers)
	if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
		log.Error("consumer exit", "err", err)
		os.Exit(1)
	}
	log.Info("notifier stopped")
}
