package outbox

import (
	"context"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/segmentio/kafka-go"
	"log/slog"
	"time"
)

// Store: diimplementasi postgres.OutboxStore.
type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]orders.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) error
}

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Observer interface {
	ObservePublish(topic string, err error)
}

type Options struct {
	RelayID     string
	BatchSize   int
	Interval    time.Duration
	Lease       time.Duration
	MaxAttempts int
}

func (o *Options) defaults() {
	if o.RelayID == "" {
		o.RelayID = "relay-1"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Lease <= 0 {
		o.Lease = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
}

// Relay moves committed outbox rows to Kafka. Delivery is at-least-once;
// consumers dedup on the envelope event_id.
type Relay struct {
	store    Store
	producer Producer
	obs      Observer
	log      *slog.Logger
	opt      Options
}

func NewRelay(store Store, producer Producer, obs Observer, log *slog.Logger, opt Options) *Relay {
	opt.defaults()
	if log == nil {
		log = slog.Default()
	}
	return &Relay{store: store, producer: producer, obs: obs, log: log, opt: opt}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.opt.Interval)
	defer t.Stop()

	r.log.Info("relay started", "relay_id", r.opt.RelayID, "batch", r.opt.BatchSize)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.opt.RelayID)
			return nil
		case <-t.C:
			// kalau batch penuh, langsung ambil batch berikutnya
			for {
				n, err := r.Tick(ctx)
				if err != nil {
					r.log.Error("relay tick", "err", err)
					break
				}
				if n < r.opt.BatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// Tick publishes one locked batch and returns how many rows it picked up.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	events, err := r.store.LockBatch(ctx, r.opt.RelayID, r.opt.BatchSize, r.opt.Lease)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	sent := make([]int64, 0, len(events))
	for _, ev := range events {
		err := r.producer.WriteMessages(ctx, kafkax.Message(ev))
		if r.obs != nil {
			r.obs.ObservePublish(ev.Topic, err)
		}
		if err != nil {
			r.log.Warn("outbox publish failed", "event_id", ev.EventID, "topic", ev.Topic, "attempts", ev.Attempts+1, "err", err)
			if mErr := r.store.MarkFailed(ctx, ev.ID, err.Error(), r.opt.MaxAttempts); mErr != nil {
				r.log.Error("mark failed", "id", ev.ID, "err", mErr)
			}
			continue
		}
		sent = append(sent, ev.ID)
	}
	if len(sent) > 0 {
		if err := r.store.MarkSent(ctx, sent); err != nil {
			// lease habis -> baris dikirim ulang, consumer dedup
			return len(events), err
		}
		r.log.Debug("outbox published", "count", len(sent))
	}
	return len(events), nil
}
