package notify

import (
	"context"
	"fmt"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"log/slog"
)

// Store: redisx.Store.
type Store interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
	IncrUnread(ctx context.Context, sellerIDs ...string) error
}

type Observer interface {
	ObserveNotification(result string)
}

// Service bumps the unread-order counter of every seller in a new order.
type Service struct {
	Store Store
	Obs   Observer
	Log   *slog.Logger
}

// HandleOrderCreated: dipasang sebagai handler consumer topic order.created.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(m.Headers))
	ctx, span := otel.Tracer("notifier").Start(ctx, "HandleOrderCreated")
	defer span.End()

	// 1) decode envelope; pesan rusak tidak akan pernah sukses, jadi di-skip
	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		log.Error("bad message", "offset", m.Offset, "err", err)
		s.observe("malformed")
		return nil
	}
	if env.EventType != orders.EventOrderCreated {
		s.observe("ignored")
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		log.Error("bad payload", "event_id", env.EventID, "err", err)
		s.observe("malformed")
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	first, err := s.Store.MarkProcessed(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		s.observe("duplicate")
		return nil
	}

	// 3) increment counter; kalau gagal lepas dedup supaya redelivery diproses
	if err := s.Store.IncrUnread(ctx, p.SellerIDs...); err != nil {
		if fErr := s.Store.Forget(ctx, env.EventID); fErr != nil {
			log.Error("forget dedup", "event_id", env.EventID, "err", fErr)
		}
		s.observe("error")
		return fmt.Errorf("incr unread: %w", err)
	}

	span.SetAttributes(attribute.String("order_id", p.OrderID), attribute.Int("sellers", len(p.SellerIDs)))
	log.Info("sellers notified", "order_id", p.OrderID, "sellers", len(p.SellerIDs), "trace_id", env.TraceID)
	s.observe("notified")
	return nil
}

func (s *Service) observe(result string) {
	if s.Obs != nil {
		s.Obs.ObserveNotification(result)
	}
}

func headerCarrier(hs []kafkago.Header) propagation.MapCarrier {
	c := propagation.MapCarrier{}
	for _, h := range hs {
		c[h.Key] = string(h.Value)
	}
	return c
}
