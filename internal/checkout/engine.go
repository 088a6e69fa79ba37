package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"log/slog"
	"time"
)

const defaultMaxAttempts = 3

// Recorder menerima hasil tiap checkout (lihat internal/metrics).
type Recorder interface {
	ObserveCheckout(outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCheckout(string, time.Duration) {}

type Engine struct {
	store       Store
	newID       func() string
	now         func() time.Time
	log         *slog.Logger
	rec         Recorder
	tracer      trace.Tracer
	maxAttempts int
	backoff     time.Duration
	service     string
}

type Option func(*Engine)

func WithIDGenerator(f func() string) Option  { return func(e *Engine) { e.newID = f } }
func WithClock(f func() time.Time) Option     { return func(e *Engine) { e.now = f } }
func WithLogger(l *slog.Logger) Option        { return func(e *Engine) { e.log = l } }
func WithRecorder(r Recorder) Option          { return func(e *Engine) { e.rec = r } }
func WithTracer(t trace.Tracer) Option        { return func(e *Engine) { e.tracer = t } }
func WithServiceName(name string) Option      { return func(e *Engine) { e.service = name } }
func WithRetryBackoff(d time.Duration) Option { return func(e *Engine) { e.backoff = d } }

func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		newID:       uuid.NewString,
		now:         func() time.Time { return time.Now().UTC() },
		log:         slog.Default(),
		rec:         nopRecorder{},
		tracer:      otel.Tracer("checkout"),
		maxAttempts: defaultMaxAttempts,
		backoff:     25 * time.Millisecond,
		service:     "marketplace-api",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CreateOrderFromCart converts the buyer's cart into a pending order.
// Either everything commits (stock, order, items, cart, outbox) or nothing does.
// Transient store failures re-run the whole unit from the cart read.
func (e *Engine) CreateOrderFromCart(ctx context.Context, buyerID string, in CheckoutData) (orders.Order, error) {
	ctx, span := e.tracer.Start(ctx, "checkout.CreateOrderFromCart",
		trace.WithAttributes(attribute.String("buyer_id", buyerID)))
	defer span.End()

	start := time.Now()
	order, attempts, err := e.run(ctx, buyerID, in)
	outcome := Outcome(err)
	e.rec.ObserveCheckout(outcome, time.Since(start))
	span.SetAttributes(attribute.Int("checkout.attempts", attempts), attribute.String("checkout.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		lvl := slog.LevelInfo
		if outcome == "transient" || outcome == "error" {
			lvl = slog.LevelError
		}
		e.log.Log(ctx, lvl, "checkout rejected", "buyer_id", buyerID, "outcome", outcome, "attempts", attempts, "err", err)
		return orders.Order{}, err
	}

	e.log.Info("order created",
		"order_id", order.ID,
		"buyer_id", buyerID,
		"seller_ids", order.SellerIDs,
		"total_amount", order.TotalAmount.String(),
		"attempts", attempts,
	)
	return order, nil
}

func (e *Engine) run(ctx context.Context, buyerID string, in CheckoutData) (orders.Order, int, error) {
	if err := ValidateInput(in); err != nil {
		return orders.Order{}, 0, err
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		order, err := e.attempt(ctx, buyerID, in)
		if err == nil {
			return order, attempt, nil
		}
		if !IsTransient(err) {
			return orders.Order{}, attempt, err
		}
		lastErr = err
		e.log.Warn("checkout conflict, retrying", "buyer_id", buyerID, "attempt", attempt, "err", err)

		if attempt == e.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return orders.Order{}, attempt, &TransientStoreError{Op: "checkout", Err: ctx.Err()}
		case <-time.After(e.backoff * time.Duration(attempt)):
		}
	}

	var tse *TransientStoreError
	if errors.As(lastErr, &tse) {
		return orders.Order{}, e.maxAttempts, tse
	}
	return orders.Order{}, e.maxAttempts, &TransientStoreError{Op: "checkout", Err: lastErr}
}

// attempt is one read -> validate -> write pass inside a single transaction.
func (e *Engine) attempt(ctx context.Context, buyerID string, in CheckoutData) (orders.Order, error) {
	var created orders.Order
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		rs, err := Read(ctx, tx, buyerID)
		if err != nil {
			return err
		}
		totals, err := Validate(rs, in)
		if err != nil {
			return err
		}

		ws := Plan(rs, in, totals, e.newID, e.now())
		ev, err := e.orderCreatedEvent(ctx, rs, ws)
		if err != nil {
			return err
		}
		ws.Event = &ev

		if err := Apply(ctx, tx, ws); err != nil {
			return err
		}
		created = ws.Order
		return nil
	})
	if err != nil {
		return orders.Order{}, err
	}
	return created, nil
}

func (e *Engine) orderCreatedEvent(ctx context.Context, rs ReadSet, ws WriteSet) (orders.OutboxEvent, error) {
	items := make([]orders.ItemPrice, 0, len(ws.Items))
	for _, it := range ws.Items {
		items = append(items, orders.ItemPrice{
			ProductID:    it.ProductID,
			SellerID:     rs.Products[it.ProductID].SellerID,
			Quantity:     it.Quantity,
			PricePerItem: it.PricePerItem,
		})
	}
	payload, err := json.Marshal(orders.OrderCreatedPayload{
		OrderID:     ws.Order.ID,
		BuyerID:     ws.Order.BuyerID,
		SellerIDs:   ws.Order.SellerIDs,
		Items:       items,
		TotalAmount: ws.Order.TotalAmount,
	})
	if err != nil {
		return orders.OutboxEvent{}, fmt.Errorf("encode order created payload: %w", err)
	}

	env := orders.Envelope{
		EventID:       e.newID(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    ws.Order.CreatedAt,
		Producer:      e.service,
		CorrelationID: ws.Order.ID,
		Payload:       payload,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	body, err := json.Marshal(env)
	if err != nil {
		return orders.OutboxEvent{}, fmt.Errorf("encode envelope: %w", err)
	}

	headers := map[string]string{
		"x-event-type":    orders.EventOrderCreated,
		"x-event-version": "1",
	}
	// traceparent ikut disimpan, relay meneruskannya sebagai kafka header
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	return orders.OutboxEvent{
		EventID:     env.EventID,
		Topic:       orders.TopicOrderCreated,
		AggregateID: ws.Order.ID,
		EventType:   orders.EventOrderCreated,
		Payload:     body,
		Headers:     headers,
		CreatedAt:   ws.Order.CreatedAt,
	}, nil
}
