package outbox

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/segmentio/kafka-go"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeStore struct {
	pending []orders.OutboxEvent
	sent    []int64
	failed  map[int64]string
	lockErr error
}

func (f *fakeStore) LockBatch(_ context.Context, _ string, n int, _ time.Duration) ([]orders.OutboxEvent, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	if n > len(f.pending) {
		n = len(f.pending)
	}
	out := f.pending[:n]
	f.pending = f.pending[n:]
	return out, nil
}

func (f *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	f.sent = append(f.sent, ids...)
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id int64, msg string, _ int) error {
	if f.failed == nil {
		f.failed = map[int64]string{}
	}
	f.failed[id] = msg
	return nil
}

type fakeProducer struct {
	msgs   []kafka.Message
	failOn string
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if string(m.Key) == p.failOn {
			return errors.New("broker unavailable")
		}
		p.msgs = append(p.msgs, m)
	}
	return nil
}

type countObs struct{ ok, bad int }

func (c *countObs) ObservePublish(_ string, err error) {
	if err != nil {
		c.bad++
		return
	}
	c.ok++
}

func event(id int64, orderID string) orders.OutboxEvent {
	return orders.OutboxEvent{
		ID: id, EventID: "ev-" + orderID, Topic: orders.TopicOrderCreated,
		AggregateID: orderID, EventType: orders.EventOrderCreated, Payload: []byte(`{}`),
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRelayTick(t *testing.T) {
	t.Run("publish batch -> mark sent", func(t *testing.T) {
		st := &fakeStore{pending: []orders.OutboxEvent{event(1, "o1"), event(2, "o2")}}
		pr := &fakeProducer{}
		obs := &countObs{}
		r := NewRelay(st, pr, obs, quiet(), Options{BatchSize: 10})

		n, err := r.Tick(context.Background())
		if err != nil || n != 2 {
			t.Fatalf("tick = %d, %v", n, err)
		}
		if len(st.sent) != 2 || len(pr.msgs) != 2 || obs.ok != 2 {
			t.Fatalf("sent=%v msgs=%d obs=%+v", st.sent, len(pr.msgs), obs)
		}
		if string(pr.msgs[0].Key) != "o1" || pr.msgs[0].Topic != orders.TopicOrderCreated {
			t.Fatalf("bad message %+v", pr.msgs[0])
		}
	})

	t.Run("publish error -> mark failed, others still sent", func(t *testing.T) {
		st := &fakeStore{pending: []orders.OutboxEvent{event(1, "o1"), event(2, "o2"), event(3, "o3")}}
		pr := &fakeProducer{failOn: "o2"}
		obs := &countObs{}
		r := NewRelay(st, pr, obs, quiet(), Options{})

		if _, err := r.Tick(context.Background()); err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(st.sent) != 2 || st.sent[0] != 1 || st.sent[1] != 3 {
			t.Fatalf("sent = %v", st.sent)
		}
		if _, ok := st.failed[2]; !ok || obs.bad != 1 {
			t.Fatalf("failed = %v obs=%+v", st.failed, obs)
		}
	})

	t.Run("lock error -> returned", func(t *testing.T) {
		st := &fakeStore{lockErr: errors.New("db down")}
		r := NewRelay(st, &fakeProducer{}, nil, quiet(), Options{})
		if _, err := r.Tick(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestRelayRunDrainsFullBatches(t *testing.T) {
	st := &fakeStore{}
	for i := int64(1); i <= 5; i++ {
		st.pending = append(st.pending, event(i, "o"))
	}
	pr := &fakeProducer{}
	r := NewRelay(st, pr, nil, quiet(), Options{BatchSize: 2, Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.sent) != 5 {
		t.Fatalf("sent = %v", st.sent)
	}
}
