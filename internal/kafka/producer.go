package kafka

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/segmentio/kafka-go"
	"sort"
	"time"
)

// Writer is the part of *kafka.Writer the relay needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter bikin writer tanpa Topic tetap: topic diambil per message (dari outbox).
// Sync + RequireAll, supaya baris outbox baru ditandai sent setelah broker ack.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// Message maps an outbox row to a kafka message keyed by the order id.
func Message(ev orders.OutboxEvent) kafka.Message {
	return kafka.Message{
		Topic:   ev.Topic,
		Key:     orders.PartitionKey(ev.AggregateID),
		Value:   ev.Payload,
		Headers: Headers(ev.Headers),
		Time:    ev.CreatedAt,
	}
}

func Headers(h map[string]string) []kafka.Header {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafka.Header{Key: k, Value: []byte(h[k])})
	}
	return out
}

func HeaderValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
