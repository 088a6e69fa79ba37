package kafka

import (
	"context"
	"errors"
	"github.com/segmentio/kafka-go"
	"log/slog"
	"sync"
	"time"
)

// Handler: error -> di-retry, setelah attempts habis pesan di-drop.
type Handler func(ctx context.Context, m kafka.Message) error

// Reader is satisfied by *kafka.Reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r        Reader
	workers  int
	attempts int
	backoff  time.Duration
	log      *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return NewConsumerFromReader(r, workers, log)
}

func NewConsumerFromReader(r Reader, workers int, log *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{r: r, workers: workers, attempts: 3, backoff: 200 * time.Millisecond, log: log}
}

// Start blocks until ctx is cancelled or the reader fails. Pesan yang handler-nya
// tetap gagal setelah c.attempts percobaan di-drop: offset-nya tetap di-commit
// (commit offset berikutnya di partisi yang sama juga akan melewatinya).
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, c.workers*4)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for m := range jobs {
				c.process(ctx, id, h, m)
			}
		}(i)
	}
	defer wg.Wait()
	defer close(jobs)

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			// kecilkan noise saat shutdown
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, worker int, h Handler, m kafka.Message) {
	var err error
	for i := 1; i <= c.attempts; i++ {
		if err = h(ctx, m); err == nil {
			break
		}
		c.log.Warn("handler failed", "worker", worker, "topic", m.Topic, "offset", m.Offset, "attempt", i, "err", err)
		if i == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff * time.Duration(i)):
		}
	}
	if err != nil {
		c.log.Error("message dropped", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset,
			"attempts", c.attempts, "err", err)
	}
	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.Error("commit failed", "offset", m.Offset, "err", err)
	}
}
