//go:build integration

package redisx

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"testing"
	"time"
)

func startRedis(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	addr, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	rdb := New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, "test")
}

func TestStoreAgainstRedis(t *testing.T) {
	s := startRedis(t)
	ctx := context.Background()

	t.Run("idempotency reserve -> in flight -> completed", func(t *testing.T) {
		id, inFlight, err := s.Reserve(ctx, "b1", "k1")
		if err != nil || id != "" || inFlight {
			t.Fatalf("first reserve = %q %v %v", id, inFlight, err)
		}
		if _, inFlight, _ := s.Reserve(ctx, "b1", "k1"); !inFlight {
			t.Fatalf("second reserve should be in flight")
		}
		if err := s.Complete(ctx, "b1", "k1", "o-1"); err != nil {
			t.Fatal(err)
		}
		if id, _, _ := s.Reserve(ctx, "b1", "k1"); id != "o-1" {
			t.Fatalf("replay id = %q", id)
		}
		// key per buyer
		if id, inFlight, _ := s.Reserve(ctx, "b2", "k1"); id != "" || inFlight {
			t.Fatalf("other buyer shares key")
		}
	})

	t.Run("release frees the key", func(t *testing.T) {
		_, _, _ = s.Reserve(ctx, "b1", "k2")
		if err := s.Release(ctx, "b1", "k2"); err != nil {
			t.Fatal(err)
		}
		if _, inFlight, _ := s.Reserve(ctx, "b1", "k2"); inFlight {
			t.Fatalf("released key still held")
		}
	})

	t.Run("order cache roundtrip + invalidate", func(t *testing.T) {
		d := orders.Detail{Order: orders.Order{ID: "o-9", BuyerID: "b1", Status: orders.StatusPending}}
		if err := s.CacheOrder(ctx, d); err != nil {
			t.Fatal(err)
		}
		got, ok := s.CachedOrder(ctx, "o-9")
		if !ok || got.BuyerID != "b1" {
			t.Fatalf("cached = %+v %v", got, ok)
		}
		_ = s.InvalidateOrder(ctx, "o-9")
		if _, ok := s.CachedOrder(ctx, "o-9"); ok {
			t.Fatalf("still cached")
		}
	})

	t.Run("dedup + unread counters", func(t *testing.T) {
		first, _ := s.MarkProcessed(ctx, "ev-1")
		second, _ := s.MarkProcessed(ctx, "ev-1")
		if !first || second {
			t.Fatalf("dedup = %v %v", first, second)
		}
		if err := s.IncrUnread(ctx, "s1", "s2", "s1"); err != nil {
			t.Fatal(err)
		}
		if n, _ := s.Unread(ctx, "s1"); n != 2 {
			t.Fatalf("s1 unread = %d", n)
		}
		_ = s.ClearUnread(ctx, "s1")
		if n, _ := s.Unread(ctx, "s1"); n != 0 {
			t.Fatalf("after clear = %d", n)
		}
	})
}
