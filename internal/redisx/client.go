package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/redis/go-redis/v9"
	"time"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Store mengumpulkan semua pemakaian Redis di service ini.
type Store struct {
	rdb     *redis.Client
	service string
}

func NewStore(rdb *redis.Client, service string) *Store {
	return &Store{rdb: rdb, service: service}
}

func idemKey(buyerID, key string) string { return fmt.Sprintf(KeyIdemOrderCreate, buyerID, key) }

// Reserve claims an Idempotency-Key for a buyer. When the key was already
// completed the stored order id is returned; inFlight means another request
// with the same key is still running.
func (s *Store) Reserve(ctx context.Context, buyerID, key string) (orderID string, inFlight bool, err error) {
	k := idemKey(buyerID, key)
	ok, err := s.rdb.SetNX(ctx, k, pendingMarker, TTLIdemInFlight).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", false, nil
	}
	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// keburu expire di antara SetNX dan Get
		return s.Reserve(ctx, buyerID, key)
	}
	if err != nil {
		return "", false, err
	}
	if v == pendingMarker {
		return "", true, nil
	}
	return v, false, nil
}

func (s *Store) Complete(ctx context.Context, buyerID, key, orderID string) error {
	return s.rdb.Set(ctx, idemKey(buyerID, key), orderID, TTLIdempotency).Err()
}

func (s *Store) Release(ctx context.Context, buyerID, key string) error {
	return s.rdb.Del(ctx, idemKey(buyerID, key)).Err()
}

func (s *Store) CachedOrder(ctx context.Context, orderID string) (orders.Detail, bool) {
	b, err := s.rdb.Get(ctx, fmt.Sprintf(KeyOrderDetail, orderID)).Bytes()
	if err != nil {
		return orders.Detail{}, false
	}
	var d orders.Detail
	if err := json.Unmarshal(b, &d); err != nil {
		return orders.Detail{}, false
	}
	return d, true
}

func (s *Store) CacheOrder(ctx context.Context, d orders.Detail) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, fmt.Sprintf(KeyOrderDetail, d.ID), b, TTLOrderCache).Err()
}

func (s *Store) InvalidateOrder(ctx context.Context, orderID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyOrderDetail, orderID)).Err()
}

// MarkProcessed returns false when the event was seen before.
func (s *Store) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, s.service, eventID), "1", TTLDedup).Result()
}

func (s *Store) Forget(ctx context.Context, eventID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyDedup, s.service, eventID)).Err()
}

func (s *Store) IncrUnread(ctx context.Context, sellerIDs ...string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range sellerIDs {
			p.Incr(ctx, fmt.Sprintf(KeySellerUnread, id))
		}
		return nil
	})
	return err
}

func (s *Store) Unread(ctx context.Context, sellerID string) (int64, error) {
	n, err := s.rdb.Get(ctx, fmt.Sprintf(KeySellerUnread, sellerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *Store) ClearUnread(ctx context.Context, sellerID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeySellerUnread, sellerID)).Err()
}
