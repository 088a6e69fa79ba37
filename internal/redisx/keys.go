package redisx

import "time"

const (
	// Idempotency checkout: idem:order:create:{buyer_id}:{Idempotency-Key} -> order_id | "pending"
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cache detail order: order_detail:{order_id} -> JSON orders.Detail
	KeyOrderDetail = "order_detail:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Jumlah order baru yang belum dilihat seller: seller_unread:{seller_id}
	KeySellerUnread = "seller_unread:%s"
)

const pendingMarker = "pending"

var (
	TTLIdempotency  = 24 * time.Hour
	TTLIdemInFlight = 30 * time.Second
	TTLOrderCache   = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
