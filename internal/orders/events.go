package orders

import (
	"encoding/json"
	"github.com/shopspring/decimal"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "marketplace-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID    string          `json:"product_id"`
	SellerID     string          `json:"seller_id"`
	Quantity     int             `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
}

type OrderCreatedPayload struct {
	OrderID     string          `json:"order_id"`
	BuyerID     string          `json:"buyer_id"`
	SellerIDs   []string        `json:"seller_ids"`
	Items       []ItemPrice     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderStatusChangedPayload struct {
	OrderID   string   `json:"order_id"`
	From      Status   `json:"from"`
	To        Status   `json:"to"`
	ChangedBy string   `json:"changed_by"`
	SellerIDs []string `json:"seller_ids"`
}

// OutboxEvent: baris tabel outbox, ditulis di tx yang sama dengan perubahan datanya.
type OutboxEvent struct {
	ID          int64
	EventID     string
	Topic       string
	AggregateID string
	EventType   string
	Payload     []byte // Envelope yang sudah di-marshal
	Headers     map[string]string
	CreatedAt   time.Time
	Attempts    int
}
