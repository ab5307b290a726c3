package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated  = "OrderCreated"
	EventStatusChanged = "OrderStatusChanged"
)

// Envelope wraps every order event on the wire.
type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "walkup-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID     string     `json:"order_id"`
	OwnerRef    string     `json:"owner_ref,omitempty"`
	DisplayName string     `json:"display_name"`
	Items       []LineItem `json:"items"`
	TotalCents  int        `json:"total_cents"`
	CreationKey int64      `json:"creation_key"`
}

type StatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}
