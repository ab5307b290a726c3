package broadcast

import "time"

// Message kinds. Clients switch on "kind" and re-derive their whole view
// from the latest message; there is no delta state to reconcile.
const (
	KindQueue    = "queue"
	KindPosition = "position"
	KindReady    = "ready"
)

// QueueEntry is one row of the live board, rank order ascending.
type QueueEntry struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	DisplayName string `json:"display_name"`
	Position    int    `json:"position"`
}

// QueueSnapshot goes to the global and kitchen channels.
type QueueSnapshot struct {
	Kind    string       `json:"kind"`
	Entries []QueueEntry `json:"entries"`
	At      time.Time    `json:"at"`
}

// PositionUpdate goes to a single order's channel. Position is null once
// the order has left the queue.
type PositionUpdate struct {
	Kind     string `json:"kind"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Position *int   `json:"position"`
}

// ReadyNotice is the one-shot pickup alert, sent the instant an order
// reaches READY, independent of the regular snapshot.
type ReadyNotice struct {
	Kind        string `json:"kind"`
	OrderID     string `json:"order_id"`
	DisplayName string `json:"display_name"`
}
