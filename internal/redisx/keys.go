package redisx

import (
	"fmt"
	"time"
)

// Pub/sub channel keys. Every observer of the walk-up queue subscribes to
// one or more of these.
const (
	ChannelGlobal  = "global"
	ChannelKitchen = "kitchen"

	channelOrder = "order:%s"
)

// OrderChannel is the dedicated channel of a single order's subscribers.
func OrderChannel(orderID string) string {
	return fmt.Sprintf(channelOrder, orderID)
}

const (
	// Cache of last known order status: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"

	// Dedup of consumed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
