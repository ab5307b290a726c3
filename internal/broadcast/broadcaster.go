package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/quickserve/walkup-orders/internal/metrics"
	"github.com/quickserve/walkup-orders/internal/orders"
	"github.com/quickserve/walkup-orders/internal/redisx"
)

// Transport is the pub/sub collaborator the broadcaster publishes through.
// Implemented by redisx.PubSub in production.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ActiveLister is the snapshot source: one call, one consistent read.
type ActiveLister interface {
	ListActive(ctx context.Context) ([]orders.Order, error)
}

// Broadcaster fans the active queue out to three audiences: every connected
// observer (global), each order's own subscriber group, and the kitchen
// display. One instance per process, constructed in main and injected.
//
// Delivery is best-effort and idempotent. A failed publish is logged and
// dropped; the mutation that triggered it already succeeded and stays
// succeeded.
type Broadcaster struct {
	Repo      ActiveLister
	Transport Transport
	Metrics   *metrics.Metrics
}

var _ orders.Notifier = (*Broadcaster)(nil)

// QueueChanged reads the active set once and derives every channel payload
// from that single read, so a customer and the kitchen can never be shown
// positions from different instants within one cycle.
func (b *Broadcaster) QueueChanged(ctx context.Context, departed ...orders.Order) {
	active, err := b.Repo.ListActive(ctx)
	if err != nil {
		log.Printf("broadcast: read active set: %v", err)
		return
	}
	sorted := orders.SortByCreationKey(active)

	snap := QueueSnapshot{Kind: KindQueue, Entries: make([]QueueEntry, len(sorted)), At: time.Now().UTC()}
	for i, o := range sorted {
		snap.Entries[i] = QueueEntry{
			OrderID:     o.ID,
			Status:      string(o.Status),
			DisplayName: o.DisplayName,
			Position:    i + 1,
		}
	}
	b.publish(ctx, redisx.ChannelGlobal, snap)
	b.publish(ctx, redisx.ChannelKitchen, snap)

	for i, o := range sorted {
		pos := i + 1
		b.publish(ctx, redisx.OrderChannel(o.ID), PositionUpdate{
			Kind:     KindPosition,
			OrderID:  o.ID,
			Status:   string(o.Status),
			Position: &pos,
		})
	}
	// Orders that just left the queue get one final no-position update on
	// their own channel, then drop out of subsequent snapshots.
	for _, o := range departed {
		b.publish(ctx, redisx.OrderChannel(o.ID), PositionUpdate{
			Kind:    KindPosition,
			OrderID: o.ID,
			Status:  string(o.Status),
		})
	}
	if b.Metrics != nil {
		b.Metrics.Broadcasts.Inc()
	}
}

// OrderReady sends the pickup alert to the order's own channel only.
func (b *Broadcaster) OrderReady(ctx context.Context, o orders.Order) {
	b.publish(ctx, redisx.OrderChannel(o.ID), ReadyNotice{
		Kind:        KindReady,
		OrderID:     o.ID,
		DisplayName: o.DisplayName,
	})
}

func (b *Broadcaster) publish(ctx context.Context, channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("broadcast: marshal for %s: %v", channel, err)
		return
	}
	if err := b.Transport.Publish(ctx, channel, payload); err != nil {
		log.Printf("broadcast: publish %s: %v", channel, err)
		if b.Metrics != nil {
			b.Metrics.PublishFailures.Inc()
		}
	}
}
