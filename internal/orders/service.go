package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/quickserve/walkup-orders/internal/cart"
	"github.com/quickserve/walkup-orders/internal/catalog"
	"github.com/quickserve/walkup-orders/internal/metrics"
)

// Catalog is consulted only at order creation to build the immutable
// line-item snapshot.
type Catalog interface {
	Lookup(ctx context.Context, ref string) (catalog.Item, error)
}

type CartStore interface {
	Drain(ctx context.Context, ownerRef string) ([]cart.Line, error)
	Clear(ctx context.Context, ownerRef string) error
}

// EventSink is the async order-event stream (Kafka). Fire-and-forget.
type EventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type LineInput struct {
	CatalogRef string `json:"catalog_ref"`
	Qty        int    `json:"qty"`
}

type PlaceRequest struct {
	OwnerRef    string      `json:"owner_ref"`
	DisplayName string      `json:"display_name"`
	Lines       []LineInput `json:"items"`
	TraceID     string      `json:"-"`
}

// Service wires the placement flows and queue queries together. The
// sequencer, machine and broadcaster are constructed once per process and
// injected here; nothing hangs off package globals.
type Service struct {
	Repo     Repository
	Catalog  Catalog
	Cart     CartStore
	Seq      *Sequencer
	Machine  *Machine
	Notify   Notifier
	Events   EventSink
	Producer string // event producer name, e.g. "walkup-api"
	Metrics  *metrics.Metrics
}

// Place creates an order from a direct item list. The returned position is
// the order's 1-based rank in the active queue.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (Order, int, error) {
	if len(req.Lines) == 0 {
		return Order{}, 0, ErrEmptyOrder
	}

	items := make([]LineItem, 0, len(req.Lines))
	total := 0
	for _, line := range req.Lines {
		if line.Qty <= 0 {
			return Order{}, 0, fmt.Errorf("item %s: %w", line.CatalogRef, ErrInvalidQuantity)
		}
		it, err := s.Catalog.Lookup(ctx, line.CatalogRef)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Order{}, 0, fmt.Errorf("menu item %s: %w", line.CatalogRef, ErrNotFound)
			}
			return Order{}, 0, err
		}
		if !it.Available {
			// whole order is rejected, no partial orders
			return Order{}, 0, &UnavailableItemError{CatalogRef: line.CatalogRef}
		}
		items = append(items, LineItem{
			CatalogRef: it.Ref,
			Name:       it.Name,
			Qty:        line.Qty,
			UnitCents:  it.UnitCents,
		})
		total += line.Qty * it.UnitCents
	}

	o := Order{
		ID:          uuid.NewString(),
		OwnerRef:    req.OwnerRef,
		DisplayName: req.DisplayName,
		Items:       items,
		TotalCents:  total,
		Status:      StatusPending,
		CreationKey: s.Seq.Next(),
	}
	o, err := s.Repo.Insert(ctx, o)
	if err != nil {
		return Order{}, 0, err
	}
	if s.Metrics != nil {
		s.Metrics.OrdersCreated.Inc()
	}

	if s.Notify != nil {
		s.Notify.QueueChanged(ctx)
	}
	s.publishEvent(EventOrderCreated, o.ID, req.TraceID, OrderCreatedPayload{
		OrderID:     o.ID,
		OwnerRef:    o.OwnerRef,
		DisplayName: o.DisplayName,
		Items:       o.Items,
		TotalCents:  o.TotalCents,
		CreationKey: o.CreationKey,
	})

	pos, err := s.position(ctx, o)
	if err != nil {
		// order is in; a failed position read should not undo that
		log.Printf("orders: position after place %s: %v", o.ID, err)
		pos = 0
	}
	return o, pos, nil
}

// PlaceFromCart drains the owner's accumulated cart into a new order and
// clears the cart once the order is in.
func (s *Service) PlaceFromCart(ctx context.Context, ownerRef, displayName, traceID string) (Order, int, error) {
	lines, err := s.Cart.Drain(ctx, ownerRef)
	if err != nil {
		return Order{}, 0, err
	}
	if len(lines) == 0 {
		return Order{}, 0, ErrEmptyOrder
	}

	req := PlaceRequest{OwnerRef: ownerRef, DisplayName: displayName, TraceID: traceID}
	for _, l := range lines {
		req.Lines = append(req.Lines, LineInput{CatalogRef: l.CatalogRef, Qty: l.Qty})
	}
	o, pos, err := s.Place(ctx, req)
	if err != nil {
		return Order{}, 0, err
	}
	if err := s.Cart.Clear(ctx, ownerRef); err != nil {
		log.Printf("orders: clear cart for %s after order %s: %v", ownerRef, o.ID, err)
	}
	return o, pos, nil
}

// Transition delegates to the state machine and, on success, emits the
// status-changed event to the async stream. The event's from status is the
// one the machine's swap applied against, not a separate read that could
// go stale under a concurrent transition.
func (s *Service) Transition(ctx context.Context, id string, to Status, traceID string) (Order, error) {
	updated, from, err := s.Machine.Transition(ctx, id, to)
	if err != nil {
		return Order{}, err
	}
	if s.Metrics != nil {
		s.Metrics.Transitions.WithLabelValues(string(updated.Status)).Inc()
	}
	s.publishEvent(EventStatusChanged, updated.ID, traceID, StatusChangedPayload{
		OrderID: updated.ID,
		From:    from,
		To:      updated.Status,
	})
	return updated, nil
}

// Status is the point read behind the status endpoint: no items, no
// position, just the current status.
func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	o, err := s.Repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return o.Status, nil
}

// Get returns the order with its live queue position, nil when inactive.
func (s *Service) Get(ctx context.Context, id string) (QueuedOrder, error) {
	o, err := s.Repo.Get(ctx, id)
	if err != nil {
		return QueuedOrder{}, err
	}
	return s.annotate(ctx, o)
}

// ActiveQueue is the staff view: active orders ascending by creation key,
// ranks 1..n.
func (s *Service) ActiveQueue(ctx context.Context) ([]QueuedOrder, error) {
	active, err := s.Repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	sorted := SortByCreationKey(active)
	out := make([]QueuedOrder, len(sorted))
	for i, o := range sorted {
		pos := i + 1
		out[i] = QueuedOrder{Order: o, Position: &pos}
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, f HistoryFilter) ([]Order, error) {
	return s.Repo.ListHistory(ctx, f)
}

// OwnerOrders lists one owner's orders, active ones annotated with their
// live position.
func (s *Service) OwnerOrders(ctx context.Context, ownerRef string, status *Status) ([]QueuedOrder, error) {
	list, err := s.Repo.ListByOwner(ctx, ownerRef, status)
	if err != nil {
		return nil, err
	}
	var active []Order
	out := make([]QueuedOrder, 0, len(list))
	for _, o := range list {
		q := QueuedOrder{Order: o}
		if o.Active() {
			if active == nil {
				active, err = s.Repo.ListActive(ctx)
				if err != nil {
					return nil, err
				}
			}
			if pos, ok := Rank(o, active); ok {
				q.Position = &pos
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Service) annotate(ctx context.Context, o Order) (QueuedOrder, error) {
	q := QueuedOrder{Order: o}
	if !o.Active() {
		return q, nil
	}
	pos, err := s.position(ctx, o)
	if err != nil {
		return QueuedOrder{}, err
	}
	if pos > 0 {
		q.Position = &pos
	}
	return q, nil
}

func (s *Service) position(ctx context.Context, o Order) (int, error) {
	active, err := s.Repo.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	pos, ok := Rank(o, active)
	if !ok {
		return 0, nil
	}
	return pos, nil
}

func (s *Service) publishEvent(eventType, orderID, traceID string, payload any) {
	if s.Events == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("orders: marshal %s payload: %v", eventType, err)
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		log.Printf("orders: marshal %s envelope: %v", eventType, err)
		return
	}
	s.Events.Publish(PartitionKey(orderID), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
