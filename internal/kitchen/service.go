package kitchen

import (
	"context"
	"encoding/json"
	"log"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/quickserve/walkup-orders/internal/kafka"
	"github.com/quickserve/walkup-orders/internal/orders"
)

// TicketRepo keeps printable kitchen tickets. Writes are idempotent so a
// redelivered event is harmless.
type TicketRepo interface {
	Open(ctx context.Context, t Ticket) error
	Close(ctx context.Context, orderID string) error
}

// Dedup short-circuits events this service already processed.
type Dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Service consumes the order-event stream and keeps one ticket per order:
// opened when the order is placed, closed once prep is done (READY).
type Service struct {
	Repo  TicketRepo
	Dedup Dedup
}

// HandleOrderEvent is installed as the Kafka consumer handler.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		log.Printf("kitchen: dedup check %s: %v", env.EventID, err)
	}
	if seen {
		return nil
	}

	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		if err := s.Repo.Open(ctx, Ticket{
			OrderID:     p.OrderID,
			DisplayName: p.DisplayName,
			Items:       p.Items,
		}); err != nil {
			return err
		}
	case orders.EventStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		// READY means the kitchen is done with this ticket.
		if p.To == orders.StatusReady {
			if err := s.Repo.Close(ctx, p.OrderID); err != nil {
				return err
			}
		}
	default:
		return nil
	}

	if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
		log.Printf("kitchen: dedup mark %s: %v", env.EventID, err)
	}
	return nil
}
