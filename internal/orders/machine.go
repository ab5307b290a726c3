package orders

import (
	"context"
	"errors"
)

// Notifier receives queue-affecting events. Implemented by the broadcaster;
// delivery is best-effort and must never fail the triggering mutation.
type Notifier interface {
	// QueueChanged re-broadcasts the active queue. departed lists orders
	// that just left the active set, so their own channel still gets one
	// final no-position update.
	QueueChanged(ctx context.Context, departed ...Order)
	// OrderReady is the one-shot pickup alert on the order's own channel.
	OrderReady(ctx context.Context, o Order)
}

// Machine authorizes and applies status transitions. It owns the
// notification rule: any active-set change re-broadcasts the queue, and
// reaching READY additionally alerts the order's own channel.
type Machine struct {
	Repo   Repository
	Notify Notifier
}

// A lost CAS means another request moved the status between our read and
// our write; re-read and re-check a few times before giving up.
const casAttempts = 3

// Transition moves the order to the requested status, or fails with
// InvalidTransitionError naming the current status and its legal next set.
// The returned from status is the one the swap actually applied against,
// which under concurrency may differ from what any earlier read saw.
func (m *Machine) Transition(ctx context.Context, id string, to Status) (Order, Status, error) {
	var cur Order
	for attempt := 0; attempt < casAttempts; attempt++ {
		var err error
		cur, err = m.Repo.Get(ctx, id)
		if err != nil {
			return Order{}, "", err
		}
		if !CanTransition(cur.Status, to) {
			return Order{}, "", &InvalidTransitionError{Current: cur.Status, Allowed: NextStatuses(cur.Status)}
		}

		updated, err := m.Repo.UpdateStatus(ctx, id, cur.Status, to)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return Order{}, "", err
		}

		m.afterTransition(ctx, cur.Status, updated)
		return updated, cur.Status, nil
	}

	// Retries exhausted: report against whatever status won the race.
	cur, err := m.Repo.Get(ctx, id)
	if err != nil {
		return Order{}, "", err
	}
	return Order{}, "", &InvalidTransitionError{Current: cur.Status, Allowed: NextStatuses(cur.Status)}
}

func (m *Machine) afterTransition(ctx context.Context, from Status, updated Order) {
	if m.Notify == nil {
		return
	}
	if updated.Status == StatusReady {
		m.Notify.OrderReady(ctx, updated)
	}
	wasActive := from == StatusPending || from == StatusPreparing
	if !wasActive {
		// READY -> COMPLETED does not touch the queue.
		return
	}
	if updated.Active() {
		m.Notify.QueueChanged(ctx)
	} else {
		m.Notify.QueueChanged(ctx, updated)
	}
}
