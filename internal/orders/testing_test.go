package orders

import (
	"context"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/quickserve/walkup-orders/internal/cart"
	"github.com/quickserve/walkup-orders/internal/catalog"
)

// memRepo is an in-memory Repository for tests. conflicts makes the next n
// UpdateStatus calls lose the CAS; flipOnConflict additionally applies the
// requested status underneath, simulating a concurrent winner.
type memRepo struct {
	mu             sync.Mutex
	byID           map[string]Order
	conflicts      int
	flipOnConflict bool
	listActiveN    int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[string]Order)}
}

func (r *memRepo) Insert(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	r.byID[o.ID] = o
	return o, nil
}

func (r *memRepo) Get(_ context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *memRepo) ListActive(_ context.Context) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listActiveN++
	var out []Order
	for _, o := range r.byID {
		if o.Active() {
			out = append(out, o)
		}
	}
	return SortByCreationKey(out), nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerRef string, status *Status) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.byID {
		if o.OwnerRef != ownerRef {
			continue
		}
		if status != nil && o.Status != *status {
			continue
		}
		out = append(out, o)
	}
	return SortByCreationKey(out), nil
}

func (r *memRepo) ListHistory(_ context.Context, f HistoryFilter) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.byID {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, o)
	}
	return SortByCreationKey(out), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, expected, next Status) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		if r.flipOnConflict {
			o.Status = next
			r.byID[id] = o
		}
		return Order{}, ErrConflict
	}
	if o.Status != expected {
		return Order{}, ErrConflict
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	r.byID[id] = o
	return o, nil
}

type stubNotifier struct {
	mu       sync.Mutex
	queueN   int
	departed [][]Order
	ready    []Order
}

func (n *stubNotifier) QueueChanged(_ context.Context, departed ...Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queueN++
	n.departed = append(n.departed, departed)
}

func (n *stubNotifier) OrderReady(_ context.Context, o Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = append(n.ready, o)
}

type stubCatalog struct {
	items map[string]catalog.Item
}

func (c *stubCatalog) Lookup(_ context.Context, ref string) (catalog.Item, error) {
	it, ok := c.items[ref]
	if !ok {
		return catalog.Item{}, catalog.ErrNotFound
	}
	return it, nil
}

type stubCart struct {
	lines   []cart.Line
	cleared bool
}

func (c *stubCart) Drain(_ context.Context, _ string) ([]cart.Line, error) {
	return c.lines, nil
}

func (c *stubCart) Clear(_ context.Context, _ string) error {
	c.cleared = true
	return nil
}

type sinkMsg struct {
	key     []byte
	value   []byte
	headers []kafkago.Header
}

type stubSink struct {
	mu   sync.Mutex
	msgs []sinkMsg
}

func (s *stubSink) Publish(key, value []byte, headers ...kafkago.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sinkMsg{key: key, value: value, headers: headers})
}
