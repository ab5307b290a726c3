package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/quickserve/walkup-orders/internal/cart"
	"github.com/quickserve/walkup-orders/internal/catalog"
)

func newTestService(repo *memRepo, cat *stubCatalog, crt *stubCart) (*Service, *stubNotifier, *stubSink) {
	notify := &stubNotifier{}
	sink := &stubSink{}
	svc := &Service{
		Repo:     repo,
		Catalog:  cat,
		Cart:     crt,
		Seq:      &Sequencer{},
		Machine:  &Machine{Repo: repo, Notify: notify},
		Notify:   notify,
		Events:   sink,
		Producer: "walkup-api-test",
	}
	return svc, notify, sink
}

func coffeeCatalog() *stubCatalog {
	return &stubCatalog{items: map[string]catalog.Item{
		"espresso": {Ref: "espresso", Name: "Espresso", UnitCents: 50, Available: true},
		"bagel":    {Ref: "bagel", Name: "Bagel", UnitCents: 300, Available: true},
		"special":  {Ref: "special", Name: "Daily Special", UnitCents: 700, Available: false},
	}}
}

func TestPlaceComputesTotalFromCatalogSnapshot(t *testing.T) {
	svc, notify, _ := newTestService(newMemRepo(), coffeeCatalog(), &stubCart{})

	o, pos, err := svc.Place(context.Background(), PlaceRequest{
		DisplayName: "Dana",
		Lines:       []LineInput{{CatalogRef: "espresso", Qty: 2}, {CatalogRef: "bagel", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.TotalCents != 2*50+300 {
		t.Errorf("total = %d, want 400", o.TotalCents)
	}
	if o.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", o.Status)
	}
	if pos != 1 {
		t.Errorf("position = %d, want 1", pos)
	}
	if notify.queueN != 1 {
		t.Errorf("queue broadcasts = %d, want 1", notify.queueN)
	}
	if o.Items[0].Name != "Espresso" || o.Items[0].UnitCents != 50 {
		t.Errorf("line item snapshot wrong: %+v", o.Items[0])
	}
}

func TestPlacePriceImmutableAfterCatalogChange(t *testing.T) {
	cat := coffeeCatalog()
	repo := newMemRepo()
	svc, _, _ := newTestService(repo, cat, &stubCart{})

	o, _, err := svc.Place(context.Background(), PlaceRequest{
		DisplayName: "Kim",
		Lines:       []LineInput{{CatalogRef: "espresso", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// price hike after the fact must not leak into the stored order
	it := cat.items["espresso"]
	it.UnitCents = 999
	cat.items["espresso"] = it

	got, err := svc.Get(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalCents != 50 || got.Items[0].UnitCents != 50 {
		t.Errorf("order drifted with catalog: total=%d unit=%d", got.TotalCents, got.Items[0].UnitCents)
	}
}

func TestPlaceRejections(t *testing.T) {
	svc, _, _ := newTestService(newMemRepo(), coffeeCatalog(), &stubCart{})
	ctx := context.Background()

	if _, _, err := svc.Place(ctx, PlaceRequest{DisplayName: "x"}); !errors.Is(err, ErrEmptyOrder) {
		t.Errorf("empty order: got %v", err)
	}
	if _, _, err := svc.Place(ctx, PlaceRequest{
		Lines: []LineInput{{CatalogRef: "espresso", Qty: 0}},
	}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero qty: got %v", err)
	}
	if _, _, err := svc.Place(ctx, PlaceRequest{
		Lines: []LineInput{{CatalogRef: "nachos", Qty: 1}},
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown item: got %v", err)
	}

	var unav *UnavailableItemError
	_, _, err := svc.Place(ctx, PlaceRequest{
		Lines: []LineInput{{CatalogRef: "espresso", Qty: 1}, {CatalogRef: "special", Qty: 1}},
	})
	if !errors.As(err, &unav) || unav.CatalogRef != "special" {
		t.Errorf("unavailable item: got %v", err)
	}
}

func TestPlaceRejectionsLeaveNothingBehind(t *testing.T) {
	repo := newMemRepo()
	svc, notify, sink := newTestService(repo, coffeeCatalog(), &stubCart{})

	_, _, err := svc.Place(context.Background(), PlaceRequest{
		Lines: []LineInput{{CatalogRef: "special", Qty: 1}},
	})
	if err == nil {
		t.Fatal("expected rejection")
	}
	if len(repo.byID) != 0 {
		t.Error("rejected order was persisted")
	}
	if notify.queueN != 0 || len(sink.msgs) != 0 {
		t.Error("rejected order triggered notifications")
	}
}

func TestQueueScenarioThreeOrders(t *testing.T) {
	svc, _, _ := newTestService(newMemRepo(), coffeeCatalog(), &stubCart{})
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		o, _, err := svc.Place(ctx, PlaceRequest{
			DisplayName: name,
			Lines:       []LineInput{{CatalogRef: "espresso", Qty: 1}},
		})
		if err != nil {
			t.Fatalf("place %s: %v", name, err)
		}
		if o.TotalCents != 50 {
			t.Errorf("%s total = %d, want 50", name, o.TotalCents)
		}
		ids = append(ids, o.ID)
	}

	assertRanks := func(want map[string]int) {
		t.Helper()
		queue, err := svc.ActiveQueue(ctx)
		if err != nil {
			t.Fatalf("queue: %v", err)
		}
		got := make(map[string]int)
		for _, q := range queue {
			got[q.DisplayName] = *q.Position
		}
		for name, pos := range want {
			if got[name] != pos {
				t.Errorf("rank %s = %d, want %d (queue %v)", name, got[name], pos, got)
			}
		}
		if len(got) != len(want) {
			t.Errorf("queue size = %d, want %d", len(got), len(want))
		}
	}

	assertRanks(map[string]int{"A": 1, "B": 2, "C": 3})

	// A advancing to PREPARING keeps all ranks.
	if _, err := svc.Transition(ctx, ids[0], StatusPreparing, ""); err != nil {
		t.Fatalf("transition A: %v", err)
	}
	assertRanks(map[string]int{"A": 1, "B": 2, "C": 3})

	// A reaching READY leaves the queue; B and C move up.
	if _, err := svc.Transition(ctx, ids[0], StatusReady, ""); err != nil {
		t.Fatalf("transition A ready: %v", err)
	}
	assertRanks(map[string]int{"B": 1, "C": 2})

	a, err := svc.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("get A: %v", err)
	}
	if a.Position != nil {
		t.Errorf("A should have no position once READY, got %d", *a.Position)
	}
}

func TestPlaceFromCartDrainsAndClears(t *testing.T) {
	crt := &stubCart{lines: []cart.Line{
		{CatalogRef: "espresso", Qty: 1},
		{CatalogRef: "bagel", Qty: 2},
	}}
	svc, _, _ := newTestService(newMemRepo(), coffeeCatalog(), crt)

	o, pos, err := svc.PlaceFromCart(context.Background(), "user-7", "Sam", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.TotalCents != 50+2*300 {
		t.Errorf("total = %d, want 650", o.TotalCents)
	}
	if o.OwnerRef != "user-7" {
		t.Errorf("owner = %q", o.OwnerRef)
	}
	if pos != 1 {
		t.Errorf("position = %d", pos)
	}
	if !crt.cleared {
		t.Error("cart not cleared after successful order")
	}
}

func TestPlaceFromEmptyCart(t *testing.T) {
	crt := &stubCart{}
	svc, _, _ := newTestService(newMemRepo(), coffeeCatalog(), crt)

	_, _, err := svc.PlaceFromCart(context.Background(), "user-7", "Sam", "")
	if !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
	if crt.cleared {
		t.Error("cart cleared despite rejection")
	}
}

func TestOwnerOrdersAnnotatesActiveOnly(t *testing.T) {
	repo := newMemRepo()
	svc, _, _ := newTestService(repo, coffeeCatalog(), &stubCart{})
	ctx := context.Background()

	first, _, err := svc.Place(ctx, PlaceRequest{
		OwnerRef: "user-1", DisplayName: "Jo",
		Lines: []LineInput{{CatalogRef: "espresso", Qty: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range []Status{StatusPreparing, StatusReady, StatusCompleted} {
		if _, err := svc.Transition(ctx, first.ID, st, ""); err != nil {
			t.Fatalf("to %s: %v", st, err)
		}
	}
	second, _, err := svc.Place(ctx, PlaceRequest{
		OwnerRef: "user-1", DisplayName: "Jo",
		Lines: []LineInput{{CatalogRef: "bagel", Qty: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	list, err := svc.OwnerOrders(ctx, "user-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d orders, want 2", len(list))
	}
	for _, q := range list {
		switch q.ID {
		case first.ID:
			if q.Position != nil {
				t.Errorf("completed order has position %d", *q.Position)
			}
		case second.ID:
			if q.Position == nil || *q.Position != 1 {
				t.Errorf("active order position = %v, want 1", q.Position)
			}
		}
	}
}

func TestEventsPublishedToStream(t *testing.T) {
	svc, _, sink := newTestService(newMemRepo(), coffeeCatalog(), &stubCart{})
	ctx := context.Background()

	o, _, err := svc.Place(ctx, PlaceRequest{
		DisplayName: "Eve",
		Lines:       []LineInput{{CatalogRef: "espresso", Qty: 1}},
		TraceID:     "req-123",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transition(ctx, o.ID, StatusPreparing, "req-456"); err != nil {
		t.Fatal(err)
	}

	if len(sink.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(sink.msgs))
	}

	var created Envelope
	if err := json.Unmarshal(sink.msgs[0].value, &created); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if created.EventType != EventOrderCreated || created.CorrelationID != o.ID || created.TraceID != "req-123" {
		t.Errorf("created envelope = %+v", created)
	}
	if string(sink.msgs[0].key) != o.ID {
		t.Errorf("partition key = %q, want order id", sink.msgs[0].key)
	}
	var cp OrderCreatedPayload
	if err := json.Unmarshal(created.Payload, &cp); err != nil {
		t.Fatal(err)
	}
	if cp.TotalCents != 50 || cp.CreationKey != o.CreationKey {
		t.Errorf("created payload = %+v", cp)
	}

	var changed Envelope
	if err := json.Unmarshal(sink.msgs[1].value, &changed); err != nil {
		t.Fatal(err)
	}
	if changed.EventType != EventStatusChanged {
		t.Errorf("second event type = %s", changed.EventType)
	}
	var sp StatusChangedPayload
	if err := json.Unmarshal(changed.Payload, &sp); err != nil {
		t.Fatal(err)
	}
	if sp.From != StatusPending || sp.To != StatusPreparing {
		t.Errorf("status payload = %+v", sp)
	}
}

func TestHistoryFiltersByDateRange(t *testing.T) {
	repo := newMemRepo()
	svc, _, _ := newTestService(repo, coffeeCatalog(), &stubCart{})
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"mon", "tue", "wed"} {
		repo.byID[id] = Order{
			ID:          id,
			DisplayName: id,
			Status:      StatusCompleted,
			CreationKey: int64(i + 1),
			CreatedAt:   base.AddDate(0, 0, i),
		}
	}

	day := func(i int) *time.Time {
		t := base.AddDate(0, 0, i)
		return &t
	}
	assertIDs := func(f HistoryFilter, want ...string) {
		t.Helper()
		got, err := svc.History(ctx, f)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		ids := make(map[string]bool, len(got))
		for _, o := range got {
			ids[o.ID] = true
		}
		if len(got) != len(want) {
			t.Fatalf("got %d orders %v, want %v", len(got), ids, want)
		}
		for _, id := range want {
			if !ids[id] {
				t.Errorf("missing %s (got %v)", id, ids)
			}
		}
	}

	assertIDs(HistoryFilter{}, "mon", "tue", "wed")
	assertIDs(HistoryFilter{From: day(1)}, "tue", "wed")
	assertIDs(HistoryFilter{To: day(1)}, "mon", "tue")
	assertIDs(HistoryFilter{From: day(1), To: day(1)}, "tue")
	assertIDs(HistoryFilter{From: day(3)})
}

// swapRecordingRepo remembers the expected status of the last successful
// CAS, so tests can pin event payloads to what the swap actually applied
// against.
type swapRecordingRepo struct {
	*memRepo
	swappedFrom Status
}

func (r *swapRecordingRepo) UpdateStatus(ctx context.Context, id string, expected, next Status) (Order, error) {
	o, err := r.memRepo.UpdateStatus(ctx, id, expected, next)
	if err == nil {
		r.swappedFrom = expected
	}
	return o, err
}

func TestTransitionEventFromMatchesSwappedStatus(t *testing.T) {
	inner := newMemRepo()
	repo := &swapRecordingRepo{memRepo: inner}
	notify := &stubNotifier{}
	sink := &stubSink{}
	svc := &Service{
		Repo:     repo,
		Catalog:  coffeeCatalog(),
		Seq:      &Sequencer{},
		Machine:  &Machine{Repo: repo, Notify: notify},
		Notify:   notify,
		Events:   sink,
		Producer: "walkup-api-test",
	}
	ctx := context.Background()

	o, _, err := svc.Place(ctx, PlaceRequest{
		DisplayName: "Pat",
		Lines:       []LineInput{{CatalogRef: "espresso", Qty: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// A lost CAS forces a re-read before the winning swap; the published
	// from status must be the one that swap applied against.
	inner.conflicts = 1
	if _, err := svc.Transition(ctx, o.ID, StatusPreparing, ""); err != nil {
		t.Fatal(err)
	}

	var env Envelope
	if err := json.Unmarshal(sink.msgs[len(sink.msgs)-1].value, &env); err != nil {
		t.Fatal(err)
	}
	var sp StatusChangedPayload
	if err := json.Unmarshal(env.Payload, &sp); err != nil {
		t.Fatal(err)
	}
	if sp.From != repo.swappedFrom {
		t.Errorf("event from = %s, swap applied against %s", sp.From, repo.swappedFrom)
	}
	if sp.From != StatusPending || sp.To != StatusPreparing {
		t.Errorf("payload = %+v", sp)
	}
}

func TestConcurrentPlacementsGetDistinctKeysAndBijectiveRanks(t *testing.T) {
	svc, _, _ := newTestService(newMemRepo(), coffeeCatalog(), &stubCart{})
	ctx := context.Background()

	const n = 50
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, _, err := svc.Place(ctx, PlaceRequest{
				DisplayName: "walkup",
				Lines:       []LineInput{{CatalogRef: "espresso", Qty: 1}},
			})
			done <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent place: %v", err)
		}
	}

	queue, err := svc.ActiveQueue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != n {
		t.Fatalf("queue size = %d, want %d", len(queue), n)
	}
	seenKeys := make(map[int64]bool, n)
	for i, q := range queue {
		if *q.Position != i+1 {
			t.Errorf("position %d at index %d", *q.Position, i)
		}
		if seenKeys[q.CreationKey] {
			t.Errorf("duplicate creation key %d", q.CreationKey)
		}
		seenKeys[q.CreationKey] = true
		if q.TotalCents != 50 {
			t.Errorf("total = %d, want 50", q.TotalCents)
		}
	}
}
