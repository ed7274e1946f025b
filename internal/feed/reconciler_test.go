package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/store"
	"github.com/lcardona/depositrack/internal/view"
)

const testDebounce = 20 * time.Millisecond

func newHarness(t *testing.T) (*store.MemoryStore, *Bus, *Reconciler) {
	t.Helper()
	s := store.NewMemoryStore()
	bus := NewBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewReconciler(view.New(s), bus, logger, testDebounce)
	t.Cleanup(r.Close)
	return s, bus, r
}

func incoming(id string) domain.Deposit {
	now := time.Now().UTC()
	return domain.Deposit{
		ID:             id,
		SenderID:       "u1",
		SenderEmail:    "a@x.com",
		RecipientEmail: "b@x.com",
		Amount:         decimal.RequireFromString("100.00"),
		DepositDate:    now,
		Status:         domain.StatusSent,
		CreatedAt:      now,
	}
}

func waitRefresh(t *testing.T, ch <-chan view.Resolved) view.Resolved {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
		return view.Resolved{}
	}
}

func TestReconcilerInsertNoticeOncePerRow(t *testing.T) {
	s, bus, r := newHarness(t)

	refreshes := make(chan view.Resolved, 16)
	notices := make(chan domain.Deposit, 16)
	sub := r.Subscribe(
		domain.Identity{ID: "u2", Email: "b@x.com"},
		domain.PartitionReceived,
		view.Filters{},
		func(res view.Resolved) { refreshes <- res },
		func(d domain.Deposit) { notices <- d },
	)
	defer sub.Close()

	waitRefresh(t, refreshes) // initial delivery

	d := incoming("d1")
	if err := s.InsertDeposit(context.Background(), d); err != nil {
		t.Fatalf("insert: %v", err)
	}
	bus.Publish(Event{Type: EventInsert, Table: TableDeposits, Row: d})

	select {
	case got := <-notices:
		if got.ID != "d1" {
			t.Fatalf("notice for %s, want d1", got.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
	}
	res := waitRefresh(t, refreshes)
	if len(res.Records) != 1 {
		t.Fatalf("refreshed view has %d records, want 1", len(res.Records))
	}

	// At-least-once delivery: a duplicate insert must not replay the notice,
	// and a later update to the same row must refresh without a notice.
	bus.Publish(Event{Type: EventInsert, Table: TableDeposits, Row: d})
	waitRefresh(t, refreshes)
	bus.Publish(Event{Type: EventUpdate, Table: TableDeposits, Row: d})
	waitRefresh(t, refreshes)

	select {
	case got := <-notices:
		t.Fatalf("unexpected extra notice for %s", got.ID)
	case <-time.After(4 * testDebounce):
	}
}

func TestReconcilerNoNoticeForOwnDeposits(t *testing.T) {
	_, bus, r := newHarness(t)

	notices := make(chan domain.Deposit, 1)
	sub := r.Subscribe(
		domain.Identity{ID: "u1", Email: "a@x.com"},
		domain.PartitionSent,
		view.Filters{},
		func(view.Resolved) {},
		func(d domain.Deposit) { notices <- d },
	)
	defer sub.Close()

	bus.Publish(Event{Type: EventInsert, Table: TableDeposits, Row: incoming("d1")})

	select {
	case got := <-notices:
		t.Fatalf("sender received a notice for own deposit %s", got.ID)
	case <-time.After(4 * testDebounce):
	}
}

func TestReconcilerDebouncesBursts(t *testing.T) {
	s, bus, r := newHarness(t)

	refreshes := make(chan view.Resolved, 16)
	sub := r.Subscribe(
		domain.Identity{ID: "u2", Email: "b@x.com"},
		domain.PartitionReceived,
		view.Filters{},
		func(res view.Resolved) { refreshes <- res },
		nil,
	)
	defer sub.Close()

	waitRefresh(t, refreshes)

	ids := []string{"d1", "d2", "d3", "d4", "d5"}
	for _, id := range ids {
		d := incoming(id)
		if err := s.InsertDeposit(context.Background(), d); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
		bus.Publish(Event{Type: EventInsert, Table: TableDeposits, Row: d})
	}

	res := waitRefresh(t, refreshes)
	if len(res.Records) != len(ids) {
		t.Fatalf("refresh saw %d records, want %d", len(res.Records), len(ids))
	}

	select {
	case <-refreshes:
		t.Fatal("burst produced more than one refresh")
	case <-time.After(4 * testDebounce):
	}
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	_, bus, r := newHarness(t)

	refreshes := make(chan view.Resolved, 16)
	sub := r.Subscribe(
		domain.Identity{ID: "u2", Email: "b@x.com"},
		domain.PartitionReceived,
		view.Filters{},
		func(res view.Resolved) { refreshes <- res },
		nil,
	)
	waitRefresh(t, refreshes)

	sub.Close()
	sub.Close() // idempotent

	bus.Publish(Event{Type: EventInsert, Table: TableDeposits, Row: incoming("d1")})
	select {
	case <-refreshes:
		t.Fatal("closed subscription still received a refresh")
	case <-time.After(4 * testDebounce):
	}
}
