package view

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/store"
)

var (
	ana = domain.Identity{ID: "u1", Email: "a@x.com"}
	bea = domain.Identity{ID: "u2", Email: "b@x.com"}
)

func seed(t *testing.T, s *store.MemoryStore, deposits ...domain.Deposit) {
	t.Helper()
	for _, d := range deposits {
		if err := s.InsertDeposit(context.Background(), d); err != nil {
			t.Fatalf("seed deposit %s: %v", d.ID, err)
		}
	}
}

func dep(id, senderID, senderEmail, recipient, amount string, date, created time.Time) domain.Deposit {
	return domain.Deposit{
		ID:             id,
		SenderID:       senderID,
		SenderEmail:    senderEmail,
		RecipientEmail: recipient,
		Amount:         decimal.RequireFromString(amount),
		DepositDate:    date,
		Status:         domain.StatusSent,
		CreatedAt:      created,
	}
}

func TestResolveViewPartitions(t *testing.T) {
	deletedAt := time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)
	jan10 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	live := dep("d1", "u1", "a@x.com", "b@x.com", "100.00", jan10, jan10.Add(9*time.Hour))
	trashed := dep("d2", "u1", "a@x.com", "c@x.com", "30.00", jan10, jan10.Add(10*time.Hour))
	trashed.SenderDeletedAt = &deletedAt
	incoming := dep("d3", "u2", "b@x.com", "a@x.com", "55.00", jan10, jan10.Add(11*time.Hour))

	cases := []struct {
		name      string
		viewer    domain.Identity
		partition domain.Partition
		wantIDs   []string
		wantTotal string
	}{
		{"sent excludes trash", ana, domain.PartitionSent, []string{"d1"}, "100.00"},
		{"trash excludes live", ana, domain.PartitionTrash, []string{"d2"}, "30.00"},
		{"received by email", ana, domain.PartitionReceived, []string{"d3"}, "55.00"},
		{"recipient still sees trashed record", bea, domain.PartitionReceived, []string{"d1"}, "100.00"},
		{"sender never receives own record", ana, domain.PartitionReceived, []string{"d3"}, "55.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := store.NewMemoryStore()
			seed(t, s, live, trashed, incoming)

			res, err := New(s).ResolveView(context.Background(), tc.viewer, tc.partition, Filters{})
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got := ids(res.Records); !equalIDs(got, tc.wantIDs) {
				t.Errorf("records = %v, want %v", got, tc.wantIDs)
			}
			if res.Total.String() != decimal.RequireFromString(tc.wantTotal).String() {
				t.Errorf("total = %s, want %s", res.Total, tc.wantTotal)
			}
		})
	}
}

func TestResolveViewReceivedMatchesEmailLoosely(t *testing.T) {
	jan10 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore()
	seed(t, s, dep("d1", "u1", "a@x.com", "  B@X.com ", "10", jan10, jan10))

	res, err := New(s).ResolveView(context.Background(), bea, domain.PartitionReceived, Filters{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record despite case and whitespace, got %d", len(res.Records))
	}
}

func TestResolveViewDateFilterInclusiveDays(t *testing.T) {
	s := store.NewMemoryStore()
	mk := func(id string, day int, hour int) domain.Deposit {
		date := time.Date(2025, 3, day, hour, 30, 0, 0, time.UTC)
		return dep(id, "u1", "a@x.com", "b@x.com", "10", date, date)
	}
	seed(t, s, mk("d1", 1, 23), mk("d2", 5, 0), mk("d3", 10, 12), mk("d4", 11, 1))

	start := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC) // mid-day bound still covers d1
	end := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	res, err := New(s).ResolveView(context.Background(), ana, domain.PartitionSent, Filters{
		DateStart: &start,
		DateEnd:   &end,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := ids(res.Records); !equalIDs(got, []string{"d3", "d2", "d1"}) {
		t.Errorf("records = %v, want [d3 d2 d1]", got)
	}
}

func TestResolveViewCounterpartyFilter(t *testing.T) {
	jan10 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore()
	seed(t, s,
		dep("d1", "u1", "a@x.com", "b@x.com", "10", jan10, jan10.Add(time.Hour)),
		dep("d2", "u1", "a@x.com", "c@x.com", "20", jan10, jan10.Add(2*time.Hour)),
		dep("d3", "u2", "b@x.com", "a@x.com", "40", jan10, jan10.Add(3*time.Hour)),
	)
	engine := New(s)

	sent, err := engine.ResolveView(context.Background(), ana, domain.PartitionSent, Filters{CounterpartyEmail: "b@x.com"})
	if err != nil {
		t.Fatalf("resolve sent: %v", err)
	}
	if got := ids(sent.Records); !equalIDs(got, []string{"d1"}) {
		t.Errorf("sent records = %v, want [d1]", got)
	}

	received, err := engine.ResolveView(context.Background(), ana, domain.PartitionReceived, Filters{CounterpartyEmail: "b@x.com"})
	if err != nil {
		t.Fatalf("resolve received: %v", err)
	}
	if got := ids(received.Records); !equalIDs(got, []string{"d3"}) {
		t.Errorf("received records = %v, want [d3]", got)
	}
}

func TestResolveViewOrderingAndTotalDrift(t *testing.T) {
	s := store.NewMemoryStore()
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	seed(t, s,
		dep("d-b", "u1", "a@x.com", "b@x.com", "1.10", base, base),
		dep("d-a", "u1", "a@x.com", "b@x.com", "2.20", base, base), // same created_at, id breaks the tie
		dep("d-c", "u1", "a@x.com", "b@x.com", "3.30", base, base.Add(time.Minute)),
	)

	res, err := New(s).ResolveView(context.Background(), ana, domain.PartitionSent, Filters{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := ids(res.Records); !equalIDs(got, []string{"d-c", "d-a", "d-b"}) {
		t.Errorf("records = %v, want [d-c d-a d-b]", got)
	}

	sum := decimal.Zero
	for _, r := range res.Records {
		sum = sum.Add(r.Amount)
	}
	if !res.Total.Equal(sum) {
		t.Errorf("total %s drifted from record sum %s", res.Total, sum)
	}
}

func TestResolveViewMissingDepositDateFallsBackToCreatedAt(t *testing.T) {
	s := store.NewMemoryStore()
	created := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
	d := dep("d1", "u1", "a@x.com", "b@x.com", "10", time.Time{}, created)
	seed(t, s, d)

	start := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	end := start
	res, err := New(s).ResolveView(context.Background(), ana, domain.PartitionSent, Filters{DateStart: &start, DateEnd: &end})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected the undated record bucketed by created_at, got %d records", len(res.Records))
	}
}

func ids(records []domain.Deposit) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
