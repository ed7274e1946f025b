package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/view"
	"github.com/lcardona/depositrack/internal/vouchers"
)

func TestWriteCSVAnnotatesUnresolvableVouchers(t *testing.T) {
	viewer := domain.Identity{ID: "u1", Email: "a@x.com"}
	objects := vouchers.NewMemory()

	ref, err := objects.Upload(context.Background(), "vouchers/u1/d1", []byte("img"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	jan10 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	resolved := view.Resolved{
		Records: []domain.Deposit{
			{
				ID: "d1", SenderID: "u1", RecipientEmail: "b@x.com",
				Amount: decimal.RequireFromString("100.00"), DepositDate: jan10,
				VoucherRef: ref, Status: domain.StatusSent, CreatedAt: jan10,
			},
			{
				ID: "d2", SenderID: "u1", RecipientEmail: "c@x.com",
				Amount: decimal.RequireFromString("20.50"), DepositDate: jan10,
				VoucherRef: "vouchers/u1/gone", Status: domain.StatusRead, CreatedAt: jan10,
			},
		},
		Total: decimal.RequireFromString("120.50"),
	}

	var buf bytes.Buffer
	if err := WriteCSV(context.Background(), &buf, viewer, resolved, objects); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 2 records + total, got %d rows", len(rows))
	}

	if !strings.HasPrefix(rows[1][6], "memory://") {
		t.Errorf("resolvable voucher column = %q, want signed url", rows[1][6])
	}
	if rows[2][6] != "unavailable" {
		t.Errorf("missing voucher column = %q, want unavailable", rows[2][6])
	}
	if rows[1][2] != "b@x.com" {
		t.Errorf("counterparty = %q, want b@x.com", rows[1][2])
	}

	totalRow := rows[3]
	if totalRow[0] != "total" || totalRow[3] != "120.50" {
		t.Errorf("total row = %v, want total 120.50", totalRow)
	}
}

func TestWriteCSVEmptyView(t *testing.T) {
	var buf bytes.Buffer
	resolved := view.Resolved{Total: decimal.Zero}
	if err := WriteCSV(context.Background(), &buf, domain.Identity{ID: "u1"}, resolved, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + total, got %d rows", len(rows))
	}
	if rows[1][3] != "0" {
		t.Errorf("empty view total = %q, want 0", rows[1][3])
	}
}
