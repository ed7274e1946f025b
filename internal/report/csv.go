// Package report renders an already-resolved view into a downloadable
// statement. It consumes core output only and never touches ledger state.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/view"
)

const voucherURLTTL = 15 * time.Minute

// VoucherResolver resolves stored voucher references to signed URLs.
type VoucherResolver interface {
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// unavailable annotates a voucher whose URL could not be resolved; one bad
// attachment must never abort the whole statement.
const unavailable = "unavailable"

// WriteCSV writes the statement for one resolved view. The trailing total row
// reproduces the view's total exactly.
func WriteCSV(ctx context.Context, w io.Writer, viewer domain.Identity, resolved view.Resolved, resolver VoucherResolver) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "date", "counterparty", "amount", "status", "observation", "voucher"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, d := range resolved.Records {
		voucher := ""
		if d.VoucherRef != "" {
			voucher = unavailable
			if resolver != nil {
				if url, err := resolver.SignedURL(ctx, d.VoucherRef, voucherURLTTL); err == nil {
					voucher = url
				}
			}
		}

		row := []string{
			d.ID,
			d.BucketDate().Format(time.DateOnly),
			d.CounterpartyEmail(viewer.ID),
			d.Amount.String(),
			string(d.Status),
			d.Observation,
			voucher,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	total := []string{"total", "", "", resolved.Total.String(), "", "", ""}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("write csv total: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
