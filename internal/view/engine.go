// Package view implements the one shared visibility and filter engine that
// every dashboard variant (sender, recipient, admin) resolves its record list
// through.
package view

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
)

// Lister is the slice of the store the engine needs.
type Lister interface {
	Deposits(ctx context.Context) ([]domain.Deposit, error)
}

// Filters narrows a partition further. All fields are optional and combine
// as a conjunction on top of the partition predicate.
type Filters struct {
	// DateStart and DateEnd bound the deposit date, inclusive on both ends.
	// Comparison truncates record and bound to whole calendar days.
	DateStart *time.Time
	DateEnd   *time.Time
	// CounterpartyEmail matches the recipient for records the viewer sent
	// and the sender for records the viewer received.
	CounterpartyEmail string
}

// Resolved is the exact record list and total a viewer should see. Total is
// always the sum over Records, never over the unfiltered partition.
type Resolved struct {
	Records []domain.Deposit
	Total   decimal.Decimal
}

// Engine resolves per-viewer views over the ledger.
type Engine struct {
	store Lister
}

// New constructs an Engine reading from the supplied store.
func New(store Lister) *Engine {
	return &Engine{store: store}
}

// ResolveView computes the ordered record list and aggregate total for one
// viewer, partition, and filter set.
func (e *Engine) ResolveView(ctx context.Context, viewer domain.Identity, partition domain.Partition, filters Filters) (Resolved, error) {
	all, err := e.store.Deposits(ctx)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve %s view: %w", partition, err)
	}

	resolved := Resolved{Total: decimal.Zero}
	for _, d := range all {
		if !inPartition(d, viewer, partition) {
			continue
		}
		if !matchesFilters(d, viewer, filters) {
			continue
		}
		resolved.Records = append(resolved.Records, d)
		resolved.Total = resolved.Total.Add(d.Amount)
	}

	SortRecords(resolved.Records)
	return resolved, nil
}

// SortRecords orders deposits newest first by insertion time, with the id as
// a stable tie-break.
func SortRecords(records []domain.Deposit) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

func inPartition(d domain.Deposit, viewer domain.Identity, partition domain.Partition) bool {
	switch partition {
	case domain.PartitionSent:
		return d.SenderID == viewer.ID && !d.InTrash()
	case domain.PartitionReceived:
		return d.SenderID != viewer.ID && domain.EmailEqual(d.RecipientEmail, viewer.Email)
	case domain.PartitionTrash:
		return d.SenderID == viewer.ID && d.InTrash()
	default:
		return false
	}
}

func matchesFilters(d domain.Deposit, viewer domain.Identity, f Filters) bool {
	day := truncateDay(d.BucketDate())
	if f.DateStart != nil && day.Before(truncateDay(*f.DateStart)) {
		return false
	}
	if f.DateEnd != nil && day.After(truncateDay(*f.DateEnd)) {
		return false
	}
	if f.CounterpartyEmail != "" && !domain.EmailEqual(d.CounterpartyEmail(viewer.ID), f.CounterpartyEmail) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
