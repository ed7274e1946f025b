// Package admin computes the read-only, ledger-wide aggregate behind the
// administrative dashboard.
package admin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/view"
)

const monthlySeriesLen = 6

// Service aggregates over the full record set. Admin visibility ignores
// sender-side soft deletion entirely.
type Service struct {
	store    view.Lister
	labelFor func(time.Month) string
}

// New constructs the aggregation service.
func New(store view.Lister) *Service {
	return &Service{
		store:    store,
		labelFor: defaultMonthLabel,
	}
}

// WithMonthLabels swaps the month-abbreviation function, letting a deployment
// inject a locale table.
func (s *Service) WithMonthLabels(labelFor func(time.Month) string) *Service {
	s.labelFor = labelFor
	return s
}

// Rollup computes the dashboard aggregate in a single pass over the ledger.
// An empty ledger yields zero sums, an empty series, and an empty top list.
func (s *Service) Rollup(ctx context.Context, now time.Time) (domain.Rollup, error) {
	deposits, err := s.store.Deposits(ctx)
	if err != nil {
		return domain.Rollup{}, fmt.Errorf("rollup: %w", err)
	}

	rollup := domain.Rollup{
		TotalAmount:   decimal.Zero,
		TodayAmount:   decimal.Zero,
		MonthAmount:   decimal.Zero,
		MonthlySeries: []domain.MonthBucket{},
		RecentTop10:   []domain.Deposit{},
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	buckets := make(map[monthKey]decimal.Decimal)

	for _, d := range deposits {
		rollup.TotalCount++
		rollup.TotalAmount = rollup.TotalAmount.Add(d.Amount)
		if !d.Confirmed() {
			rollup.PendingCount++
		}

		// Compare calendar components directly: deposit dates are stored as
		// midnight UTC and must not shift a day under the caller's zone.
		date := d.BucketDate()
		if sameDay(date, now) {
			rollup.TodayAmount = rollup.TodayAmount.Add(d.Amount)
		}
		if date.Year() == now.Year() && date.Month() == now.Month() {
			rollup.MonthAmount = rollup.MonthAmount.Add(d.Amount)
		}

		key := monthKey{year: date.Year(), month: date.Month()}
		sum, ok := buckets[key]
		if !ok {
			sum = decimal.Zero
		}
		buckets[key] = sum.Add(d.Amount)
	}

	keys := make([]monthKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})
	if len(keys) > monthlySeriesLen {
		keys = keys[len(keys)-monthlySeriesLen:]
	}
	for _, k := range keys {
		rollup.MonthlySeries = append(rollup.MonthlySeries, domain.MonthBucket{
			Year:   k.year,
			Month:  k.month,
			Label:  s.labelFor(k.month),
			Amount: buckets[k],
		})
	}

	recent := make([]domain.Deposit, len(deposits))
	copy(recent, deposits)
	view.SortRecords(recent)
	if len(recent) > 10 {
		recent = recent[:10]
	}
	rollup.RecentTop10 = recent

	return rollup, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func defaultMonthLabel(m time.Month) string {
	return m.String()[:3]
}
