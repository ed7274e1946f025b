package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthBucket is one entry of the admin monthly series.
type MonthBucket struct {
	Year   int
	Month  time.Month
	Label  string
	Amount decimal.Decimal
}

// Rollup is the administrative, ledger-wide aggregate. It is computed over
// every record regardless of sender-side soft deletion and must degrade to
// zeros and empty slices on an empty ledger.
type Rollup struct {
	TotalAmount   decimal.Decimal
	TodayAmount   decimal.Decimal
	MonthAmount   decimal.Decimal
	TotalCount    int
	PendingCount  int
	MonthlySeries []MonthBucket
	RecentTop10   []Deposit
}
