// Package notify is the outbound alert capability. Dispatch is fire and
// forget: a failed alert is logged and never rolls back or blocks the deposit
// creation that triggered it.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// DepositAlert carries everything the mail template needs.
type DepositAlert struct {
	ToEmail  string
	ToName   string
	FromName string
	Amount   decimal.Decimal
	Date     time.Time
	Link     string
}

// Dispatcher sends deposit alerts to recipients.
type Dispatcher interface {
	SendDepositAlert(ctx context.Context, alert DepositAlert) error
}

// LogDispatcher records alerts to the structured log instead of sending mail.
// It stands in for the real mail integration in development and tests.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher builds a dispatcher writing to the provided logger.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With("component", "notify")}
}

func (d *LogDispatcher) SendDepositAlert(_ context.Context, alert DepositAlert) error {
	d.logger.Info("deposit alert",
		"to", alert.ToEmail,
		"from", alert.FromName,
		"amount", alert.Amount.String(),
		"date", alert.Date.Format(time.DateOnly),
	)
	return nil
}
