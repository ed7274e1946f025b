package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks the deposit acknowledgment lifecycle.
type Status string

const (
	// StatusSent marks a deposit recorded by the sender but not yet
	// acknowledged by the recipient.
	StatusSent Status = "sent"
	// StatusRead marks a deposit the recipient has confirmed receiving.
	StatusRead Status = "read"
)

// Partition selects one of the three views a viewer can request over the ledger.
type Partition string

const (
	PartitionSent     Partition = "sent"
	PartitionReceived Partition = "received"
	PartitionTrash    Partition = "trash"
)

// ParsePartition validates a raw partition name.
func ParsePartition(raw string) (Partition, bool) {
	switch Partition(strings.ToLower(strings.TrimSpace(raw))) {
	case PartitionSent:
		return PartitionSent, true
	case PartitionReceived:
		return PartitionReceived, true
	case PartitionTrash:
		return PartitionTrash, true
	default:
		return "", false
	}
}

// Deposit models a single money-transfer notification between a sender and a
// recipient email. The record transitions at most once from sent to read; it
// may be hidden from and restored to the sender's default view any number of
// times, and is physically removed only by the administrative purge.
type Deposit struct {
	ID             string
	SenderID       string
	SenderEmail    string
	SenderName     string
	RecipientEmail string
	Amount         decimal.Decimal
	DepositDate    time.Time
	VoucherRef     string
	Status         Status
	ReadAt         *time.Time
	Observation    string
	// SenderDeletedAt hides the record from the sender's sent view only.
	// Recipients and admins keep seeing it regardless.
	SenderDeletedAt *time.Time
	CreatedAt       time.Time
}

// InTrash reports whether the sender has soft-deleted the record.
func (d Deposit) InTrash() bool {
	return d.SenderDeletedAt != nil
}

// Confirmed reports whether the recipient has acknowledged the deposit.
func (d Deposit) Confirmed() bool {
	return d.Status == StatusRead
}

// BucketDate returns the date the record should be grouped under for
// date filtering and aggregation. Records missing a deposit date fall back
// to their insertion time rather than being dropped.
func (d Deposit) BucketDate() time.Time {
	if d.DepositDate.IsZero() {
		return d.CreatedAt
	}
	return d.DepositDate
}

// CounterpartyEmail returns the email on the other side of the record from
// the given viewer.
func (d Deposit) CounterpartyEmail(viewerID string) string {
	if d.SenderID == viewerID {
		return d.RecipientEmail
	}
	return d.SenderEmail
}

// EmailEqual compares two email addresses the way the visibility rules do:
// case-insensitive and ignoring surrounding whitespace.
func EmailEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
