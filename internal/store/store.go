package store

import (
	"context"
	"errors"
	"time"

	"github.com/lcardona/depositrack/internal/domain"
)

// Store defines the minimal contract required by the services to persist and
// query ledger state. Implementations must keep every operation atomic at
// single-record granularity; no operation spans more than one record except
// PurgeAll, which is atomic over the whole table.
type Store interface {
	InsertDeposit(ctx context.Context, d domain.Deposit) error
	Deposit(ctx context.Context, id string) (domain.Deposit, error)
	// MarkRead sets status to read and stamps read_at, once. Calling it on a
	// record that is already read leaves the original read_at untouched and
	// returns nil. Unknown ids return ErrDepositNotFound.
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	// SetSenderDeleted writes the sender-side soft-delete marker; a nil
	// deletedAt clears it. Last write wins across concurrent sessions.
	SetSenderDeleted(ctx context.Context, id string, deletedAt *time.Time) error
	Deposits(ctx context.Context) ([]domain.Deposit, error)
	// PurgeAll physically removes every deposit row. Irreversible.
	PurgeAll(ctx context.Context) error

	UpsertContact(ctx context.Context, c domain.Contact) error
	Contacts(ctx context.Context, userID string) ([]domain.Contact, error)
	DeleteContact(ctx context.Context, userID, email string) error

	Ping(ctx context.Context) error
	Close() error
}

var (
	// ErrDepositNotFound indicates the requested deposit id does not exist.
	ErrDepositNotFound = errors.New("deposit not found")
	// ErrContactNotFound indicates no saved contact matches the lookup.
	ErrContactNotFound = errors.New("contact not found")
)
