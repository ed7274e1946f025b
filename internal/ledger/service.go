// Package ledger implements the mutation side of the deposit ledger: record
// creation, recipient confirmation, sender-scoped soft deletion, and the
// administrative purge.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/feed"
	"github.com/lcardona/depositrack/internal/notify"
	"github.com/lcardona/depositrack/internal/store"
	"github.com/lcardona/depositrack/internal/vouchers"
)

// Repository is the slice of the store the service mutates.
type Repository interface {
	InsertDeposit(ctx context.Context, d domain.Deposit) error
	Deposit(ctx context.Context, id string) (domain.Deposit, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	SetSenderDeleted(ctx context.Context, id string, deletedAt *time.Time) error
	PurgeAll(ctx context.Context) error
}

// Publisher emits row-level change events after successful mutations.
type Publisher interface {
	Publish(e feed.Event)
}

// NameResolver looks up the sender's saved display name for a counterparty
// email. The contact directory satisfies it.
type NameResolver interface {
	ResolveName(ctx context.Context, userID, email string) (string, error)
}

// Service enforces the deposit state machine and ownership rules.
type Service struct {
	repo     Repository
	storage  vouchers.Storage
	alerts   notify.Dispatcher
	events   Publisher
	names    NameResolver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	baseLink string
}

// New constructs the ledger service. alerts and events may be nil when the
// caller has no use for them (seeding tools, some tests).
func New(repo Repository, storage vouchers.Storage, alerts notify.Dispatcher, events Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		storage: storage,
		alerts:  alerts,
		events:  events,
		logger:  logger.With("component", "ledger"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock overrides the time source, for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides the id source, for deterministic tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.newID = gen
	return s
}

// WithAlertLink sets the dashboard link embedded in outbound alerts.
func (s *Service) WithAlertLink(link string) *Service {
	s.baseLink = link
	return s
}

// WithNameResolver lets outbound alerts address the recipient by the name the
// sender saved for them.
func (s *Service) WithNameResolver(names NameResolver) *Service {
	s.names = names
	return s
}

// CreateInput carries everything a sender submits when recording a deposit.
type CreateInput struct {
	RecipientEmail string
	// Amount is the raw user-entered figure; it must parse to a positive
	// decimal before anything is persisted.
	Amount      string
	DepositDate time.Time
	Observation string
	// Voucher holds the optional proof image bytes. A failed upload prevents
	// the insert, so a row never references a nonexistent object.
	Voucher []byte
}

// Create validates and inserts a new sent deposit owned by sender.
func (s *Service) Create(ctx context.Context, sender domain.Identity, in CreateInput) (domain.Deposit, error) {
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return domain.Deposit{}, err
	}
	if in.RecipientEmail == "" {
		return domain.Deposit{}, &domain.ValidationError{Field: "recipientEmail", Reason: "is required"}
	}
	if !sender.CanWrite() {
		return domain.Deposit{}, &domain.AuthorizationError{
			Reason: fmt.Sprintf("account status %q does not permit recording deposits", sender.AccountStatus),
		}
	}

	id := s.newID()
	var voucherRef string
	if len(in.Voucher) > 0 {
		key := fmt.Sprintf("vouchers/%s/%s", sender.ID, id)
		ref, err := s.storage.Upload(ctx, key, in.Voucher)
		if err != nil {
			return domain.Deposit{}, &domain.TransientIOError{Op: "upload voucher", Err: err}
		}
		voucherRef = ref
	}

	d := domain.Deposit{
		ID:             id,
		SenderID:       sender.ID,
		SenderEmail:    sender.Email,
		SenderName:     sender.Name,
		RecipientEmail: in.RecipientEmail,
		Amount:         amount,
		DepositDate:    in.DepositDate,
		VoucherRef:     voucherRef,
		Status:         domain.StatusSent,
		Observation:    in.Observation,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.InsertDeposit(ctx, d); err != nil {
		return domain.Deposit{}, &domain.TransientIOError{Op: "insert deposit", Err: err}
	}

	s.publish(feed.EventInsert, d)
	s.dispatchAlert(d)
	return d, nil
}

// Confirm marks the deposit as read. It is idempotent: confirming an already
// read record keeps the original read_at. Any viewer who can see the record
// in their received view may confirm it; there is no stricter recipient
// check.
func (s *Service) Confirm(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id, s.now().UTC()); err != nil {
		return asDomainError("deposit", id, err)
	}

	d, err := s.repo.Deposit(ctx, id)
	if err != nil {
		return asDomainError("deposit", id, err)
	}
	s.publish(feed.EventUpdate, d)
	return nil
}

// SoftDelete hides the record from its sender's default view. Only the
// owning sender may do this; the recipient keeps seeing the record.
func (s *Service) SoftDelete(ctx context.Context, viewer domain.Identity, id string) error {
	deletedAt := s.now().UTC()
	return s.setDeletionMarker(ctx, viewer, id, &deletedAt)
}

// Restore clears the soft-delete marker. Restoring a record that was never
// deleted is a no-op.
func (s *Service) Restore(ctx context.Context, viewer domain.Identity, id string) error {
	return s.setDeletionMarker(ctx, viewer, id, nil)
}

func (s *Service) setDeletionMarker(ctx context.Context, viewer domain.Identity, id string, deletedAt *time.Time) error {
	d, err := s.repo.Deposit(ctx, id)
	if err != nil {
		return asDomainError("deposit", id, err)
	}
	if d.SenderID != viewer.ID {
		return &domain.AuthorizationError{Reason: "only the sender may delete or restore a deposit"}
	}
	if err := s.repo.SetSenderDeleted(ctx, id, deletedAt); err != nil {
		return asDomainError("deposit", id, err)
	}

	d.SenderDeletedAt = deletedAt
	s.publish(feed.EventUpdate, d)
	return nil
}

// PurgeAll physically removes every deposit in the store. Administrative
// only, irreversible, unscoped by owner.
func (s *Service) PurgeAll(ctx context.Context, viewer domain.Identity) error {
	if !viewer.IsAdmin() {
		return &domain.AuthorizationError{Reason: "purging the ledger requires the admin role"}
	}
	if err := s.repo.PurgeAll(ctx); err != nil {
		return &domain.TransientIOError{Op: "purge ledger", Err: err}
	}
	s.publish(feed.EventDelete, domain.Deposit{})
	return nil
}

func (s *Service) publish(typ feed.EventType, d domain.Deposit) {
	if s.events == nil {
		return
	}
	s.events.Publish(feed.Event{Type: typ, Table: feed.TableDeposits, Row: d})
}

// dispatchAlert notifies the recipient in the background. Failures are
// logged and never surface to the creating caller.
func (s *Service) dispatchAlert(d domain.Deposit) {
	if s.alerts == nil {
		return
	}
	alert := notify.DepositAlert{
		ToEmail:  d.RecipientEmail,
		FromName: d.SenderName,
		Amount:   d.Amount,
		Date:     d.BucketDate(),
		Link:     s.baseLink,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.names != nil {
			// An unresolvable name degrades to an email-only greeting.
			name, err := s.names.ResolveName(ctx, d.SenderID, d.RecipientEmail)
			if err != nil {
				s.logger.Warn("alert name lookup failed", "error", err, "deposit", d.ID)
			}
			alert.ToName = name
		}
		if err := s.alerts.SendDepositAlert(ctx, alert); err != nil {
			s.logger.Warn("deposit alert failed", "error", err, "deposit", d.ID, "to", d.RecipientEmail)
		}
	}()
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: "amount", Reason: "must be a number"}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &domain.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	return amount, nil
}

func asDomainError(kind, id string, err error) error {
	if errors.Is(err, store.ErrDepositNotFound) || errors.Is(err, store.ErrContactNotFound) {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return &domain.TransientIOError{Op: "store access", Err: err}
}
