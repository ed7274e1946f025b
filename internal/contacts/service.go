// Package contacts is the per-user directory of saved counterparties. It is
// purely a display-name cache: nothing here ever touches ledger state.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/store"
)

// Repository is the slice of the store the directory uses.
type Repository interface {
	UpsertContact(ctx context.Context, c domain.Contact) error
	Contacts(ctx context.Context, userID string) ([]domain.Contact, error)
	DeleteContact(ctx context.Context, userID, email string) error
}

// Service manages saved counterparties for one-user-at-a-time operations.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// New constructs the contact directory service.
func New(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock overrides the time source, for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Save records (or renames) a counterparty. Emails are stored lowercased and
// trimmed so repeated saves converge on one row.
func (s *Service) Save(ctx context.Context, userID, email, name string) (domain.Contact, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Contact{}, &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Contact{}, &domain.ValidationError{Field: "name", Reason: "is required"}
	}

	c := domain.Contact{
		ID:        s.newID(),
		UserID:    userID,
		Email:     email,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.UpsertContact(ctx, c); err != nil {
		return domain.Contact{}, fmt.Errorf("save contact: %w", err)
	}
	return c, nil
}

// List returns every saved counterparty for the user.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Contact, error) {
	contacts, err := s.repo.Contacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// Delete removes a saved counterparty. Existing deposits keep the email
// denormalized on their rows and are unaffected.
func (s *Service) Delete(ctx context.Context, userID, email string) error {
	err := s.repo.DeleteContact(ctx, userID, normalizeEmail(email))
	if errors.Is(err, store.ErrContactNotFound) {
		return &domain.NotFoundError{Kind: "contact", ID: email}
	}
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// Known reports whether the user already saved this counterparty, used to
// suggest saving a contact after a first deposit to a new email.
func (s *Service) Known(ctx context.Context, userID, email string) (bool, error) {
	contacts, err := s.repo.Contacts(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("lookup contact: %w", err)
	}
	for _, c := range contacts {
		if domain.EmailEqual(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// ResolveName returns the saved display name for an email, or the empty
// string when none exists.
func (s *Service) ResolveName(ctx context.Context, userID, email string) (string, error) {
	contacts, err := s.repo.Contacts(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve contact name: %w", err)
	}
	for _, c := range contacts {
		if domain.EmailEqual(c.Email, email) {
			return c.Name, nil
		}
	}
	return "", nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
