package store

import (
	"context"
	"sync"
	"time"

	"github.com/lcardona/depositrack/internal/domain"
)

// MemoryStore is an in-memory implementation of the Store interface used for
// unit testing service logic without a database on disk. It honours the same
// atomicity and set-once guarantees as the SQLite implementation.
type MemoryStore struct {
	mu       sync.Mutex
	deposits map[string]domain.Deposit
	contacts map[string]map[string]domain.Contact // userID -> email -> contact
	err      error
}

// NewMemoryStore instantiates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deposits: make(map[string]domain.Deposit),
		contacts: make(map[string]map[string]domain.Contact),
	}
}

// WithError configures the store to fail every subsequent call with err.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) InsertDeposit(_ context.Context, d domain.Deposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deposits[d.ID] = d
	return nil
}

func (m *MemoryStore) Deposit(_ context.Context, id string) (domain.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Deposit{}, m.err
	}
	d, ok := m.deposits[id]
	if !ok {
		return domain.Deposit{}, ErrDepositNotFound
	}
	return d, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, id string, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	d, ok := m.deposits[id]
	if !ok {
		return ErrDepositNotFound
	}
	if d.Status == domain.StatusRead {
		return nil
	}
	d.Status = domain.StatusRead
	d.ReadAt = &readAt
	m.deposits[id] = d
	return nil
}

func (m *MemoryStore) SetSenderDeleted(_ context.Context, id string, deletedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	d, ok := m.deposits[id]
	if !ok {
		return ErrDepositNotFound
	}
	d.SenderDeletedAt = deletedAt
	m.deposits[id] = d
	return nil
}

func (m *MemoryStore) Deposits(_ context.Context) ([]domain.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Deposit, 0, len(m.deposits))
	for _, d := range m.deposits {
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) PurgeAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deposits = make(map[string]domain.Deposit)
	return nil
}

func (m *MemoryStore) UpsertContact(_ context.Context, c domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	byEmail, ok := m.contacts[c.UserID]
	if !ok {
		byEmail = make(map[string]domain.Contact)
		m.contacts[c.UserID] = byEmail
	}
	if existing, ok := byEmail[c.Email]; ok {
		existing.Name = c.Name
		byEmail[c.Email] = existing
		return nil
	}
	byEmail[c.Email] = c
	return nil
}

func (m *MemoryStore) Contacts(_ context.Context, userID string) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Contact, 0, len(m.contacts[userID]))
	for _, c := range m.contacts[userID] {
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryStore) DeleteContact(_ context.Context, userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	byEmail := m.contacts[userID]
	if _, ok := byEmail[email]; !ok {
		return ErrContactNotFound
	}
	delete(byEmail, email)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MemoryStore) Close() error {
	return nil
}
