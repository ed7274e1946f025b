// Package feed carries row-level change events from ledger mutations to the
// per-viewer reconciler. Delivery is at-least-once and unordered across
// distinct rows; consumers must treat every event as a trigger to recompute,
// never as a diff to apply.
package feed

import (
	"sync"

	"github.com/google/uuid"

	"github.com/lcardona/depositrack/internal/domain"
)

// EventType classifies a row-level change.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// TableDeposits is the only table the core publishes changes for.
const TableDeposits = "deposits"

// Event is one change notification. For delete events covering the whole
// table (the administrative purge) Row is the zero Deposit.
type Event struct {
	Type  EventType
	Table string
	Row   domain.Deposit
}

// Handler consumes events. Handlers must return quickly; long work belongs on
// the subscriber's own goroutine.
type Handler func(Event)

// Bus is an in-process change feed. It fans every published event out to all
// handlers subscribed to the event's table.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler // table -> handle -> handler
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[string]Handler),
	}
}

// Subscribe registers a handler for all events on table and returns an opaque
// handle for Unsubscribe.
func (b *Bus) Subscribe(table string, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	byHandle, ok := b.handlers[table]
	if !ok {
		byHandle = make(map[string]Handler)
		b.handlers[table] = byHandle
	}
	handle := uuid.NewString()
	byHandle[handle] = h
	return handle
}

// Unsubscribe releases a subscription. Unknown handles are ignored.
func (b *Bus) Unsubscribe(table, handle string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[table], handle)
}

// Publish delivers the event to every handler subscribed to its table.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[e.Table]))
	for _, h := range b.handlers[e.Table] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
