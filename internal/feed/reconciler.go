package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/view"
)

// Resolver re-derives a viewer's visible set. Satisfied by *view.Engine.
type Resolver interface {
	ResolveView(ctx context.Context, viewer domain.Identity, partition domain.Partition, filters view.Filters) (view.Resolved, error)
}

// Reconciler keeps every subscribed viewer consistent with the ledger. Each
// change event triggers a full recompute of each subscription's view rather
// than an incremental patch, which makes duplicate and out-of-order delivery
// harmless. Recomputes are debounced so a burst of events yields one refresh.
type Reconciler struct {
	resolver Resolver
	bus      *Bus
	logger   *slog.Logger
	debounce time.Duration

	mu        sync.Mutex
	subs      map[string]*Subscription
	busHandle string
	closed    bool
}

// NewReconciler wires a reconciler to the bus. Close must be called to
// release the bus subscription.
func NewReconciler(resolver Resolver, bus *Bus, logger *slog.Logger, debounce time.Duration) *Reconciler {
	if debounce <= 0 {
		debounce = 50 * time.Millisecond
	}
	r := &Reconciler{
		resolver: resolver,
		bus:      bus,
		logger:   logger.With("component", "reconciler"),
		debounce: debounce,
		subs:     make(map[string]*Subscription),
	}
	r.busHandle = bus.Subscribe(TableDeposits, r.onEvent)
	return r
}

// Subscription is one viewer's live attachment to the change feed. Close it
// when the dashboard it backs is torn down; a leaked subscription keeps a
// goroutine alive.
type Subscription struct {
	id        string
	viewer    domain.Identity
	partition domain.Partition
	filters   view.Filters
	onRefresh func(view.Resolved)
	onNotice  func(domain.Deposit)

	mu      sync.Mutex
	noticed map[string]struct{} // deposit ids already announced

	kick      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	detach    func()
}

// Close releases the subscription and stops its refresh goroutine.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.detach()
		close(s.done)
	})
}

// Subscribe attaches a viewer to the feed. onRefresh receives the full
// re-resolved view (including one initial delivery); onNotice fires exactly
// once per newly inserted deposit addressed to the viewer, and may be nil.
func (r *Reconciler) Subscribe(viewer domain.Identity, partition domain.Partition, filters view.Filters, onRefresh func(view.Resolved), onNotice func(domain.Deposit)) *Subscription {
	sub := &Subscription{
		id:        uuid.NewString(),
		viewer:    viewer,
		partition: partition,
		filters:   filters,
		onRefresh: onRefresh,
		onNotice:  onNotice,
		noticed:   make(map[string]struct{}),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	sub.detach = func() { r.remove(sub.id) }

	r.mu.Lock()
	r.subs[sub.id] = sub
	r.mu.Unlock()

	go r.run(sub)
	sub.schedule()
	return sub
}

// Close tears down the reconciler and every remaining subscription.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	r.bus.Unsubscribe(TableDeposits, r.busHandle)
	for _, s := range subs {
		s.Close()
	}
}

func (r *Reconciler) remove(id string) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

func (r *Reconciler) onEvent(e Event) {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		if e.Type == EventInsert {
			s.maybeNotice(e.Row)
		}
		s.schedule()
	}
}

// maybeNotice announces a newly received deposit at most once per row id, so
// redelivered inserts and later updates never replay the notice.
func (s *Subscription) maybeNotice(row domain.Deposit) {
	if s.onNotice == nil || row.ID == "" {
		return
	}
	if row.SenderID == s.viewer.ID || !domain.EmailEqual(row.RecipientEmail, s.viewer.Email) {
		return
	}

	s.mu.Lock()
	_, seen := s.noticed[row.ID]
	if !seen {
		s.noticed[row.ID] = struct{}{}
	}
	s.mu.Unlock()

	if !seen {
		s.onNotice(row)
	}
}

func (s *Subscription) schedule() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (r *Reconciler) run(sub *Subscription) {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.kick:
		}

		// Absorb the rest of the burst before recomputing.
		timer := time.NewTimer(r.debounce)
	drain:
		for {
			select {
			case <-sub.done:
				timer.Stop()
				return
			case <-sub.kick:
			case <-timer.C:
				break drain
			}
		}

		resolved, err := r.resolver.ResolveView(context.Background(), sub.viewer, sub.partition, sub.filters)
		if err != nil {
			r.logger.Error("view recompute failed",
				"error", err,
				"viewer", sub.viewer.ID,
				"partition", string(sub.partition),
			)
			continue
		}
		sub.onRefresh(resolved)
	}
}
