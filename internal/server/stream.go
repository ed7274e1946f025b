package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/view"
)

// noticeQueue buffers one-shot notices without bound. Unlike refreshes,
// a notice is never replayed, so dropping one loses it for good.
type noticeQueue struct {
	mu      sync.Mutex
	pending []domain.Deposit
	signal  chan struct{}
}

func newNoticeQueue() *noticeQueue {
	return &noticeQueue{signal: make(chan struct{}, 1)}
}

func (q *noticeQueue) push(d domain.Deposit) {
	q.mu.Lock()
	q.pending = append(q.pending, d)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *noticeQueue) drain() []domain.Deposit {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// handleStream attaches the viewer to the change feed over server-sent
// events. Every ledger change re-resolves and replays the viewer's full view
// as a "refresh" event; newly received deposits additionally produce a
// one-shot "notice" event. The underlying subscription is released when the
// client disconnects.
func (h *APIHandlers) handleStream(w http.ResponseWriter, r *http.Request) {
	viewer, ok := identityFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "viewer identity is required")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	partition, ok := domain.ParsePartition(r.URL.Query().Get("partition"))
	if !ok {
		writeError(w, http.StatusBadRequest, "partition must be one of sent, received, trash")
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// The reconciler invokes callbacks off the request goroutine. Refreshes
	// go through a bounded channel: a slow viewer drops intermediate ones,
	// and the next full view restores consistency. Notices queue without
	// bound because each is delivered exactly once.
	refreshes := make(chan view.Resolved, 8)
	notices := newNoticeQueue()
	sub := h.reconciler.Subscribe(viewer, partition, filters,
		func(resolved view.Resolved) {
			select {
			case refreshes <- resolved:
			default:
			}
		},
		notices.push,
	)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	write := func(event string, data any) bool {
		payload, err := json.Marshal(data)
		if err != nil {
			h.logger.Error("failed to encode stream payload", "error", err, "viewer", viewer.ID)
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-notices.signal:
			for _, d := range notices.drain() {
				if !write("notice", toDepositResponse(d)) {
					return
				}
			}
		case resolved := <-refreshes:
			if !write("refresh", toViewResponse(resolved)) {
				return
			}
		}
	}
}
