package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lcardona/depositrack/internal/admin"
	"github.com/lcardona/depositrack/internal/contacts"
	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/feed"
	"github.com/lcardona/depositrack/internal/ledger"
	"github.com/lcardona/depositrack/internal/report"
	"github.com/lcardona/depositrack/internal/view"
	"github.com/lcardona/depositrack/internal/vouchers"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger     *slog.Logger
	ledger     *ledger.Service
	contacts   *contacts.Service
	engine     *view.Engine
	admin      *admin.Service
	reconciler *feed.Reconciler
	storage    vouchers.Storage
	now        func() time.Time
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(
	logger *slog.Logger,
	ledgerSvc *ledger.Service,
	contactSvc *contacts.Service,
	engine *view.Engine,
	adminSvc *admin.Service,
	reconciler *feed.Reconciler,
	storage vouchers.Storage,
) *APIHandlers {
	return &APIHandlers{
		logger:     logger,
		ledger:     ledgerSvc,
		contacts:   contactSvc,
		engine:     engine,
		admin:      adminSvc,
		reconciler: reconciler,
		storage:    storage,
		now:        time.Now,
	}
}

// WithClock overrides the time source, for deterministic tests.
func (h *APIHandlers) WithClock(now func() time.Time) *APIHandlers {
	h.now = now
	return h
}

func (h *APIHandlers) handleDeposits(w http.ResponseWriter, r *http.Request) {
	viewer, ok := identityFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "viewer identity is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.createDeposit(w, r, viewer)
	case http.MethodGet:
		h.listDeposits(w, r, viewer)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) createDeposit(w http.ResponseWriter, r *http.Request, viewer domain.Identity) {
	var payload createDepositRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	voucher, err := payload.voucherBytes()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var depositDate time.Time
	if payload.DepositDate != "" {
		depositDate, err = time.Parse(time.DateOnly, payload.DepositDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid depositDate: expected YYYY-MM-DD")
			return
		}
	}

	d, err := h.ledger.Create(r.Context(), viewer, ledger.CreateInput{
		RecipientEmail: payload.RecipientEmail,
		Amount:         payload.Amount,
		DepositDate:    depositDate,
		Observation:    payload.Observation,
		Voucher:        voucher,
	})
	if err != nil {
		if domain.IsValidation(err) || domain.IsAuthorization(err) {
			writeDomainError(w, err)
			return
		}
		h.logger.Error("failed to create deposit", "error", err, "sender", viewer.ID)
		writeDomainError(w, err)
		return
	}

	known, err := h.contacts.Known(r.Context(), viewer.ID, d.RecipientEmail)
	if err != nil {
		// The suggestion is cosmetic; the deposit already exists.
		h.logger.Warn("contact lookup failed", "error", err, "sender", viewer.ID)
		known = true
	}

	respondJSON(w, http.StatusCreated, createDepositResponse{
		Deposit:          toDepositResponse(d),
		ContactSuggested: !known,
	})
}

func (h *APIHandlers) listDeposits(w http.ResponseWriter, r *http.Request, viewer domain.Identity) {
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

	resolved, err := h.engine.ResolveView(r.Context(), viewer, partition, filters)
	if err != nil {
		h.logger.Error("failed to resolve view", "error", err, "viewer", viewer.ID, "partition", string(partition))
		writeError(w, http.StatusInternalServerError, "failed to resolve view")
		return
	}

	respondJSON(w, http.StatusOK, toViewResponse(resolved))
}

// handleDepositAction routes /deposits/{id}/{confirm|trash|restore}.
func (h *APIHandlers) handleDepositAction(w http.ResponseWriter, r *http.Request) {
	viewer, ok := identityFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "viewer identity is required")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/deposits/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "expected /deposits/{id}/{confirm|trash|restore}")
		return
	}
	id, action := parts[0], parts[1]

	var err error
	switch action {
	case "confirm":
		err = h.ledger.Confirm(r.Context(), id)
	case "trash":
		err = h.ledger.SoftDelete(r.Context(), viewer, id)
	case "restore":
		err = h.ledger.Restore(r.Context(), viewer, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", action))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: id})
}

func (h *APIHandlers) handleExport(w http.ResponseWriter, r *http.Request) {
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

	resolved, err := h.engine.ResolveView(r.Context(), viewer, partition, filters)
	if err != nil {
		h.logger.Error("failed to resolve view for export", "error", err, "viewer", viewer.ID)
		writeError(w, http.StatusInternalServerError, "failed to resolve view")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=deposits-%s.csv", partition))
	if err := report.WriteCSV(r.Context(), w, viewer, resolved, h.storage); err != nil {
		h.logger.Error("failed to write export", "error", err, "viewer", viewer.ID)
	}
}

func (h *APIHandlers) handleContacts(w http.ResponseWriter, r *http.Request) {
	viewer, ok := identityFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "viewer identity is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.contacts.List(r.Context(), viewer.ID)
		if err != nil {
			h.logger.Error("failed to list contacts", "error", err, "viewer", viewer.ID)
			writeError(w, http.StatusInternalServerError, "failed to list contacts")
			return
		}
		out := make([]contactResponse, 0, len(list))
		for _, c := range list {
			out = append(out, contactResponse{ID: c.ID, Email: c.Email, Name: c.Name})
		}
		respondJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var payload contactRequest
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c, err := h.contacts.Save(r.Context(), viewer.ID, payload.Email, payload.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, contactResponse{ID: c.ID, Email: c.Email, Name: c.Name})

	case http.MethodDelete:
		email := r.URL.Query().Get("email")
		if email == "" {
			writeError(w, http.StatusBadRequest, "email query parameter is required")
			return
		}
		if err := h.contacts.Delete(r.Context(), viewer.ID, email); err != nil {
			writeDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (h *APIHandlers) handleRollup(w http.ResponseWriter, r *http.Request) {
	viewer, ok := identityFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "viewer identity is required")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if !viewer.IsAdmin() {
		writeError(w, http.StatusForbidden, "the rollup requires the admin role")
		return
	}

	rollup, err := h.admin.Rollup(r.Context(), h.now())
	if err != nil {
		h.logger.Error("failed to compute rollup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute rollup")
		return
	}

	series := make([]monthBucketResponse, 0, len(rollup.MonthlySeries))
	for _, b := range rollup.MonthlySeries {
		series = append(series, monthBucketResponse{
			Year:   b.Year,
			Month:  int(b.Month),
			Label:  b.Label,
			Amount: b.Amount.String(),
		})
	}
	recent := make([]depositResponse, 0, len(rollup.RecentTop10))
	for _, d := range rollup.RecentTop10 {
		recent = append(recent, toDepositResponse(d))
	}

	respondJSON(w, http.StatusOK, rollupResponse{
		TotalAmount:   rollup.TotalAmount.String(),
		TodayAmount:   rollup.TodayAmount.String(),
		MonthAmount:   rollup.MonthAmount.String(),
		TotalCount:    rollup.TotalCount,
		PendingCount:  rollup.PendingCount,
		MonthlySeries: series,
		RecentTop10:   recent,
	})
}

func (h *APIHandlers) handlePurge(w http.ResponseWriter, r *http.Request) {
	viewer, ok := identityFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "viewer identity is required")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := h.ledger.PurgeAll(r.Context(), viewer); err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "purged"})
}
