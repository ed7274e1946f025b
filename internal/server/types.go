package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lcardona/depositrack/internal/domain"
	"github.com/lcardona/depositrack/internal/view"
)

type createDepositRequest struct {
	RecipientEmail string `json:"recipientEmail"`
	Amount         string `json:"amount"`
	DepositDate    string `json:"depositDate"` // YYYY-MM-DD
	Observation    string `json:"observation"`
	Voucher        string `json:"voucher"` // base64 image bytes, optional
}

func (r createDepositRequest) voucherBytes() ([]byte, error) {
	if r.Voucher == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(r.Voucher)
	if err != nil {
		return nil, errors.New("voucher must be base64 encoded")
	}
	return data, nil
}

type createDepositResponse struct {
	Deposit          depositResponse `json:"deposit"`
	ContactSuggested bool            `json:"contactSuggested"`
}

type depositResponse struct {
	ID              string  `json:"id"`
	SenderID        string  `json:"senderId"`
	SenderEmail     string  `json:"senderEmail"`
	SenderName      string  `json:"senderName,omitempty"`
	RecipientEmail  string  `json:"recipientEmail"`
	Amount          string  `json:"amount"`
	DepositDate     string  `json:"depositDate"`
	VoucherRef      string  `json:"voucherRef,omitempty"`
	Status          string  `json:"status"`
	ReadAt          *string `json:"readAt,omitempty"`
	Observation     string  `json:"observation,omitempty"`
	SenderDeletedAt *string `json:"senderDeletedAt,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

type viewResponse struct {
	Records []depositResponse `json:"records"`
	Total   string            `json:"total"`
}

type contactRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type contactResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type monthBucketResponse struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type rollupResponse struct {
	TotalAmount   string                `json:"totalAmount"`
	TodayAmount   string                `json:"todayAmount"`
	MonthAmount   string                `json:"monthAmount"`
	TotalCount    int                   `json:"totalCount"`
	PendingCount  int                   `json:"pendingCount"`
	MonthlySeries []monthBucketResponse `json:"monthlySeries"`
	RecentTop10   []depositResponse     `json:"recentTop10"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toDepositResponse(d domain.Deposit) depositResponse {
	return depositResponse{
		ID:              d.ID,
		SenderID:        d.SenderID,
		SenderEmail:     d.SenderEmail,
		SenderName:      d.SenderName,
		RecipientEmail:  d.RecipientEmail,
		Amount:          d.Amount.String(),
		DepositDate:     d.BucketDate().Format(time.DateOnly),
		VoucherRef:      d.VoucherRef,
		Status:          string(d.Status),
		ReadAt:          formatTimePtr(d.ReadAt),
		Observation:     d.Observation,
		SenderDeletedAt: formatTimePtr(d.SenderDeletedAt),
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
	}
}

func toViewResponse(resolved view.Resolved) viewResponse {
	records := make([]depositResponse, 0, len(resolved.Records))
	for _, d := range resolved.Records {
		records = append(records, toDepositResponse(d))
	}
	return viewResponse{Records: records, Total: resolved.Total.String()}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsAuthorization(err):
		writeError(w, http.StatusForbidden, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case domain.IsTransient(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseFilters reads the optional view filters off the query string.
func parseFilters(r *http.Request) (view.Filters, error) {
	query := r.URL.Query()
	filters := view.Filters{
		CounterpartyEmail: strings.TrimSpace(query.Get("counterparty")),
	}

	for name, target := range map[string]**time.Time{
		"dateStart": &filters.DateStart,
		"dateEnd":   &filters.DateEnd,
	} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return view.Filters{}, fmt.Errorf("invalid %s: expected YYYY-MM-DD", name)
		}
		*target = &t
	}

	return filters, nil
}
