package handler

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/backend"
	"github.com/tapcard/storefront/internal/database"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SubmissionLister reads the submission journal.
// Satisfied by *database.Queries; narrow interface for testability.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context, arg database.ListSubmissionsParams) ([]database.Submission, error)
	CountSubmissions(ctx context.Context) (int64, error)
}

// OrderLister reads orders and contact messages kept by the backend.
// Satisfied by *backend.Client; narrow interface for testability.
type OrderLister interface {
	ListOrders(ctx context.Context, page, limit int) (backend.Page, error)
	ListCustomOrders(ctx context.Context, page, limit int) (backend.Page, error)
	ListMessages(ctx context.Context, page, limit int) (backend.Page, error)
}

// AdminHandler serves the admin console's read-only listings.
type AdminHandler struct {
	journal SubmissionLister
	orders  OrderLister
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(journal SubmissionLister, orders OrderLister) *AdminHandler {
	return &AdminHandler{journal: journal, orders: orders}
}

// RegisterRoutes registers admin endpoints on the given Chi router.
// The caller is responsible for authentication.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/submissions", h.ListSubmissions)
	r.Get("/orders", h.ListOrders)
	r.Get("/custom-orders", h.ListCustomOrders)
	r.Get("/messages", h.ListMessages)
}

// --- Response types ---

type submissionResponse struct {
	ID             uuid.UUID       `json:"id"`
	Kind           string          `json:"kind"`
	Status         string          `json:"status"`
	SessionID      *uuid.UUID      `json:"session_id,omitempty"`
	BackendOrderID string          `json:"backend_order_id,omitempty"`
	CustomerName   string          `json:"customer_name"`
	Email          string          `json:"email"`
	Total          string          `json:"total"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
}

type submissionListResponse struct {
	Submissions []submissionResponse `json:"submissions"`
	Pagination  backend.Pagination   `json:"pagination"`
}

// --- Handlers ---

// ListSubmissions returns journal rows, newest first.
func (h *AdminHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePage(r)
	// OFFSET is an int4 in the journal query.
	if page-1 > math.MaxInt32/limit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page out of range"})
		return
	}

	rows, err := h.journal.ListSubmissions(r.Context(), database.ListSubmissionsParams{
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		log.Printf("ERROR: list submissions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	total, err := h.journal.CountSubmissions(r.Context())
	if err != nil {
		log.Printf("ERROR: count submissions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := submissionListResponse{
		Submissions: make([]submissionResponse, len(rows)),
		Pagination: backend.Pagination{
			CurrentPage:  page,
			TotalPages:   int((total + int64(limit) - 1) / int64(limit)),
			TotalItems:   int(total),
			ItemsPerPage: limit,
		},
	}
	for i, s := range rows {
		resp.Submissions[i] = toSubmissionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListOrders returns one page of backend orders.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	h.listBackend(w, r, "orders", "orders", h.orders.ListOrders)
}

// ListCustomOrders returns one page of backend company orders.
func (h *AdminHandler) ListCustomOrders(w http.ResponseWriter, r *http.Request) {
	h.listBackend(w, r, "custom orders", "orders", h.orders.ListCustomOrders)
}

// ListMessages returns one page of contact-form messages.
func (h *AdminHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	h.listBackend(w, r, "messages", "messages", h.orders.ListMessages)
}

func (h *AdminHandler) listBackend(w http.ResponseWriter, r *http.Request, what, key string, list func(ctx context.Context, page, limit int) (backend.Page, error)) {
	page, limit := parsePage(r)
	p, err := list(r.Context(), page, limit)
	if err != nil {
		log.Printf("ERROR: list %s: %v", what, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backend unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		key:          p.Items,
		"pagination": p.Pagination,
	})
}

// --- Helpers ---

// parsePage reads 1-based page and limit query params. Bad values fall back
// to the defaults.
func parsePage(r *http.Request) (page, limit int) {
	page, limit = 1, defaultPageSize
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func toSubmissionResponse(s database.Submission) submissionResponse {
	resp := submissionResponse{
		ID:           s.ID,
		Kind:         s.Kind,
		Status:       s.Status,
		CustomerName: s.CustomerName,
		Email:        s.Email,
		Total:        numericToString(s.Total),
		Payload:      json.RawMessage(s.Payload),
		CreatedAt:    s.CreatedAt,
	}
	if s.SessionID.Valid {
		id := uuid.UUID(s.SessionID.Bytes)
		resp.SessionID = &id
	}
	if s.BackendOrderID.Valid {
		resp.BackendOrderID = s.BackendOrderID.String
	}
	if s.ErrorMessage.Valid {
		resp.ErrorMessage = s.ErrorMessage.String
	}
	if len(s.Payload) == 0 {
		resp.Payload = json.RawMessage(`null`)
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
