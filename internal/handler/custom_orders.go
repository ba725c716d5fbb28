package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tapcard/storefront/internal/backend"
	"github.com/tapcard/storefront/internal/service"
	"github.com/tapcard/storefront/internal/wizard"
)

// CustomOrderSubmitter places bulk company orders.
// Satisfied by *service.SubmissionService; narrow interface for testability.
type CustomOrderSubmitter interface {
	SubmitCustomOrder(ctx context.Context, d service.CompanyOrderDraft) (backend.CreatedOrder, error)
}

// CustomOrderHandler handles the bulk-order intake form.
type CustomOrderHandler struct {
	submitter CustomOrderSubmitter
}

// NewCustomOrderHandler creates a new CustomOrderHandler.
func NewCustomOrderHandler(submitter CustomOrderSubmitter) *CustomOrderHandler {
	return &CustomOrderHandler{submitter: submitter}
}

// RegisterRoutes registers custom order endpoints on the given Chi router.
func (h *CustomOrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/custom-orders", h.Create)
}

type customOrderResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Create submits a company order request.
func (h *CustomOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CompanyOrderDraft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	created, err := h.submitter.SubmitCustomOrder(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrCompanyOrderInvalid) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("WARN: custom order submission failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": wizard.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusCreated, customOrderResponse{
		ID:      created.ID,
		Status:  created.Status,
		Message: "Thank you! Our team will contact you shortly.",
	})
}
