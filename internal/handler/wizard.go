package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/session"
	"github.com/tapcard/storefront/internal/wizard"
)

// SessionStore owns the live wizard sessions.
// Satisfied by *session.Manager; narrow interface for testability.
type SessionStore interface {
	Create() (uuid.UUID, *wizard.Controller)
	Get(id uuid.UUID) (*wizard.Controller, error)
	Delete(id uuid.UUID) error
}

// WizardHandler exposes the checkout wizard over HTTP.
type WizardHandler struct {
	sessions SessionStore
}

// NewWizardHandler creates a new WizardHandler.
func NewWizardHandler(sessions SessionStore) *WizardHandler {
	return &WizardHandler{sessions: sessions}
}

// RegisterRoutes registers wizard endpoints on the given Chi router.
func (h *WizardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/wizard/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Patch("/fields", h.UpdateFields)
			r.Post("/next", h.Next)
			r.Post("/previous", h.Previous)
			r.Post("/submit", h.Submit)
		})
	})
}

// --- Request / Response types ---

type sessionResponse struct {
	ID    uuid.UUID    `json:"id"`
	State wizard.State `json:"state"`
}

type updateFieldsRequest struct {
	Updates []wizard.FieldUpdate `json:"updates"`
}

type stepErrorResponse struct {
	Error   string       `json:"error"`
	Step    string       `json:"step"`
	Missing []string     `json:"missing"`
	State   wizard.State `json:"state"`
}

type submitResponse struct {
	OrderID string          `json:"orderId"`
	Total   decimal.Decimal `json:"total"`
	State   wizard.State    `json:"state"`
}

// --- Handlers ---

// Create starts a new checkout session.
func (h *WizardHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, c := h.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, State: c.State()})
}

// Get returns the current state of a session.
func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: c.State()})
}

// Delete abandons a session.
func (h *WizardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateFields merges a batch of field values into the draft.
func (h *WizardHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req updateFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "updates are required"})
		return
	}

	if err := c.UpdateFields(req.Updates); err != nil {
		writeWizardError(w, c, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: c.State()})
}

// Next advances to the next step when the current one is complete.
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := c.Next(); err != nil {
		writeWizardError(w, c, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: c.State()})
}

// Previous moves back one step.
func (h *WizardHandler) Previous(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := c.Previous(); err != nil {
		writeWizardError(w, c, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: c.State()})
}

// Submit places the order from the summary step.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.controller(w, r)
	if !ok {
		return
	}
	receipt, err := c.Submit(r.Context())
	if err != nil {
		writeWizardError(w, c, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{OrderID: receipt.OrderID, Total: receipt.Total, State: c.State()})
}

// --- Helpers ---

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *WizardHandler) controller(w http.ResponseWriter, r *http.Request) (uuid.UUID, *wizard.Controller, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}
	c, err := h.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return uuid.Nil, nil, false
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return uuid.Nil, nil, false
	}
	return id, c, true
}

// writeWizardError maps controller errors to HTTP responses. Backend failure
// details stay in the log; the customer only sees the submission message.
func writeWizardError(w http.ResponseWriter, c *wizard.Controller, err error) {
	var stepErr *wizard.StepError
	switch {
	case errors.As(err, &stepErr):
		writeJSON(w, http.StatusUnprocessableEntity, stepErrorResponse{
			Error:   wizard.ErrStepIncomplete.Error(),
			Step:    stepErr.Verdict.Step.String(),
			Missing: stepErr.Verdict.Missing,
			State:   c.State(),
		})
	case errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, wizard.ErrReadOnlyField),
		errors.Is(err, wizard.ErrInvalidValue):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, wizard.ErrFirstStep),
		errors.Is(err, wizard.ErrNotTerminalStep),
		errors.Is(err, wizard.ErrSubmitInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, wizard.ErrClosed):
		writeJSON(w, http.StatusGone, map[string]string{"error": err.Error()})
	case errors.Is(err, wizard.ErrInvalidStep):
		log.Printf("ERROR: wizard in invalid step: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": wizard.UserMessage(err)})
	}
}
