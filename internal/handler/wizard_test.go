package handler_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/backend"
	"github.com/tapcard/storefront/internal/handler"
	"github.com/tapcard/storefront/internal/service"
	"github.com/tapcard/storefront/internal/session"
	"github.com/tapcard/storefront/internal/wizard"
)

// --- Fakes ---

type fixedFees map[string]decimal.Decimal

func (f fixedFees) ResolveCityFee(_ context.Context, cityID string) (decimal.Decimal, error) {
	return f[cityID], nil
}

type mockSubmitter struct {
	calls    atomic.Int32
	submitFn func(ctx context.Context, d wizard.OrderDraft) (wizard.Receipt, error)
}

func (m *mockSubmitter) SubmitOrder(ctx context.Context, d wizard.OrderDraft) (wizard.Receipt, error) {
	m.calls.Add(1)
	return m.submitFn(ctx, d)
}

type wizardEnv struct {
	router   http.Handler
	sessions *session.Manager
	sub      *mockSubmitter
}

func newWizardEnv(t *testing.T) *wizardEnv {
	t.Helper()
	sub := &mockSubmitter{submitFn: func(_ context.Context, d wizard.OrderDraft) (wizard.Receipt, error) {
		return wizard.Receipt{OrderID: "ord-1", Total: d.Quote().Total}, nil
	}}
	fees := fixedFees{"city-amman": decimal.NewFromInt(2)}
	sessions := session.NewManager(func(uuid.UUID) *wizard.Controller {
		return wizard.NewController(fees, sub, nil)
	}, time.Hour)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.NewWizardHandler(sessions).RegisterRoutes(r)
	})
	return &wizardEnv{router: r, sessions: sessions, sub: sub}
}

func (e *wizardEnv) create(t *testing.T) string {
	t.Helper()
	rr := postJSON(t, e.router, "/api/wizard/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	id, _ := resp["id"].(string)
	if id == "" {
		t.Fatal("expected session id")
	}
	return id
}

func (e *wizardEnv) patch(t *testing.T, sid string, updates ...wizard.FieldUpdate) {
	t.Helper()
	rr := doRequest(t, e.router, "PATCH", "/api/wizard/sessions/"+sid+"/fields", map[string]interface{}{"updates": updates})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: status %d; body: %s", rr.Code, rr.Body.String())
	}
}

func (e *wizardEnv) next(t *testing.T, sid string) {
	t.Helper()
	rr := postJSON(t, e.router, "/api/wizard/sessions/"+sid+"/next", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("next: status %d; body: %s", rr.Code, rr.Body.String())
	}
}

// settle waits for the session's fee lookups to finish.
func (e *wizardEnv) settle(t *testing.T, sid string) {
	t.Helper()
	c, err := e.sessions.Get(uuid.MustParse(sid))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	c.Wait()
}

func (e *wizardEnv) walkToSummary(t *testing.T, sid string) {
	t.Helper()
	e.patch(t, sid,
		wizard.FieldUpdate{Path: wizard.PathFirstName, Value: "Lina"},
		wizard.FieldUpdate{Path: wizard.PathLastName, Value: "K"},
		wizard.FieldUpdate{Path: wizard.PathEmail, Value: "lina@x.com"},
		wizard.FieldUpdate{Path: wizard.PathPhoneNumbers, Value: []string{"0791234567"}},
	)
	e.next(t, sid)
	e.patch(t, sid,
		wizard.FieldUpdate{Path: wizard.PathNameOnCard, Value: "Lina K"},
		wizard.FieldUpdate{Path: wizard.PathColor, Value: "black"},
	)
	e.next(t, sid)
	e.patch(t, sid,
		wizard.FieldUpdate{Path: wizard.PathCountry, Value: "JO"},
		wizard.FieldUpdate{Path: wizard.PathCityID, Value: "city-amman"},
		wizard.FieldUpdate{Path: wizard.PathCity, Value: "Amman"},
		wizard.FieldUpdate{Path: wizard.PathAddressLine1, Value: "12 Rainbow St"},
		wizard.FieldUpdate{Path: wizard.PathUseSameContact, Value: true},
	)
	e.settle(t, sid)
	e.next(t, sid)
	e.next(t, sid)
}

func stateOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	state, ok := resp["state"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected state object in response: %v", resp)
	}
	return state
}

// --- Tests ---

func TestWizard_CreateAndGet(t *testing.T) {
	env := newWizardEnv(t)
	sid := env.create(t)

	rr := doRequest(t, env.router, "GET", "/api/wizard/sessions/"+sid, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	state := stateOf(t, decodeResponse(t, rr))
	if state["currentStep"] != float64(1) {
		t.Errorf("currentStep: got %v", state["currentStep"])
	}
	quote := state["quote"].(map[string]interface{})
	if quote["total"] != "35" {
		t.Errorf("initial total: got %v, want 35", quote["total"])
	}
}

func TestWizard_UnknownAndInvalidSession(t *testing.T) {
	env := newWizardEnv(t)

	rr := doRequest(t, env.router, "GET", "/api/wizard/sessions/"+uuid.New().String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown session: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	rr = doRequest(t, env.router, "GET", "/api/wizard/sessions/abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestWizard_NextBlockedReportsMissingFields(t *testing.T) {
	env := newWizardEnv(t)
	sid := env.create(t)

	rr := postJSON(t, env.router, "/api/wizard/sessions/"+sid+"/next", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	resp := decodeResponse(t, rr)
	missing, _ := resp["missing"].([]interface{})
	if len(missing) == 0 {
		t.Error("expected missing fields")
	}
	if stateOf(t, resp)["currentStep"] != float64(1) {
		t.Error("step should not advance")
	}
}

func TestWizard_FieldUpdateErrors(t *testing.T) {
	env := newWizardEnv(t)
	sid := env.create(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"unknown field", map[string]interface{}{"updates": []wizard.FieldUpdate{{Path: "personalInfo.age", Value: "3"}}}, http.StatusBadRequest},
		{"computed field", map[string]interface{}{"updates": []wizard.FieldUpdate{{Path: wizard.PathCityFee, Value: "0"}}}, http.StatusBadRequest},
		{"wrong type", map[string]interface{}{"updates": []wizard.FieldUpdate{{Path: wizard.PathFirstName, Value: 42}}}, http.StatusBadRequest},
		{"empty batch", map[string]interface{}{"updates": []wizard.FieldUpdate{}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, env.router, "PATCH", "/api/wizard/sessions/"+sid+"/fields", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestWizard_PreviousAtFirstStep(t *testing.T) {
	env := newWizardEnv(t)
	sid := env.create(t)

	rr := postJSON(t, env.router, "/api/wizard/sessions/"+sid+"/previous", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestWizard_SubmitBeforeSummary(t *testing.T) {
	env := newWizardEnv(t)
	sid := env.create(t)

	rr := postJSON(t, env.router, "/api/wizard/sessions/"+sid+"/submit", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	if env.sub.calls.Load() != 0 {
		t.Error("backend should not be called")
	}
}

func TestWizard_FullCheckout(t *testing.T) {
	env := newWizardEnv(t)
	sid := env.create(t)
	env.walkToSummary(t, sid)

	rr := postJSON(t, env.router, "/api/wizard/sessions/"+sid+"/submit", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["orderId"] != "ord-1" {
		t.Errorf("orderId: got %v", resp["orderId"])
	}
	if resp["total"] != "37" {
		t.Errorf("total: got %v, want 37", resp["total"])
	}
	state := stateOf(t, resp)
	if state["currentStep"] != float64(1) {
		t.Errorf("wizard should reset, step %v", state["currentStep"])
	}
	if env.sub.calls.Load() != 1 {
		t.Errorf("backend calls: got %d, want 1", env.sub.calls.Load())
	}
}

func TestWizard_SubmitFailureShowsBackendMessage(t *testing.T) {
	env := newWizardEnv(t)
	env.sub.submitFn = func(context.Context, wizard.OrderDraft) (wizard.Receipt, error) {
		return wizard.Receipt{}, &service.SubmitError{
			Status:  http.StatusBadRequest,
			Message: "City not served",
			Err:     &backend.APIError{Status: http.StatusBadRequest, Message: "City not served"},
		}
	}
	sid := env.create(t)
	env.walkToSummary(t, sid)

	rr := postJSON(t, env.router, "/api/wizard/sessions/"+sid+"/submit", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "City not served" {
		t.Errorf("error: got %v", resp["error"])
	}

	rr = doRequest(t, env.router, "GET", "/api/wizard/sessions/"+sid, nil)
	state := stateOf(t, decodeResponse(t, rr))
	if state["currentStep"] != float64(5) {
		t.Errorf("draft should stay on summary, step %v", state["currentStep"])
	}
}

func TestWizard_Delete(t *testing.T) {
	env := newWizardEnv(t)
	sid := env.create(t)

	rr := doRequest(t, env.router, "DELETE", "/api/wizard/sessions/"+sid, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	rr = doRequest(t, env.router, "DELETE", "/api/wizard/sessions/"+sid, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
