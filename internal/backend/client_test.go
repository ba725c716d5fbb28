package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/backend"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) { return "", errors.New("no key") }

func newServer(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL+"/api/", 2*time.Second, staticToken("svc-token"))
}

func TestGetCity_DecodesNestedEnvelope(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/cities/c1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer svc-token" {
			t.Errorf("authorization: got %q", got)
		}
		w.Write([]byte(`{"data":{"data":{"_id":"c1","name":"Amman","deliveryFee":2.5,"isActive":true,"displayOrder":1}}}`))
	})

	city, err := c.GetCity(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get city: %v", err)
	}
	if city.ID != "c1" || city.Name != "Amman" || !city.IsActive {
		t.Errorf("city: %+v", city)
	}
	if !city.DeliveryFee.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("fee: got %s", city.DeliveryFee)
	}
}

func TestGetProduct_DecodesFlatEnvelope(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"_id":"p1","name":"NFC Card","price":35}}`))
	})

	p, err := c.GetProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.ID != "p1" || !p.Price.Equal(decimal.NewFromInt(35)) {
		t.Errorf("product: %+v", p)
	}
}

func TestCreateOrder_SendsJSONBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["paymentMethod"] != "cash" {
			t.Errorf("body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"data":{"_id":"o1","status":"pending"}}}`))
	})

	out, err := c.CreateOrder(context.Background(), map[string]string{"paymentMethod": "cash"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if out.ID != "o1" || out.Status != "pending" {
		t.Errorf("created: %+v", out)
	}
}

func TestErrorResponse_CarriesBackendMessage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"City not served"}`))
	})

	_, err := c.CreateCustomOrder(context.Background(), map[string]string{})
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Message != "City not served" {
		t.Errorf("api error: %+v", apiErr)
	}
}

func TestErrorResponse_NonJSONBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	})

	_, err := c.ListCities(context.Background())
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "" {
		t.Errorf("message should be empty for a non-JSON body, got %q", apiErr.Message)
	}
}

func TestIsNotFound(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"City not found"}`)
	})

	_, err := c.GetCity(context.Background(), "missing")
	if !backend.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if backend.IsNotFound(errors.New("other")) {
		t.Error("plain errors are not 404s")
	}
}

func TestTokenSourceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent without a token")
	}))
	defer srv.Close()

	c := backend.New(srv.URL, time.Second, failingToken{})
	if _, err := c.ListCountries(context.Background()); err == nil {
		t.Fatal("expected token error")
	}
}

func TestAnonymousClientSendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("unexpected authorization header")
		}
		w.Write([]byte(`{"data":{"data":[]}}`))
	}))
	defer srv.Close()

	c := backend.New(srv.URL, time.Second, nil)
	countries, err := c.ListCountries(context.Background())
	if err != nil {
		t.Fatalf("list countries: %v", err)
	}
	if len(countries) != 0 {
		t.Errorf("countries: %v", countries)
	}
}

func TestListOrders_PassesPagination(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("query: got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data":{"data":[{"_id":"o1"},{"_id":"o2"}],"pagination":{"currentPage":2,"totalPages":3,"totalItems":25,"itemsPerPage":10}}}`))
	})

	page, err := c.ListOrders(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Items) != 2 {
		t.Errorf("items: got %d", len(page.Items))
	}
	if page.Pagination.TotalPages != 3 || page.Pagination.TotalItems != 25 {
		t.Errorf("pagination: %+v", page.Pagination)
	}
}

func TestListMessages_FlatEnvelope(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/contact" {
			t.Errorf("request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"_id":"m1"}]}`))
	})

	page, err := c.ListMessages(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(page.Items) != 1 || page.Pagination.TotalItems != 1 || page.Pagination.ItemsPerPage != 20 {
		t.Errorf("page: %+v", page)
	}
}

func TestListCustomOrders_RejectsBadPage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	if _, err := c.ListCustomOrders(context.Background(), 0, 10); err == nil {
		t.Fatal("expected error for page 0")
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := backend.New(srv.URL, 50*time.Millisecond, nil)
	if _, err := c.ListCities(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
}
