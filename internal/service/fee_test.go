package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/backend"
)

// --- Mock implementations ---

type mockCityStore struct {
	calls     int
	getCityFn func(ctx context.Context, id string) (backend.City, error)
}

func (m *mockCityStore) GetCity(ctx context.Context, id string) (backend.City, error) {
	m.calls++
	return m.getCityFn(ctx, id)
}

// memCache implements cache.Cache over a map.
type memCache struct {
	data    map[string]string
	ttls    map[string]time.Duration
	deleted []string
	getErr  error
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.data[key], nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.data, key)
	return nil
}

func (m *memCache) Ping(context.Context) error {
	return m.getErr
}

func (m *memCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}

func activeCity(fee string) backend.City {
	return backend.City{ID: "c1", Name: "Amman", DeliveryFee: decimal.RequireFromString(fee), IsActive: true}
}

// --- BackendFeeResolver ---

func TestBackendFeeResolver_ActiveCity(t *testing.T) {
	store := &mockCityStore{getCityFn: func(_ context.Context, id string) (backend.City, error) {
		if id != "c1" {
			t.Errorf("city id: got %q", id)
		}
		return activeCity("2"), nil
	}}

	fee, err := NewBackendFeeResolver(store).ResolveCityFee(context.Background(), "c1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !fee.Equal(decimal.NewFromInt(2)) {
		t.Errorf("fee: got %s", fee)
	}
}

func TestBackendFeeResolver_Errors(t *testing.T) {
	tests := []struct {
		name string
		city backend.City
		err  error
		want error
	}{
		{"not found", backend.City{}, &backend.APIError{Status: http.StatusNotFound}, ErrCityNotFound},
		{"inactive", backend.City{ID: "c1", IsActive: false}, nil, ErrCityInactive},
		{"deleted", backend.City{ID: "c1", IsActive: true, IsDeleted: true}, nil, ErrCityInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
				return tt.city, tt.err
			}}
			_, err := NewBackendFeeResolver(store).ResolveCityFee(context.Background(), "c1")
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBackendFeeResolver_TransportErrorWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return backend.City{}, boom
	}}
	_, err := NewBackendFeeResolver(store).ResolveCityFee(context.Background(), "c1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestBackendFeeResolver_NegativeFeeClamped(t *testing.T) {
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return activeCity("-3"), nil
	}}
	fee, err := NewBackendFeeResolver(store).ResolveCityFee(context.Background(), "c1")
	if err != nil || !fee.IsZero() {
		t.Fatalf("got %s, %v", fee, err)
	}
}

// --- CachedFeeResolver ---

func TestCachedFeeResolver_MissThenHit(t *testing.T) {
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return activeCity("2.5"), nil
	}}
	c := newMemCache()
	r := NewCachedFeeResolver(NewBackendFeeResolver(store), c, 10*time.Minute)

	for i := 0; i < 2; i++ {
		fee, err := r.ResolveCityFee(context.Background(), "c1")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if !fee.Equal(decimal.RequireFromString("2.5")) {
			t.Errorf("resolve %d: fee %s", i, fee)
		}
	}

	if store.calls != 1 {
		t.Errorf("backend calls: got %d, want 1", store.calls)
	}
	if c.data["test:city-fee:c1"] != "2.5" {
		t.Errorf("cached value: %q", c.data["test:city-fee:c1"])
	}
	if c.ttls["test:city-fee:c1"] != 10*time.Minute {
		t.Errorf("ttl: %s", c.ttls["test:city-fee:c1"])
	}
}

func TestCachedFeeResolver_CacheDownFallsThrough(t *testing.T) {
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return activeCity("4"), nil
	}}
	c := newMemCache()
	c.getErr = errors.New("redis down")
	c.setErr = errors.New("redis down")

	fee, err := NewCachedFeeResolver(NewBackendFeeResolver(store), c, time.Minute).ResolveCityFee(context.Background(), "c1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !fee.Equal(decimal.NewFromInt(4)) {
		t.Errorf("fee: %s", fee)
	}
}

func TestCachedFeeResolver_FailuresNotCached(t *testing.T) {
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return backend.City{}, errors.New("timeout")
	}}
	c := newMemCache()

	if _, err := NewCachedFeeResolver(NewBackendFeeResolver(store), c, time.Minute).ResolveCityFee(context.Background(), "c1"); err == nil {
		t.Fatal("expected error")
	}
	if len(c.data) != 0 {
		t.Errorf("failure was cached: %v", c.data)
	}
}

func TestCachedFeeResolver_MalformedEntryIgnored(t *testing.T) {
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return activeCity("1"), nil
	}}
	c := newMemCache()
	c.data["test:city-fee:c1"] = "not-a-number"

	fee, err := NewCachedFeeResolver(NewBackendFeeResolver(store), c, time.Minute).ResolveCityFee(context.Background(), "c1")
	if err != nil || !fee.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("got %s, %v", fee, err)
	}
	if store.calls != 1 {
		t.Errorf("backend calls: got %d", store.calls)
	}
}

func TestCachedFeeResolver_MalformedEntryEvictedWhenBackendFails(t *testing.T) {
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return backend.City{}, errors.New("timeout")
	}}
	c := newMemCache()
	c.data["test:city-fee:c1"] = "garbage"

	if _, err := NewCachedFeeResolver(NewBackendFeeResolver(store), c, time.Minute).ResolveCityFee(context.Background(), "c1"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.data["test:city-fee:c1"]; ok {
		t.Errorf("malformed entry still cached: %v", c.data)
	}
}

func TestCachedFeeResolver_EvictsCityNoLongerServed(t *testing.T) {
	tests := []struct {
		name string
		city backend.City
		err  error
		want error
	}{
		{"not found", backend.City{}, &backend.APIError{Status: http.StatusNotFound}, ErrCityNotFound},
		{"inactive", backend.City{ID: "c1", IsActive: false}, nil, ErrCityInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
				return tt.city, tt.err
			}}
			c := newMemCache()
			c.getErr = errors.New("read replica down")
			c.data["test:city-fee:c1"] = "2"

			_, err := NewCachedFeeResolver(NewBackendFeeResolver(store), c, time.Minute).ResolveCityFee(context.Background(), "c1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if len(c.deleted) != 1 || c.deleted[0] != "test:city-fee:c1" {
				t.Errorf("deleted: %v", c.deleted)
			}
		})
	}
}

func TestCachedFeeResolver_TransientFailureKeepsEntry(t *testing.T) {
	store := &mockCityStore{getCityFn: func(context.Context, string) (backend.City, error) {
		return backend.City{}, errors.New("timeout")
	}}
	c := newMemCache()
	c.getErr = errors.New("read replica down")

	NewCachedFeeResolver(NewBackendFeeResolver(store), c, time.Minute).ResolveCityFee(context.Background(), "c1")
	if len(c.deleted) != 0 {
		t.Errorf("transient failure evicted: %v", c.deleted)
	}
}
