package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/backend"
	"github.com/tapcard/storefront/internal/cache"
)

// Errors returned by the fee lookup.
var (
	ErrCityNotFound = errors.New("city not found")
	ErrCityInactive = errors.New("city is not accepting deliveries")
)

// CityStore reads a city from the backend.
// Satisfied by *backend.Client; narrow interface for testability.
type CityStore interface {
	GetCity(ctx context.Context, id string) (backend.City, error)
}

// BackendFeeResolver resolves delivery fees straight from the backend.
type BackendFeeResolver struct {
	cities CityStore
}

// NewBackendFeeResolver creates a BackendFeeResolver.
func NewBackendFeeResolver(cities CityStore) *BackendFeeResolver {
	return &BackendFeeResolver{cities: cities}
}

// ResolveCityFee returns the delivery fee of an active city.
func (r *BackendFeeResolver) ResolveCityFee(ctx context.Context, cityID string) (decimal.Decimal, error) {
	city, err := r.cities.GetCity(ctx, cityID)
	if err != nil {
		if backend.IsNotFound(err) {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrCityNotFound, cityID)
		}
		return decimal.Zero, fmt.Errorf("get city %s: %w", cityID, err)
	}
	if city.IsDeleted || !city.IsActive {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrCityInactive, cityID)
	}
	if city.DeliveryFee.IsNegative() {
		return decimal.Zero, nil
	}
	return city.DeliveryFee, nil
}

// FeeResolver matches wizard.FeeResolver.
type FeeResolver interface {
	ResolveCityFee(ctx context.Context, cityID string) (decimal.Decimal, error)
}

// CachedFeeResolver fronts another resolver with a cache-aside lookup.
// Cache errors are logged and the call falls through to the next resolver;
// failed lookups are never cached. Malformed entries and cities the
// backend no longer delivers to are evicted.
type CachedFeeResolver struct {
	next  FeeResolver
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedFeeResolver creates a CachedFeeResolver.
func NewCachedFeeResolver(next FeeResolver, c cache.Cache, ttl time.Duration) *CachedFeeResolver {
	return &CachedFeeResolver{next: next, cache: c, ttl: ttl}
}

func (r *CachedFeeResolver) ResolveCityFee(ctx context.Context, cityID string) (decimal.Decimal, error) {
	key := r.cache.GenerateKey("city-fee", cityID)

	cached, err := r.cache.Get(ctx, key)
	if err != nil {
		log.Printf("WARN: fee cache get %s: %v", key, err)
	} else if cached != "" {
		if fee, err := decimal.NewFromString(cached); err == nil {
			return fee, nil
		}
		log.Printf("WARN: fee cache holds malformed value for %s: %q", key, cached)
		r.evict(ctx, key)
	}

	fee, err := r.next.ResolveCityFee(ctx, cityID)
	if err != nil {
		if errors.Is(err, ErrCityNotFound) || errors.Is(err, ErrCityInactive) {
			r.evict(ctx, key)
		}
		return decimal.Zero, err
	}
	if err := r.cache.Set(ctx, key, fee.String(), r.ttl); err != nil {
		log.Printf("WARN: fee cache set %s: %v", key, err)
	}
	return fee, nil
}

func (r *CachedFeeResolver) evict(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, key); err != nil {
		log.Printf("WARN: fee cache delete %s: %v", key, err)
	}
}
