package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/backend"
	"golang.org/x/sync/errgroup"
)

// CatalogStore reads the product and delivery catalog from the backend.
// Satisfied by *backend.Client; narrow interface for testability.
type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (backend.Product, error)
	ListCountries(ctx context.Context) ([]backend.Country, error)
	ListCities(ctx context.Context) ([]backend.City, error)
}

// CatalogCity is a deliverable city as shown in the delivery step.
type CatalogCity struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
}

// CatalogCountry is a deliverable country with its active cities.
type CatalogCountry struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Code   string        `json:"code"`
	Cities []CatalogCity `json:"cities"`
}

// CatalogService serves the storefront's product and delivery catalog.
type CatalogService struct {
	store     CatalogStore
	productID string
}

// NewCatalogService creates a CatalogService for the given product.
func NewCatalogService(store CatalogStore, productID string) *CatalogService {
	return &CatalogService{store: store, productID: productID}
}

// Product returns the NFC card product.
func (s *CatalogService) Product(ctx context.Context) (backend.Product, error) {
	p, err := s.store.GetProduct(ctx, s.productID)
	if err != nil {
		return backend.Product{}, fmt.Errorf("get product %s: %w", s.productID, err)
	}
	return p, nil
}

// Countries returns active countries, each with its active cities, both
// sorted by display order. Countries and cities are fetched concurrently.
func (s *CatalogService) Countries(ctx context.Context) ([]CatalogCountry, error) {
	g, ctx := errgroup.WithContext(ctx)

	var countries []backend.Country
	var cities []backend.City
	g.Go(func() error {
		var err error
		countries, err = s.store.ListCountries(ctx)
		if err != nil {
			return fmt.Errorf("list countries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cities, err = s.store.ListCities(ctx)
		if err != nil {
			return fmt.Errorf("list cities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildCatalog(countries, cities), nil
}

func buildCatalog(countries []backend.Country, cities []backend.City) []CatalogCountry {
	active := make([]backend.Country, 0, len(countries))
	for _, c := range countries {
		if c.IsActive && !c.IsDeleted {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].DisplayOrder < active[j].DisplayOrder
	})

	byCountry := make(map[string][]backend.City)
	for _, c := range cities {
		if !c.IsActive || c.IsDeleted {
			continue
		}
		byCountry[c.Country.ID] = append(byCountry[c.Country.ID], c)
	}

	out := make([]CatalogCountry, 0, len(active))
	for _, country := range active {
		list := byCountry[country.ID]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].DisplayOrder < list[j].DisplayOrder
		})
		entry := CatalogCountry{
			ID:     country.ID,
			Name:   country.Name,
			Code:   country.Code,
			Cities: make([]CatalogCity, 0, len(list)),
		}
		for _, c := range list {
			fee := c.DeliveryFee
			if fee.IsNegative() {
				fee = decimal.Zero
			}
			entry.Cities = append(entry.Cities, CatalogCity{ID: c.ID, Name: c.Name, DeliveryFee: fee})
		}
		out = append(out, entry)
	}
	return out
}
