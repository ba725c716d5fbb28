package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tapcard/storefront/internal/backend"
	"github.com/tapcard/storefront/internal/service"
)

// CatalogReader serves the product and delivery catalog.
// Satisfied by *service.CatalogService; narrow interface for testability.
type CatalogReader interface {
	Product(ctx context.Context) (backend.Product, error)
	Countries(ctx context.Context) ([]service.CatalogCountry, error)
}

// CatalogHandler exposes catalog reads to the storefront.
type CatalogHandler struct {
	catalog CatalogReader
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog/product", h.Product)
	r.Get("/catalog/countries", h.Countries)
}

// Product returns the NFC card product.
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context())
	if err != nil {
		if backend.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: load product: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Countries returns deliverable countries with their cities.
func (h *CatalogHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.catalog.Countries(r.Context())
	if err != nil {
		log.Printf("ERROR: load countries: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"countries": countries})
}
