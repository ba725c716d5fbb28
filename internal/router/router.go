package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tapcard/storefront/internal/config"
	"github.com/tapcard/storefront/internal/enum"
	"github.com/tapcard/storefront/internal/handler"
	mw "github.com/tapcard/storefront/internal/middleware"
	"github.com/tapcard/storefront/internal/session"
	"github.com/tapcard/storefront/internal/ws"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Admins       handler.AdminStore
	Journal      handler.SubmissionLister
	Orders       handler.OrderLister
	Catalog      handler.CatalogReader
	CustomOrders handler.CustomOrderSubmitter
	Sessions     *session.Manager
	Hub          *ws.Hub
}

// New creates a Chi router with all application routes wired up.
// Storefront routes are public; admin routes require an ADMIN token.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(deps.Admins, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (the session id is the credential)
	r.Get("/ws/wizard/{sid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(deps.Hub, deps.Sessions, w, r)
	})

	// Storefront routes
	r.Route("/api", func(r chi.Router) {
		handler.NewCatalogHandler(deps.Catalog).RegisterRoutes(r)
		handler.NewWizardHandler(deps.Sessions).RegisterRoutes(r)
		handler.NewCustomOrderHandler(deps.CustomOrders).RegisterRoutes(r)
	})

	// Admin console routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.AdminRoleAdmin))
		handler.NewAdminHandler(deps.Journal, deps.Orders).RegisterRoutes(r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
