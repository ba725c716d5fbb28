package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tapcard/storefront/internal/auth"
	"github.com/tapcard/storefront/internal/backend"
	"github.com/tapcard/storefront/internal/cache"
	"github.com/tapcard/storefront/internal/config"
	"github.com/tapcard/storefront/internal/database"
	"github.com/tapcard/storefront/internal/router"
	"github.com/tapcard/storefront/internal/service"
	"github.com/tapcard/storefront/internal/session"
	"github.com/tapcard/storefront/internal/wizard"
	"github.com/tapcard/storefront/internal/ws"
)

const (
	serviceName      = "storefront"
	serviceTokenTTL  = 5 * time.Minute
	sweepInterval    = time.Minute
	shutdownDeadline = 10 * time.Second
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Unable to prepare schema: %v", err)
	}
	queries := database.New(pool)
	log.Println("Connected to database")

	// Backend client and fee lookup
	client := backend.New(cfg.BackendURL, cfg.BackendTimeout, auth.NewServiceTokens(cfg.BackendJWTSecret, serviceName, serviceTokenTTL))

	var fees service.FeeResolver = service.NewBackendFeeResolver(client)
	if cfg.RedisAddr != "" {
		feeCache := cache.NewRedisCache(cfg.RedisAddr, serviceName)
		if err := feeCache.Ping(ctx); err != nil {
			log.Printf("WARN: redis at %s unreachable, fees fall through to the backend: %v", cfg.RedisAddr, err)
		}
		fees = service.NewCachedFeeResolver(fees, feeCache, cfg.CityFeeTTL)
		log.Printf("City fees cached in redis at %s", cfg.RedisAddr)
	}

	submissions := service.NewSubmissionService(client, queries, cfg.ProductID)
	catalog := service.NewCatalogService(client, cfg.ProductID)

	// Notifications and sessions
	hub := ws.NewHub()
	go hub.Run()

	sessions := session.NewManager(func(id uuid.UUID) *wizard.Controller {
		return wizard.NewController(fees, submissions.ForSession(id), ws.NewSessionNotifier(hub, id))
	}, cfg.SessionTTL)
	sessions.OnClose(hub.CloseSession)
	go sessions.Run(ctx, sweepInterval)

	r := router.New(cfg, router.Deps{
		Admins:       queries,
		Journal:      queries,
		Orders:       client,
		Catalog:      catalog,
		CustomOrders: submissions,
		Sessions:     sessions,
		Hub:          hub,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
