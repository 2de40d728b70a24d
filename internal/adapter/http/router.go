package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velopay/commission-engine/internal/adapter/http/handler"
	"github.com/velopay/commission-engine/internal/adapter/http/middleware"
	"github.com/velopay/commission-engine/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	DistributionHandler *handler.DistributionHandler
	WalletHandler       *handler.WalletHandler
	PartyHandler        *handler.PartyHandler
	LedgerHandler       *handler.LedgerHandler
	HealthHandler       *handler.HealthHandler
	IdempotencyStore    usecase.IdempotencyStore
	IdempotencyTTL      time.Duration
	RateLimiter         *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and observability endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Distributions
		r.Route("/distributions", func(r chi.Router) {
			r.Post("/", cfg.DistributionHandler.Create)
			r.Get("/{transactionID}", cfg.DistributionHandler.GetByTransaction)
		})

		// Wallets
		r.Route("/wallets", func(r chi.Router) {
			r.Get("/{id}", cfg.WalletHandler.Get)
			r.Get("/{id}/entries", cfg.WalletHandler.ListEntries)
			r.Post("/{id}/credit", cfg.WalletHandler.Credit)
			r.Post("/{id}/debit", cfg.WalletHandler.Debit)
			r.Post("/{id}/hold", cfg.WalletHandler.Hold)
			r.Post("/{id}/release", cfg.WalletHandler.Release)
		})

		// Parties
		r.Route("/parties", func(r chi.Router) {
			r.Get("/{id}/descendants", cfg.PartyHandler.Descendants)
			r.Get("/{id}/earnings", cfg.PartyHandler.Earnings)
		})

		// Ledger
		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}
