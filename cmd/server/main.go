package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/velopay/commission-engine/internal/adapter/http"
	"github.com/velopay/commission-engine/internal/adapter/http/handler"
	"github.com/velopay/commission-engine/internal/adapter/http/middleware"
	postgresRepo "github.com/velopay/commission-engine/internal/adapter/repository/postgres"
	redisRepo "github.com/velopay/commission-engine/internal/adapter/repository/redis"
	"github.com/velopay/commission-engine/internal/infrastructure/config"
	"github.com/velopay/commission-engine/internal/infrastructure/eventpublisher"
	"github.com/velopay/commission-engine/internal/infrastructure/logger"
	"github.com/velopay/commission-engine/internal/infrastructure/metrics"
	"github.com/velopay/commission-engine/internal/infrastructure/postgres"
	"github.com/velopay/commission-engine/internal/infrastructure/redis"
	"github.com/velopay/commission-engine/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
		ConnTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	if cfg.MigrationsPath != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			appLogger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	appLogger.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	partyRepo := postgresRepo.NewPartyRepository(pool)
	walletRepo := postgresRepo.NewWalletRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	ruleRepo := postgresRepo.NewRuleRepository(pool)
	earningRepo := postgresRepo.NewEarningRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(appLogger)
	ruleCache := redisRepo.NewCache(redisClient)

	var idempotencyStore usecase.IdempotencyStore
	switch cfg.IdempotencyBackend {
	case "postgres":
		idempotencyStore = postgresRepo.NewIdempotencyRepository(pool)
	default:
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	roleLevels, err := cfg.RoleLevels()
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to parse hierarchy role levels")
	}

	// Initialize use cases
	hierarchy := usecase.NewHierarchyResolver(partyRepo, usecase.HierarchyConfig{
		RoleLevels:    roleLevels,
		EligibleRoles: cfg.EligibleRoles(),
		MaxDepth:      cfg.HierarchyMaxDepth,
	})
	rules := usecase.NewRuleResolver(ruleRepo, ruleCache, appLogger)
	distributionUC := usecase.NewDistributionUseCase(
		txManager, partyRepo, walletRepo, entryRepo, earningRepo, outboxRepo,
		auditRepo, hierarchy, rules, idGen, retrier, m, appLogger,
	)
	walletUC := usecase.NewWalletUseCase(
		txManager, walletRepo, entryRepo, outboxRepo, auditRepo, idGen, m, appLogger,
	)
	reconciliationUC := usecase.NewReconciliationUseCase(walletRepo, ledgerRepo, appLogger)

	// Start the outbox publisher
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(appLogger),
		Logger:     appLogger,
	})
	go func() {
		if err := publisher.Start(publisherCtx); err != nil && err != context.Canceled {
			appLogger.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Create router
	routerCfg := httpAdapter.RouterConfig{
		DistributionHandler: handler.NewDistributionHandler(distributionUC),
		WalletHandler:       handler.NewWalletHandler(walletUC),
		PartyHandler:        handler.NewPartyHandler(hierarchy, distributionUC),
		LedgerHandler:       handler.NewLedgerHandler(reconciliationUC),
		HealthHandler:       handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:    idempotencyStore,
		IdempotencyTTL:      cfg.IdempotencyTTL,
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	router := httpAdapter.NewRouter(routerCfg)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server...")
	stopPublisher()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server stopped")
}
