package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/velopay/commission-engine/internal/adapter/http/handler"
	apimiddleware "github.com/velopay/commission-engine/internal/adapter/http/middleware"
	"github.com/velopay/commission-engine/internal/usecase"
	"github.com/velopay/commission-engine/internal/usecase/mocks"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"transaction_id":"txn-1","originator_party_id":"p1","service_id":"svc","amount":1000,"currency":"INR"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/distributions/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/distributions/",
		"GET /api/v1/distributions/{transactionID}",
		"GET /api/v1/wallets/{id}",
		"POST /api/v1/wallets/{id}/credit",
		"POST /api/v1/wallets/{id}/debit",
		"POST /api/v1/wallets/{id}/hold",
		"POST /api/v1/wallets/{id}/release",
		"GET /api/v1/parties/{id}/descendants",
		"GET /api/v1/ledger/consistency",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	partyRepo := mocks.NewMockPartyRepository()
	walletRepo := mocks.NewMockWalletRepository()
	entryRepo := mocks.NewMockLedgerEntryRepository()
	earningRepo := mocks.NewMockEarningRepository()
	ruleRepo := mocks.NewMockCommissionRuleRepository()
	outboxRepo := mocks.NewMockOutboxRepository()
	txManager := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()

	hierarchy := usecase.NewHierarchyResolver(partyRepo, usecase.HierarchyConfig{})
	rules := usecase.NewRuleResolver(ruleRepo, nil, zerolog.Nop())

	distributionUC := usecase.NewDistributionUseCase(
		txManager, partyRepo, walletRepo, entryRepo, earningRepo, outboxRepo,
		nil, hierarchy, rules, idGen, nil, nil, zerolog.Nop(),
	)
	walletUC := usecase.NewWalletUseCase(
		txManager, walletRepo, entryRepo, outboxRepo, nil, idGen, nil, zerolog.Nop(),
	)
	reconciliationUC := usecase.NewReconciliationUseCase(walletRepo, mocks.NewMockLedgerRepository(), zerolog.Nop())

	cfg := RouterConfig{
		DistributionHandler: handler.NewDistributionHandler(distributionUC),
		WalletHandler:       handler.NewWalletHandler(walletUC),
		PartyHandler:        handler.NewPartyHandler(hierarchy, distributionUC),
		LedgerHandler:       handler.NewLedgerHandler(reconciliationUC),
		HealthHandler:       &handler.HealthHandler{},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
