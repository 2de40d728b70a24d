package integration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/velopay/commission-engine/internal/adapter/repository/postgres"
	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
	"github.com/velopay/commission-engine/tests/testutil"
)

// engine bundles the wired use cases for integration tests.
type engine struct {
	distribution   *usecase.DistributionUseCase
	wallet         *usecase.WalletUseCase
	reconciliation *usecase.ReconciliationUseCase
	outboxRepo     *postgres.OutboxRepository
}

func newEngine(testDB *testutil.TestDB) *engine {
	pool := testDB.Pool
	logger := zerolog.Nop()

	txManager := postgres.NewTxManager(pool)
	partyRepo := postgres.NewPartyRepository(pool)
	walletRepo := postgres.NewWalletRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	ruleRepo := postgres.NewRuleRepository(pool)
	earningRepo := postgres.NewEarningRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := postgres.NewULIDGenerator()
	retrier := postgres.NewRetrier(logger)

	hierarchy := usecase.NewHierarchyResolver(partyRepo, usecase.HierarchyConfig{})
	rules := usecase.NewRuleResolver(ruleRepo, nil, logger)

	return &engine{
		distribution: usecase.NewDistributionUseCase(
			txManager, partyRepo, walletRepo, entryRepo, earningRepo, outboxRepo,
			nil, hierarchy, rules, idGen, retrier, nil, logger,
		),
		wallet: usecase.NewWalletUseCase(
			txManager, walletRepo, entryRepo, outboxRepo, nil, idGen, nil, logger,
		),
		reconciliation: usecase.NewReconciliationUseCase(walletRepo, ledgerRepo, logger),
		outboxRepo:     outboxRepo,
	}
}

// seedChain creates the standard whitelabel -> distributor -> retailer
// chain with zero-balance wallets and a 10%/30% rule set for serviceID.
type chainFixture struct {
	WhitelabelWallet  *domain.Wallet
	DistributorWallet *domain.Wallet
	RetailerWallet    *domain.Wallet
}

func seedChain(ctx context.Context, t *testing.T, testDB *testutil.TestDB, serviceID string) *chainFixture {
	t.Helper()

	wl := testDB.CreateTestParty(ctx, "wl-1", nil, "WHITELABEL", 1)
	wlID := wl.ID
	dist := testDB.CreateTestParty(ctx, "dist-1", &wlID, "DISTRIBUTOR", 2, "wl-1")
	distID := dist.ID
	testDB.CreateTestParty(ctx, "ret-1", &distID, "RETAILER", 3, "wl-1", "dist-1")

	f := &chainFixture{
		WhitelabelWallet:  testDB.CreateTestWallet(ctx, "wl-1", 0),
		DistributorWallet: testDB.CreateTestWallet(ctx, "dist-1", 0),
		RetailerWallet:    testDB.CreateTestWallet(ctx, "ret-1", 0),
	}

	testDB.CreateTestRoleRule(ctx, "WHITELABEL", serviceID, domain.CommissionKindPercentage, decimal.NewFromInt(10))
	testDB.CreateTestUserRule(ctx, "dist-1", serviceID, domain.CommissionKindPercentage, decimal.NewFromInt(30))

	return f
}
