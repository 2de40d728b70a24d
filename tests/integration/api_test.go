package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	adaptershttp "github.com/velopay/commission-engine/internal/adapter/http"
	"github.com/velopay/commission-engine/internal/adapter/http/handler"
	"github.com/velopay/commission-engine/internal/adapter/repository/postgres"
	"github.com/velopay/commission-engine/internal/usecase"
	"github.com/velopay/commission-engine/tests/testutil"
)

func newTestServer(t *testing.T, testDB *testutil.TestDB) *httptest.Server {
	t.Helper()

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

	hierarchy := usecase.NewHierarchyResolver(partyRepo, usecase.HierarchyConfig{})
	rules := usecase.NewRuleResolver(ruleRepo, nil, logger)

	distributionUC := usecase.NewDistributionUseCase(
		txManager, partyRepo, walletRepo, entryRepo, earningRepo, outboxRepo,
		nil, hierarchy, rules, idGen, postgres.NewRetrier(logger), nil, logger,
	)
	walletUC := usecase.NewWalletUseCase(
		txManager, walletRepo, entryRepo, outboxRepo, nil, idGen, nil, logger,
	)
	reconciliationUC := usecase.NewReconciliationUseCase(walletRepo, ledgerRepo, logger)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		DistributionHandler: handler.NewDistributionHandler(distributionUC),
		WalletHandler:       handler.NewWalletHandler(walletUC),
		PartyHandler:        handler.NewPartyHandler(hierarchy, distributionUC),
		LedgerHandler:       handler.NewLedgerHandler(reconciliationUC),
		HealthHandler:       handler.NewHealthHandler(pool, nil),
		IdempotencyStore:    postgres.NewIdempotencyRepository(pool),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestAPIDistributeAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	seedChain(ctx, t, testDB, "recharge")
	server := newTestServer(t, testDB)

	payload := []byte(`{
		"transaction_id": "txn-api-1",
		"originator_party_id": "ret-1",
		"service_id": "recharge",
		"amount": 10000,
		"currency": "INR"
	}`)

	resp, err := http.Post(server.URL+"/api/v1/distributions/", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post distribution: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		TransactionID string `json:"transaction_id"`
		TotalAmount   int64  `json:"total_amount"`
		Earnings      []struct {
			BeneficiaryPartyID string `json:"beneficiary_party_id"`
			Amount             int64  `json:"amount"`
		} `json:"earnings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.TotalAmount != 1000 || len(created.Earnings) != 2 {
		t.Errorf("unexpected distribution response: %+v", created)
	}

	// The settled distribution is queryable by transaction id.
	getResp, err := http.Get(server.URL + "/api/v1/distributions/txn-api-1")
	if err != nil {
		t.Fatalf("get distribution: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}

	// Replaying the same transaction is a conflict.
	dupResp, err := http.Post(server.URL+"/api/v1/distributions/", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post duplicate: %v", err)
	}
	defer dupResp.Body.Close()
	if dupResp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate transaction, got %d", dupResp.StatusCode)
	}
}

func TestAPIWalletCreditIdempotencyReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	testDB.CreateTestParty(ctx, "party-1", nil, "RETAILER", 1)
	wallet := testDB.CreateTestWallet(ctx, "party-1", 0)
	server := newTestServer(t, testDB)

	payload := []byte(`{"amount": 500, "narration": "manual top-up", "actor_id": "admin-1"}`)
	url := server.URL + "/api/v1/wallets/" + wallet.ID + "/credit"

	doCredit := func() *http.Response {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "credit-key-1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		return resp
	}

	first := doCredit()
	defer first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.StatusCode)
	}
	var firstBody map[string]any
	if err := json.NewDecoder(first.Body).Decode(&firstBody); err != nil {
		t.Fatalf("decode first response: %v", err)
	}

	second := doCredit()
	defer second.Body.Close()
	if second.Header.Get("X-Idempotency-Replay") != "true" {
		t.Error("expected replay header on second request")
	}
	var secondBody map[string]any
	if err := json.NewDecoder(second.Body).Decode(&secondBody); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	if firstBody["id"] != secondBody["id"] {
		t.Errorf("expected identical replayed entry, got %v vs %v", firstBody["id"], secondBody["id"])
	}

	// The wallet was credited exactly once.
	if got := testDB.WalletBalance(ctx, wallet.ID); got != 500 {
		t.Errorf("expected balance 500, got %d", got)
	}
}

func TestAPIConsistencyEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	testDB.CreateTestParty(ctx, "party-1", nil, "RETAILER", 1)
	wallet := testDB.CreateTestWallet(ctx, "party-1", 500)
	server := newTestServer(t, testDB)

	resp, err := http.Get(server.URL + "/api/v1/ledger/consistency")
	if err != nil {
		t.Fatalf("get consistency: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Corrupt a balance and expect a conflict with the discrepancy report.
	if _, err := testDB.Pool.Exec(ctx, `UPDATE wallets SET balance = 1 WHERE id = $1`, wallet.ID); err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}

	resp2, err := http.Get(server.URL + "/api/v1/ledger/consistency")
	if err != nil {
		t.Fatalf("get consistency: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp2.StatusCode)
	}

	var report struct {
		Consistent    bool             `json:"consistent"`
		Discrepancies []map[string]any `json:"discrepancies"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Consistent || len(report.Discrepancies) != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}
