package usecase_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
	"github.com/velopay/commission-engine/internal/usecase/mocks"
)

func TestCheckConsistency_AllConsistent(t *testing.T) {
	wallets := mocks.NewMockWalletRepository()
	wallets.Add(
		&domain.Wallet{ID: "wal-1", PartyID: "p-1", Balance: 500, IsActive: true},
		&domain.Wallet{ID: "wal-2", PartyID: "p-2", Balance: 0, IsActive: true},
	)

	ledger := mocks.NewMockLedgerRepository()
	ledger.SumEntriesByWalletFunc = func(ctx context.Context, walletID string) (int64, error) {
		if walletID == "wal-1" {
			return 500, nil
		}
		return 0, nil
	}
	ledger.LastRunningBalanceFunc = func(ctx context.Context, walletID string) (int64, bool, error) {
		if walletID == "wal-1" {
			return 500, true, nil
		}
		return 0, false, nil // wal-2 has no entries
	}

	uc := usecase.NewReconciliationUseCase(wallets, ledger, zerolog.Nop())

	report, err := uc.CheckConsistency(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Consistent {
		t.Errorf("expected consistent report, got discrepancies: %v", report.Discrepancies)
	}
	if report.WalletsChecked != 2 {
		t.Errorf("expected 2 wallets checked, got %d", report.WalletsChecked)
	}
}

func TestCheckConsistency_DetectsMismatch(t *testing.T) {
	wallets := mocks.NewMockWalletRepository()
	wallets.Add(&domain.Wallet{ID: "wal-1", PartyID: "p-1", Balance: 500, IsActive: true})

	ledger := mocks.NewMockLedgerRepository()
	ledger.SumEntriesByWalletFunc = func(ctx context.Context, walletID string) (int64, error) {
		return 300, nil
	}
	ledger.LastRunningBalanceFunc = func(ctx context.Context, walletID string) (int64, bool, error) {
		return 300, true, nil
	}

	uc := usecase.NewReconciliationUseCase(wallets, ledger, zerolog.Nop())

	report, err := uc.CheckConsistency(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Consistent {
		t.Fatal("expected inconsistent report")
	}
	if len(report.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(report.Discrepancies))
	}

	d := report.Discrepancies[0]
	if d.WalletID != "wal-1" || d.StoredBalance != 500 || d.EntrySum != 300 {
		t.Errorf("unexpected discrepancy: %+v", d)
	}
}

func TestCheckConsistency_EmptyWalletWithEntriesMismatch(t *testing.T) {
	// A wallet with entries whose running balance drifted from the
	// stored balance must be reported even when the entry sum matches.
	wallets := mocks.NewMockWalletRepository()
	wallets.Add(&domain.Wallet{ID: "wal-1", PartyID: "p-1", Balance: 100, IsActive: true})

	ledger := mocks.NewMockLedgerRepository()
	ledger.SumEntriesByWalletFunc = func(ctx context.Context, walletID string) (int64, error) {
		return 100, nil
	}
	ledger.LastRunningBalanceFunc = func(ctx context.Context, walletID string) (int64, bool, error) {
		return 90, true, nil
	}

	uc := usecase.NewReconciliationUseCase(wallets, ledger, zerolog.Nop())

	report, err := uc.CheckConsistency(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Consistent {
		t.Fatal("expected inconsistent report")
	}
	if report.Discrepancies[0].RunningBalance != 90 {
		t.Errorf("expected running balance 90 in discrepancy, got %d", report.Discrepancies[0].RunningBalance)
	}
}
