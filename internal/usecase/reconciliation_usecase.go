package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReconciliationUseCase verifies that every wallet balance agrees with
// its append-only ledger history.
type ReconciliationUseCase struct {
	walletRepo WalletRepository
	ledgerRepo LedgerRepository
	logger     zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(walletRepo WalletRepository, ledgerRepo LedgerRepository, logger zerolog.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// WalletDiscrepancy describes one wallet whose stored balance disagrees
// with its ledger.
type WalletDiscrepancy struct {
	WalletID       string
	PartyID        string
	StoredBalance  int64
	EntrySum       int64
	RunningBalance int64
}

// ConsistencyReport is the result of a full ledger consistency check.
type ConsistencyReport struct {
	Consistent     bool
	WalletsChecked int
	Discrepancies  []WalletDiscrepancy
	CheckedAt      time.Time
}

// CheckConsistency walks every wallet and verifies two invariants: the
// stored balance equals the signed sum of the wallet's entries, and it
// equals the running balance of the last entry. Wallets without entries
// must have a zero balance.
func (uc *ReconciliationUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	report := &ConsistencyReport{
		Consistent: true,
		CheckedAt:  time.Now().UTC(),
	}

	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		wallets, err := uc.walletRepo.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(wallets) == 0 {
			break
		}

		for _, wallet := range wallets {
			report.WalletsChecked++

			sum, err := uc.ledgerRepo.SumEntriesByWallet(ctx, wallet.ID)
			if err != nil {
				return nil, err
			}

			running, found, err := uc.ledgerRepo.LastRunningBalance(ctx, wallet.ID)
			if err != nil {
				return nil, err
			}
			if !found {
				running = 0
			}

			if wallet.Balance != sum || wallet.Balance != running {
				report.Consistent = false
				report.Discrepancies = append(report.Discrepancies, WalletDiscrepancy{
					WalletID:       wallet.ID,
					PartyID:        wallet.PartyID,
					StoredBalance:  wallet.Balance,
					EntrySum:       sum,
					RunningBalance: running,
				})

				uc.logger.Warn().
					Str("wallet_id", wallet.ID).
					Int64("stored", wallet.Balance).
					Int64("entry_sum", sum).
					Int64("running", running).
					Msg("wallet balance disagrees with ledger")
			}
		}

		if len(wallets) < pageSize {
			break
		}
	}

	return report, nil
}
