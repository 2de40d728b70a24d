package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// SumEntriesByWallet computes the signed sum of a wallet's entries.
// Amounts are stored unsigned; the entry type carries the direction.
func (r *LedgerRepository) SumEntriesByWallet(ctx context.Context, walletID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE wallet_id = $1
	`

	var sum int64
	err := r.pool.QueryRow(ctx, query, walletID).Scan(&sum)
	return sum, err
}

// LastRunningBalance returns the running balance recorded by the wallet's
// most recent entry. The second return value is false when the wallet has
// no entries yet.
func (r *LedgerRepository) LastRunningBalance(ctx context.Context, walletID string) (int64, bool, error) {
	query := `
		SELECT running_balance
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, walletID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return balance, true, nil
}
