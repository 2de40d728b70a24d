package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
)

// EntryRepository implements usecase.LedgerEntryRepository.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const entryColumns = `id, wallet_id, transaction_id, entry_type, reference_type, amount, running_balance, narration, idempotency_key, created_at`

// Create appends a ledger entry within a transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := pgxTx.Exec(ctx, query,
		entry.ID,
		entry.WalletID,
		entry.TransactionID,
		entry.EntryType,
		entry.ReferenceType,
		entry.Amount,
		entry.RunningBalance,
		entry.Narration,
		entry.IdempotencyKey,
		entry.CreatedAt,
	)

	return err
}

// GetByWallet retrieves a wallet's entries, newest first.
func (r *EntryRepository) GetByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByTransaction retrieves every entry written for a source transaction.
func (r *EntryRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.WalletID,
			&entry.TransactionID,
			&entry.EntryType,
			&entry.ReferenceType,
			&entry.Amount,
			&entry.RunningBalance,
			&entry.Narration,
			&entry.IdempotencyKey,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
