package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
)

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

const walletColumns = `id, party_id, kind, balance, hold_balance, version, is_active, created_at, updated_at`

// GetByID retrieves a wallet by ID without locking.
func (r *WalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = $1
	`

	wallet, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrWalletNotFound, id)
	}

	return wallet, err
}

// GetByIDForUpdate retrieves a wallet by ID with a row lock.
func (r *WalletRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Wallet, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`

	wallet, err := scanWallet(pgxTx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrWalletNotFound, id)
	}

	return wallet, err
}

// GetByPartyForUpdate retrieves a party's wallet of the given kind with a row lock.
func (r *WalletRepository) GetByPartyForUpdate(ctx context.Context, tx usecase.Transaction, partyID string, kind domain.WalletKind) (*domain.Wallet, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE party_id = $1 AND kind = $2
		FOR UPDATE
	`

	wallet, err := scanWallet(pgxTx.QueryRow(ctx, query, partyID, kind))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: party %s", domain.ErrWalletNotFound, partyID)
	}

	return wallet, err
}

// GetByPartiesForUpdate locks the wallets of multiple parties in one statement.
// Rows are locked in party_id order so that concurrent distributions touching
// overlapping chains acquire locks in the same order and cannot deadlock.
func (r *WalletRepository) GetByPartiesForUpdate(ctx context.Context, tx usecase.Transaction, partyIDs []string, kind domain.WalletKind) ([]*domain.Wallet, error) {
	if len(partyIDs) == 0 {
		return nil, nil
	}

	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE party_id = ANY($1) AND kind = $2
		ORDER BY party_id
		FOR UPDATE
	`

	rows, err := pgxTx.Query(ctx, query, partyIDs, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byParty := make(map[string]*domain.Wallet, len(partyIDs))
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		byParty[wallet.PartyID] = wallet
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	wallets := make([]*domain.Wallet, 0, len(partyIDs))
	for _, partyID := range partyIDs {
		wallet, ok := byParty[partyID]
		if !ok {
			return nil, fmt.Errorf("%w: party %s", domain.ErrWalletNotFound, partyID)
		}
		wallets = append(wallets, wallet)
	}

	return wallets, nil
}

// UpdateBalance writes a new balance guarded by the expected version.
// A zero row count means another writer bumped the version first.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance, expectedVersion int64, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`

	tag, err := pgxTx.Exec(ctx, query, balance, updatedAt, id, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: wallet %s version %d", domain.ErrConcurrentModification, id, expectedVersion)
	}

	return nil
}

// UpdateHoldBalance writes a new hold balance guarded by the expected version.
func (r *WalletRepository) UpdateHoldBalance(ctx context.Context, tx usecase.Transaction, id string, holdBalance, expectedVersion int64, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE wallets
		SET hold_balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`

	tag, err := pgxTx.Exec(ctx, query, holdBalance, updatedAt, id, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: wallet %s version %d", domain.ErrConcurrentModification, id, expectedVersion)
	}

	return nil
}

// List retrieves wallets in stable order for reconciliation sweeps.
func (r *WalletRepository) List(ctx context.Context, limit, offset int) ([]*domain.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}

	return wallets, rows.Err()
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := row.Scan(
		&wallet.ID,
		&wallet.PartyID,
		&wallet.Kind,
		&wallet.Balance,
		&wallet.HoldBalance,
		&wallet.Version,
		&wallet.IsActive,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
