package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
)

// EarningRepository implements usecase.EarningRepository.
type EarningRepository struct {
	pool *pgxpool.Pool
}

// NewEarningRepository creates a new EarningRepository.
func NewEarningRepository(pool *pgxpool.Pool) *EarningRepository {
	return &EarningRepository{pool: pool}
}

const earningColumns = `id, transaction_id, beneficiary_party_id, payer_party_id, amount, commission_kind, commission_value, hierarchy_level, metadata, created_at`

// Create records a settled earning within a transaction.
func (r *EarningRepository) Create(ctx context.Context, tx usecase.Transaction, earning *domain.CommissionEarning) error {
	pgxTx := tx.(*Tx).PgxTx()

	var metadata []byte
	if earning.Metadata != nil {
		var err error
		metadata, err = json.Marshal(earning.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO commission_earnings (` + earningColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := pgxTx.Exec(ctx, query,
		earning.ID,
		earning.TransactionID,
		earning.BeneficiaryPartyID,
		earning.PayerPartyID,
		earning.Amount,
		earning.CommissionKind,
		earning.CommissionValue,
		earning.HierarchyLevel,
		metadata,
		earning.CreatedAt,
	)

	return err
}

// ExistsByTransaction reports whether the transaction was already settled.
// Runs inside the settlement transaction so the check and the inserts
// cannot interleave with a concurrent settlement of the same transaction.
func (r *EarningRepository) ExistsByTransaction(ctx context.Context, tx usecase.Transaction, transactionID string) (bool, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT EXISTS(SELECT 1 FROM commission_earnings WHERE transaction_id = $1)`

	var exists bool
	err := pgxTx.QueryRow(ctx, query, transactionID).Scan(&exists)
	return exists, err
}

// GetByTransaction retrieves the earnings settled for a transaction.
func (r *EarningRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.CommissionEarning, error) {
	query := `
		SELECT ` + earningColumns + `
		FROM commission_earnings
		WHERE transaction_id = $1
		ORDER BY hierarchy_level
	`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEarnings(rows)
}

// GetByBeneficiary retrieves a party's earnings, newest first.
func (r *EarningRepository) GetByBeneficiary(ctx context.Context, partyID string, limit, offset int) ([]*domain.CommissionEarning, error) {
	query := `
		SELECT ` + earningColumns + `
		FROM commission_earnings
		WHERE beneficiary_party_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, partyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEarnings(rows)
}

func scanEarnings(rows pgx.Rows) ([]*domain.CommissionEarning, error) {
	var earnings []*domain.CommissionEarning
	for rows.Next() {
		var earning domain.CommissionEarning
		var metadata []byte
		err := rows.Scan(
			&earning.ID,
			&earning.TransactionID,
			&earning.BeneficiaryPartyID,
			&earning.PayerPartyID,
			&earning.Amount,
			&earning.CommissionKind,
			&earning.CommissionValue,
			&earning.HierarchyLevel,
			&metadata,
			&earning.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if metadata != nil {
			_ = json.Unmarshal(metadata, &earning.Metadata)
		}
		earnings = append(earnings, &earning)
	}

	return earnings, rows.Err()
}
