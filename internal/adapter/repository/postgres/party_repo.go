package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/commission-engine/internal/domain"
)

// PartyRepository implements usecase.PartyRepository.
type PartyRepository struct {
	pool *pgxpool.Pool
}

// NewPartyRepository creates a new PartyRepository.
func NewPartyRepository(pool *pgxpool.Pool) *PartyRepository {
	return &PartyRepository{pool: pool}
}

const partyColumns = `id, parent_id, role_id, hierarchy_level, hierarchy_path, is_active, created_at, updated_at`

// GetByID retrieves a party by ID.
func (r *PartyRepository) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	query := `
		SELECT ` + partyColumns + `
		FROM parties
		WHERE id = $1
	`

	party, err := scanParty(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPartyNotFound, id)
	}

	return party, err
}

// GetByIDs retrieves multiple parties in one round trip. Missing IDs are
// not an error; callers compare lengths when completeness matters.
func (r *PartyRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Party, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + partyColumns + `
		FROM parties
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parties := make([]*domain.Party, 0, len(ids))
	for rows.Next() {
		party, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, party)
	}

	return parties, rows.Err()
}

// ListChildren retrieves the direct children of a party.
func (r *PartyRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.Party, error) {
	query := `
		SELECT ` + partyColumns + `
		FROM parties
		WHERE parent_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parties []*domain.Party
	for rows.Next() {
		party, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, party)
	}

	return parties, rows.Err()
}

func scanParty(row pgx.Row) (*domain.Party, error) {
	var party domain.Party
	err := row.Scan(
		&party.ID,
		&party.ParentID,
		&party.RoleID,
		&party.HierarchyLevel,
		&party.HierarchyPath,
		&party.IsActive,
		&party.CreatedAt,
		&party.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &party, nil
}
