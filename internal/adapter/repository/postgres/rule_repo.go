package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/commission-engine/internal/domain"
)

// RuleRepository implements usecase.CommissionRuleRepository.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

const ruleColumns = `id, scope, role_id, target_party_id, service_id, kind, value, effective_from, effective_to, is_active, created_at`

// FindUserRule returns the party-specific rule effective at the given
// instant, or nil when none matches. The most recently effective rule wins.
func (r *RuleRepository) FindUserRule(ctx context.Context, partyID, serviceID string, at time.Time) (*domain.CommissionRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM commission_rules
		WHERE scope = 'USER'
		  AND target_party_id = $1
		  AND (service_id = $2 OR service_id IS NULL)
		  AND is_active
		  AND effective_from <= $3
		  AND (effective_to IS NULL OR effective_to >= $3)
		ORDER BY service_id IS NULL, effective_from DESC
		LIMIT 1
	`

	return r.findRule(ctx, query, partyID, serviceID, at)
}

// FindRoleRule returns the role-level rule effective at the given instant,
// or nil when none matches.
func (r *RuleRepository) FindRoleRule(ctx context.Context, roleID, serviceID string, at time.Time) (*domain.CommissionRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM commission_rules
		WHERE scope = 'ROLE'
		  AND role_id = $1
		  AND (service_id = $2 OR service_id IS NULL)
		  AND is_active
		  AND effective_from <= $3
		  AND (effective_to IS NULL OR effective_to >= $3)
		ORDER BY service_id IS NULL, effective_from DESC
		LIMIT 1
	`

	return r.findRule(ctx, query, roleID, serviceID, at)
}

func (r *RuleRepository) findRule(ctx context.Context, query, subjectID, serviceID string, at time.Time) (*domain.CommissionRule, error) {
	var rule domain.CommissionRule
	err := r.pool.QueryRow(ctx, query, subjectID, serviceID, at).Scan(
		&rule.ID,
		&rule.Scope,
		&rule.RoleID,
		&rule.TargetPartyID,
		&rule.ServiceID,
		&rule.Kind,
		&rule.Value,
		&rule.EffectiveFrom,
		&rule.EffectiveTo,
		&rule.IsActive,
		&rule.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rule, nil
}
