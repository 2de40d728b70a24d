package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SystemPartyID is the non-wallet sentinel used as the payer when a
// commission pool enters the ledger from outside the hierarchy.
const SystemPartyID = "SYSTEM"

// RuleScope says what a commission rule is attached to.
type RuleScope string

const (
	RuleScopeRole RuleScope = "ROLE"
	RuleScopeUser RuleScope = "USER"
)

// CommissionKind is how a rule's value is interpreted.
type CommissionKind string

const (
	// CommissionKindFlat is a fixed amount in minor units.
	CommissionKindFlat CommissionKind = "FLAT"
	// CommissionKindPercentage is a percentage of the evaluated base.
	CommissionKindPercentage CommissionKind = "PERCENTAGE"
)

var hundred = decimal.NewFromInt(100)

// CommissionRule defines how much commission a role or a specific party
// earns for a service. Rules are created and retired by administrators
// and are immutable once matched to a past distribution; distributions
// reference the resolved kind and value, not the rule id.
type CommissionRule struct {
	ID            string
	Scope         RuleScope
	RoleID        *string
	TargetPartyID *string
	ServiceID     *string
	Kind          CommissionKind
	Value         decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	IsActive      bool
	CreatedAt     time.Time
}

// ZeroFlatRule is the no-commission fallback assigned to chain members
// without any matching rule.
func ZeroFlatRule() CommissionRule {
	return CommissionRule{Kind: CommissionKindFlat, Value: decimal.Zero}
}

// Validate checks rule value ranges: percentages must lie in [0,100],
// flat amounts must be non-negative.
func (r *CommissionRule) Validate() error {
	switch r.Kind {
	case CommissionKindPercentage:
		if r.Value.IsNegative() || r.Value.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage %s out of range [0,100]", ErrInvalidCommissionRule, r.Value)
		}
	case CommissionKindFlat:
		if r.Value.IsNegative() {
			return fmt.Errorf("%w: flat amount %s is negative", ErrInvalidCommissionRule, r.Value)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommissionRule, r.Kind)
	}
	return nil
}

// EffectiveAt reports whether the rule's validity window covers t.
func (r *CommissionRule) EffectiveAt(t time.Time) bool {
	if !r.IsActive {
		return false
	}
	if t.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && t.After(*r.EffectiveTo) {
		return false
	}
	return true
}

// Apply evaluates the rule against a base amount in minor units.
// Percentage results are rounded half away from zero.
func (r *CommissionRule) Apply(base int64) int64 {
	switch r.Kind {
	case CommissionKindPercentage:
		return decimal.NewFromInt(base).Mul(r.Value).Div(hundred).Round(0).IntPart()
	default:
		return r.Value.Round(0).IntPart()
	}
}

// CommissionEarning is one beneficiary's settled share of a
// transaction's commission pool. Created exactly once, never mutated.
type CommissionEarning struct {
	ID                 string
	TransactionID      string
	BeneficiaryPartyID string
	// PayerPartyID is the adjacent chain member the share was debited
	// from, or SystemPartyID for system-originated credits.
	PayerPartyID    string
	Amount          int64
	CommissionKind  CommissionKind
	CommissionValue decimal.Decimal
	HierarchyLevel  int
	Metadata        map[string]any
	CreatedAt       time.Time
}
