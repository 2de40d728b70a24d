package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/velopay/commission-engine/internal/domain"
)

const roleRuleCacheTTL = 5 * time.Minute

// RuleResolver finds the effective commission rule for each chain
// member: a USER-scoped override wins, a ROLE-scoped default is next,
// and a zero-value FLAT rule is the quiet fallback.
type RuleResolver struct {
	ruleRepo CommissionRuleRepository
	cache    Cache // optional; role rules only
	logger   zerolog.Logger
}

// NewRuleResolver creates a new RuleResolver. cache may be nil.
func NewRuleResolver(ruleRepo CommissionRuleRepository, cache Cache, logger zerolog.Logger) *RuleResolver {
	return &RuleResolver{
		ruleRepo: ruleRepo,
		cache:    cache,
		logger:   logger,
	}
}

// ResolveForChain resolves one rule per chain member, preserving chain
// order. Role lookups are cached per resolution so a chain of ten
// retailers under one role costs one query. Any out-of-range rule value
// aborts the whole resolution with ErrInvalidCommissionRule.
func (r *RuleResolver) ResolveForChain(ctx context.Context, chain []*domain.Party, serviceID string, at time.Time) ([]domain.ResolvedRule, error) {
	resolved := make([]domain.ResolvedRule, 0, len(chain))
	roleRules := make(map[string]*domain.CommissionRule, len(chain))

	for _, member := range chain {
		rule, err := r.resolveMember(ctx, member, serviceID, at, roleRules)
		if err != nil {
			return nil, err
		}

		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%w (party %s, rule %s)", err, member.ID, rule.ID)
		}

		resolved = append(resolved, domain.ResolvedRule{Party: member, Rule: rule})
	}

	return resolved, nil
}

func (r *RuleResolver) resolveMember(
	ctx context.Context,
	member *domain.Party,
	serviceID string,
	at time.Time,
	roleRules map[string]*domain.CommissionRule,
) (domain.CommissionRule, error) {
	userRule, err := r.ruleRepo.FindUserRule(ctx, member.ID, serviceID, at)
	if err != nil {
		return domain.CommissionRule{}, err
	}
	if userRule != nil {
		return *userRule, nil
	}

	roleRule, cached := roleRules[member.RoleID]
	if !cached {
		roleRule, err = r.findRoleRule(ctx, member.RoleID, serviceID, at)
		if err != nil {
			return domain.CommissionRule{}, err
		}
		roleRules[member.RoleID] = roleRule
	}
	if roleRule != nil {
		return *roleRule, nil
	}

	// No rule at all: the member simply earns nothing.
	return domain.ZeroFlatRule(), nil
}

func (r *RuleResolver) findRoleRule(ctx context.Context, roleID, serviceID string, at time.Time) (*domain.CommissionRule, error) {
	cacheKey := roleRuleCacheKey(roleID, serviceID)

	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, cacheKey); err == nil && raw != "" {
			var rule domain.CommissionRule
			if err := json.Unmarshal([]byte(raw), &rule); err == nil && rule.EffectiveAt(at) {
				return &rule, nil
			}
		}
	}

	rule, err := r.ruleRepo.FindRoleRule(ctx, roleID, serviceID, at)
	if err != nil {
		return nil, err
	}

	if rule != nil && r.cache != nil {
		if raw, err := json.Marshal(rule); err == nil {
			if err := r.cache.Set(ctx, cacheKey, string(raw), roleRuleCacheTTL); err != nil {
				r.logger.Debug().Err(err).Str("role_id", roleID).Msg("role rule cache write failed")
			}
		}
	}

	return rule, nil
}

func roleRuleCacheKey(roleID, serviceID string) string {
	return "rule:role:" + roleID + ":" + serviceID
}
