package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/velopay/commission-engine/internal/domain"
	"github.com/velopay/commission-engine/internal/usecase"
	"github.com/velopay/commission-engine/internal/usecase/mocks"
)

func activeRule(id string, kind domain.CommissionKind, value int64) *domain.CommissionRule {
	return &domain.CommissionRule{
		ID:            id,
		Kind:          kind,
		Value:         decimal.NewFromInt(value),
		IsActive:      true,
		EffectiveFrom: time.Now().Add(-time.Hour),
	}
}

func TestRuleResolver_UserRuleWinsOverRoleRule(t *testing.T) {
	ctx := context.Background()

	ruleRepo := mocks.NewMockCommissionRuleRepository()
	ruleRepo.AddRoleRule("RETAILER", "svc-1", activeRule("role-rule", domain.CommissionKindPercentage, 2))
	ruleRepo.AddUserRule("ret-1", "svc-1", activeRule("user-rule", domain.CommissionKindPercentage, 5))

	resolver := usecase.NewRuleResolver(ruleRepo, nil, zerolog.Nop())

	chain := []*domain.Party{
		{ID: "ret-1", RoleID: "RETAILER"},
		{ID: "ret-2", RoleID: "RETAILER"},
	}

	resolved, err := resolver.ResolveForChain(ctx, chain, "svc-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resolved[0].Rule.ID != "user-rule" {
		t.Errorf("expected user override for ret-1, got %s", resolved[0].Rule.ID)
	}
	if resolved[1].Rule.ID != "role-rule" {
		t.Errorf("expected role default for ret-2, got %s", resolved[1].Rule.ID)
	}
}

func TestRuleResolver_RoleLookupSharedAcrossChain(t *testing.T) {
	ctx := context.Background()

	ruleRepo := mocks.NewMockCommissionRuleRepository()
	ruleRepo.AddRoleRule("RETAILER", "svc-1", activeRule("role-rule", domain.CommissionKindFlat, 100))

	resolver := usecase.NewRuleResolver(ruleRepo, nil, zerolog.Nop())

	chain := []*domain.Party{
		{ID: "ret-1", RoleID: "RETAILER"},
		{ID: "ret-2", RoleID: "RETAILER"},
		{ID: "ret-3", RoleID: "RETAILER"},
	}

	if _, err := resolver.ResolveForChain(ctx, chain, "svc-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ruleRepo.RoleLookups != 1 {
		t.Errorf("expected 1 role lookup for the whole chain, got %d", ruleRepo.RoleLookups)
	}
}

func TestRuleResolver_ZeroFallbackWhenNoRuleMatches(t *testing.T) {
	ctx := context.Background()

	resolver := usecase.NewRuleResolver(mocks.NewMockCommissionRuleRepository(), nil, zerolog.Nop())

	chain := []*domain.Party{{ID: "ret-1", RoleID: "RETAILER"}}

	resolved, err := resolver.ResolveForChain(ctx, chain, "svc-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rule := resolved[0].Rule
	if rule.Kind != domain.CommissionKindFlat || !rule.Value.IsZero() {
		t.Errorf("expected zero flat fallback, got %s %s", rule.Kind, rule.Value)
	}
}

func TestRuleResolver_InvalidRuleAbortsResolution(t *testing.T) {
	ctx := context.Background()

	ruleRepo := mocks.NewMockCommissionRuleRepository()
	ruleRepo.AddUserRule("ret-1", "svc-1", activeRule("bad-rule", domain.CommissionKindPercentage, 150))

	resolver := usecase.NewRuleResolver(ruleRepo, nil, zerolog.Nop())

	chain := []*domain.Party{{ID: "ret-1", RoleID: "RETAILER"}}

	_, err := resolver.ResolveForChain(ctx, chain, "svc-1", time.Now())
	if !errors.Is(err, domain.ErrInvalidCommissionRule) {
		t.Fatalf("expected ErrInvalidCommissionRule, got %v", err)
	}
}

func TestRuleResolver_CacheHitSkipsRepository(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	cached := activeRule("cached-rule", domain.CommissionKindPercentage, 3)
	raw, err := json.Marshal(cached)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	cache := mocks.NewMockCache(ctrl)
	cache.EXPECT().Get(gomock.Any(), "rule:role:RETAILER:svc-1").Return(string(raw), nil)

	ruleRepo := mocks.NewMockCommissionRuleRepository()
	ruleRepo.FindRoleRuleFunc = func(ctx context.Context, roleID, serviceID string, at time.Time) (*domain.CommissionRule, error) {
		t.Fatal("repository must not be queried on cache hit")
		return nil, nil
	}

	resolver := usecase.NewRuleResolver(ruleRepo, cache, zerolog.Nop())

	chain := []*domain.Party{{ID: "ret-1", RoleID: "RETAILER"}}

	resolved, err := resolver.ResolveForChain(ctx, chain, "svc-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved[0].Rule.ID != "cached-rule" {
		t.Errorf("expected cached rule, got %s", resolved[0].Rule.ID)
	}
}

func TestRuleResolver_CacheMissFallsThroughAndWrites(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	cache := mocks.NewMockCache(ctrl)
	cache.EXPECT().Get(gomock.Any(), "rule:role:RETAILER:svc-1").Return("", nil)
	cache.EXPECT().Set(gomock.Any(), "rule:role:RETAILER:svc-1", gomock.Any(), gomock.Any()).Return(nil)

	ruleRepo := mocks.NewMockCommissionRuleRepository()
	ruleRepo.AddRoleRule("RETAILER", "svc-1", activeRule("role-rule", domain.CommissionKindFlat, 50))

	resolver := usecase.NewRuleResolver(ruleRepo, cache, zerolog.Nop())

	chain := []*domain.Party{{ID: "ret-1", RoleID: "RETAILER"}}

	resolved, err := resolver.ResolveForChain(ctx, chain, "svc-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved[0].Rule.ID != "role-rule" {
		t.Errorf("expected role rule from repository, got %s", resolved[0].Rule.ID)
	}
}

func TestRuleResolver_StaleCacheEntryIgnored(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	// Cached rule whose window has already closed: the resolver must
	// fall through to the repository.
	expired := activeRule("expired-rule", domain.CommissionKindFlat, 10)
	until := time.Now().Add(-time.Minute)
	expired.EffectiveTo = &until
	raw, _ := json.Marshal(expired)

	cache := mocks.NewMockCache(ctrl)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(string(raw), nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	ruleRepo := mocks.NewMockCommissionRuleRepository()
	ruleRepo.AddRoleRule("RETAILER", "svc-1", activeRule("fresh-rule", domain.CommissionKindFlat, 20))

	resolver := usecase.NewRuleResolver(ruleRepo, cache, zerolog.Nop())

	chain := []*domain.Party{{ID: "ret-1", RoleID: "RETAILER"}}

	resolved, err := resolver.ResolveForChain(ctx, chain, "svc-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved[0].Rule.ID != "fresh-rule" {
		t.Errorf("expected fresh rule from repository, got %s", resolved[0].Rule.ID)
	}
}
