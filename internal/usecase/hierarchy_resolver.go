package usecase

import (
	"context"
	"fmt"

	"github.com/velopay/commission-engine/internal/domain"
)

// HierarchyConfig carries the deployment's role-level table. It is
// injected rather than kept as package state so each deployment can
// ship its own hierarchy.
type HierarchyConfig struct {
	// RoleLevels maps a role id to its expected hierarchy level. When a
	// chain member's role is present here, its stored level must match.
	RoleLevels map[string]int
	// EligibleRoles is the set of commission-eligible roles. Ancestors
	// above the topmost eligible member are trimmed from the chain. An
	// empty set means every role is eligible.
	EligibleRoles map[string]bool
	// MaxDepth bounds descendant traversal; zero means DefaultMaxHierarchyDepth.
	MaxDepth int
}

// HierarchyResolver produces the ordered ancestor chain relevant to a
// transaction's commission distribution.
type HierarchyResolver struct {
	partyRepo PartyRepository
	cfg       HierarchyConfig
}

// NewHierarchyResolver creates a new HierarchyResolver.
func NewHierarchyResolver(partyRepo PartyRepository, cfg HierarchyConfig) *HierarchyResolver {
	return &HierarchyResolver{partyRepo: partyRepo, cfg: cfg}
}

// Resolve returns the chain from the topmost commission-eligible
// ancestor down to and including the originator, ordered by ascending
// hierarchy level. Every id in the stored ancestor path must resolve;
// a short or mis-ordered chain fails with ErrInvalidHierarchy. The
// resolver never partially resolves or repairs a broken path.
func (r *HierarchyResolver) Resolve(ctx context.Context, originator *domain.Party) ([]*domain.Party, error) {
	path := originator.HierarchyPath

	chain := make([]*domain.Party, 0, len(path)+1)

	if len(path) > 0 {
		ancestors, err := r.partyRepo.GetByIDs(ctx, path)
		if err != nil {
			return nil, err
		}

		if len(ancestors) != len(path) {
			return nil, fmt.Errorf("%w: party %s has %d path entries but %d resolved",
				domain.ErrInvalidHierarchy, originator.ID, len(path), len(ancestors))
		}

		byID := make(map[string]*domain.Party, len(ancestors))
		for _, a := range ancestors {
			byID[a.ID] = a
		}

		for _, id := range path {
			ancestor, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: ancestor %s of party %s does not exist",
					domain.ErrInvalidHierarchy, id, originator.ID)
			}
			chain = append(chain, ancestor)
		}
	}

	chain = append(chain, originator)

	if err := r.validateChain(chain); err != nil {
		return nil, err
	}

	return r.trimToEligible(chain), nil
}

func (r *HierarchyResolver) validateChain(chain []*domain.Party) error {
	seen := make(map[string]bool, len(chain))

	for i, member := range chain {
		if seen[member.ID] {
			return fmt.Errorf("%w: party %s appears twice in chain", domain.ErrInvalidHierarchy, member.ID)
		}
		seen[member.ID] = true

		if i > 0 && member.HierarchyLevel <= chain[i-1].HierarchyLevel {
			return fmt.Errorf("%w: level %d at %s does not increase over level %d at %s",
				domain.ErrInvalidHierarchy,
				member.HierarchyLevel, member.ID,
				chain[i-1].HierarchyLevel, chain[i-1].ID)
		}

		if want, ok := r.cfg.RoleLevels[member.RoleID]; ok && want != member.HierarchyLevel {
			return fmt.Errorf("%w: party %s has level %d but role %s expects %d",
				domain.ErrInvalidHierarchy, member.ID, member.HierarchyLevel, member.RoleID, want)
		}
	}

	return nil
}

// trimToEligible drops leading ancestors whose role is not
// commission-eligible. The originator is always kept.
func (r *HierarchyResolver) trimToEligible(chain []*domain.Party) []*domain.Party {
	if len(r.cfg.EligibleRoles) == 0 {
		return chain
	}

	for i, member := range chain {
		if r.cfg.EligibleRoles[member.RoleID] {
			return chain[i:]
		}
	}

	return chain[len(chain)-1:]
}

// Descendants walks the downline of a party breadth-first using an
// explicit worklist over parent-indexed queries, bounded by maxDepth so
// malformed parent links cannot loop forever. maxDepth <= 0 uses
// DefaultMaxHierarchyDepth.
func (r *HierarchyResolver) Descendants(ctx context.Context, partyID string, maxDepth int) ([]*domain.Party, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxHierarchyDepth
	}
	if limit := r.cfg.MaxDepth; limit > 0 && maxDepth > limit {
		maxDepth = limit
	}

	var descendants []*domain.Party
	seen := map[string]bool{partyID: true}
	frontier := []string{partyID}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string

		for _, id := range frontier {
			children, err := r.partyRepo.ListChildren(ctx, id)
			if err != nil {
				return nil, err
			}

			for _, child := range children {
				if seen[child.ID] {
					continue
				}
				seen[child.ID] = true
				descendants = append(descendants, child)
				next = append(next, child.ID)
			}
		}

		frontier = next
	}

	return descendants, nil
}
