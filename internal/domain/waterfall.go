package domain

import "fmt"

// ResolvedRule pairs a chain member with the commission rule that
// applies to it for one distribution.
type ResolvedRule struct {
	Party *Party
	Rule  CommissionRule
}

// Share is one chain member's computed slice of the commission pool.
type Share struct {
	Party  *Party
	Amount int64
	Rule   CommissionRule
}

// roundingTolerance is the largest share/pool discrepancy, in minor
// units, that is folded into the last share instead of failing.
const roundingTolerance = 1

// ComputeWaterfall turns an ordered chain with resolved rules and a base
// transaction amount into per-member shares of a single commission pool.
//
// The topmost member's rule is the only one evaluated against the
// original base amount; it produces the total pool. Each subsequent
// member except the last has its rule applied to the pool still
// remaining, capped at that remainder. The final member absorbs whatever
// is left, so a single-member chain keeps the whole pool.
//
// An empty chain or a zero pool yields no shares and no error. Zero
// shares stay in the result so callers can verify conservation; they are
// skipped at settlement time.
func ComputeWaterfall(chain []ResolvedRule, base int64) ([]Share, error) {
	if len(chain) == 0 {
		return nil, nil
	}

	pool := chain[0].Rule.Apply(base)
	if pool <= 0 {
		return nil, nil
	}

	shares := make([]Share, len(chain))
	for i := range chain {
		shares[i] = Share{Party: chain[i].Party, Rule: chain[i].Rule}
	}

	if len(chain) == 1 {
		shares[0].Amount = pool
		return shares, nil
	}

	remaining := pool
	for i := 1; i < len(chain)-1; i++ {
		share := chain[i].Rule.Apply(remaining)
		if share > remaining {
			share = remaining
		}
		if share < 0 {
			share = 0
		}
		shares[i].Amount = share
		remaining -= share
	}
	shares[len(shares)-1].Amount = remaining

	var total int64
	for _, s := range shares {
		total += s.Amount
	}

	if diff := pool - total; diff != 0 {
		if diff > roundingTolerance || diff < -roundingTolerance {
			return nil, fmt.Errorf("%w: pool %d, shares %d", ErrCommissionMismatch, pool, total)
		}
		shares[len(shares)-1].Amount += diff
	}

	return shares, nil
}
