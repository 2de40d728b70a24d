package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running distributions from blocking wallet rows
	DefaultTransactionTimeout = 10 * time.Second

	// MaxCASAttempts bounds the compare-and-swap retries for a single
	// wallet mutation before surfacing ErrConcurrentModification
	MaxCASAttempts = 3

	// DefaultMaxHierarchyDepth bounds descendant traversal on malformed data
	DefaultMaxHierarchyDepth = 16

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
