package usecase

import (
	"context"
	"time"

	"github.com/velopay/commission-engine/internal/domain"
)

//go:generate mockgen -source=sinks.go -destination=mocks/mock_sinks.go -package=mocks

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// AuditSink is a write-only audit trail. Implementations must never be
// load-bearing: callers log and swallow sink failures.
type AuditSink interface {
	Record(ctx context.Context, log *domain.AuditLog) error
}
