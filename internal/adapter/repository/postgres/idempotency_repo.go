package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// processingPlaceholder marks a key claimed but not yet resolved.
var processingPlaceholder = []byte("processing")

// IdempotencyRepository implements usecase.IdempotencyStore backed by
// Postgres. Useful when a deployment has no Redis or needs idempotency
// records to survive cache flushes.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// CheckAndSet atomically checks if key exists, sets if not.
// Returns (exists, existingValue, error). Expired rows are reclaimed
// in place.
func (r *IdempotencyRepository) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	now := time.Now()

	stored := response
	if stored == nil {
		stored = processingPlaceholder
	}

	query := `
		INSERT INTO idempotency_records (key, response, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET response = EXCLUDED.response,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		WHERE idempotency_records.expires_at < $3
		RETURNING key
	`

	var claimed string
	err := r.pool.QueryRow(ctx, query, key, stored, now, now.Add(ttl)).Scan(&claimed)
	if err == nil {
		return false, nil, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, nil, err
	}

	// Key is held by a live record; return its stored response.
	var existing []byte
	err = r.pool.QueryRow(ctx, `SELECT response FROM idempotency_records WHERE key = $1`, key).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		// Record expired between statements; treat the key as claimed
		// by the concurrent deleter.
		return true, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	return true, existing, nil
}

// Update overwrites the response stored for a claimed key.
func (r *IdempotencyRepository) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	query := `
		UPDATE idempotency_records
		SET response = $1, expires_at = $2
		WHERE key = $3
	`

	_, err := r.pool.Exec(ctx, query, response, time.Now().Add(ttl), key)
	return err
}

// DeleteExpired removes idempotency records past their expiry.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_records WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
