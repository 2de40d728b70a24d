package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velopay/commission-engine/internal/domain"
)

// AuditRepository implements usecase.AuditSink backed by Postgres.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Record inserts a new audit log entry
func (r *AuditRepository) Record(ctx context.Context, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	var afterStateJSON []byte
	if log.AfterState != nil {
		var err error
		afterStateJSON, err = json.Marshal(log.AfterState)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (
			id, actor_id, action, resource_type, resource_id,
			request_id, after_state, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.RequestID,
		afterStateJSON,
		log.Status,
		log.ErrorMessage,
		log.CreatedAt,
	)

	return err
}

// List retrieves audit logs with filtering
func (r *AuditRepository) List(ctx context.Context, filter *domain.AuditFilter) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, actor_id, action, resource_type, resource_id,
		       request_id, after_state, status, error_message, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []any{}

	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(` AND actor_id = $%d`, len(args))
	}

	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(` AND action = $%d`, len(args))
	}

	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		query += fmt.Sprintf(` AND resource_type = $%d`, len(args))
	}

	if filter.ResourceID != "" {
		args = append(args, filter.ResourceID)
		query += fmt.Sprintf(` AND resource_id = $%d`, len(args))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var afterState []byte
		err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.RequestID,
			&afterState,
			&log.Status,
			&log.ErrorMessage,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if afterState != nil {
			_ = json.Unmarshal(afterState, &log.AfterState)
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
