package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erixcast/support-service/internal/domain"
)

// DeliveryLogRepository records per-recipient notification outcomes for
// diagnostics. Writes are best-effort from the dispatcher's point of view.
type DeliveryLogRepository interface {
	Create(ctx context.Context, rec *domain.DeliveryRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.DeliveryRecord, error)
}

type deliveryLogRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryLogRepository instantiates repository.
func NewDeliveryLogRepository(pool *pgxpool.Pool) DeliveryLogRepository {
	return &deliveryLogRepository{pool: pool}
}

func (r *deliveryLogRepository) Create(ctx context.Context, rec *domain.DeliveryRecord) error {
	const query = `
        INSERT INTO notification_deliveries (event_kind, recipient, status, error)
        VALUES ($1,$2,$3,$4)
        RETURNING id, attempted_at`
	return r.pool.QueryRow(ctx, query,
		rec.EventKind,
		rec.Recipient,
		rec.Status,
		rec.Error,
	).Scan(&rec.ID, &rec.AttemptedAt)
}

func (r *deliveryLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, event_kind, recipient, status, error, attempted_at
        FROM notification_deliveries ORDER BY attempted_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DeliveryRecord
	for rows.Next() {
		var rec domain.DeliveryRecord
		if err := rows.Scan(&rec.ID, &rec.EventKind, &rec.Recipient, &rec.Status, &rec.Error, &rec.AttemptedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
