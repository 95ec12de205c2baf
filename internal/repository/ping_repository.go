package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erixcast/support-service/internal/domain"
)

// PingRepository persists liveness probe results.
type PingRepository interface {
	Create(ctx context.Context, res *domain.ProbeResult) error
	ListByProbe(ctx context.Context, probeName string, limit int) ([]domain.ProbeResult, error)
}

type pingRepository struct {
	pool *pgxpool.Pool
}

// NewPingRepository instantiates repository.
func NewPingRepository(pool *pgxpool.Pool) PingRepository {
	return &pingRepository{pool: pool}
}

func (r *pingRepository) Create(ctx context.Context, res *domain.ProbeResult) error {
	const query = `
        INSERT INTO uptime_pings (probe_name, endpoint, success, latency_ms, error)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, observed_at`
	return r.pool.QueryRow(ctx, query,
		res.ProbeName,
		res.Endpoint,
		res.Success,
		res.LatencyMS,
		res.Error,
	).Scan(&res.ID, &res.ObservedAt)
}

func (r *pingRepository) ListByProbe(ctx context.Context, probeName string, limit int) ([]domain.ProbeResult, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, probe_name, endpoint, success, latency_ms, error, observed_at
        FROM uptime_pings WHERE probe_name=$1 ORDER BY observed_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, probeName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProbeResult
	for rows.Next() {
		var res domain.ProbeResult
		if err := rows.Scan(&res.ID, &res.ProbeName, &res.Endpoint, &res.Success, &res.LatencyMS, &res.Error, &res.ObservedAt); err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, rows.Err()
}
