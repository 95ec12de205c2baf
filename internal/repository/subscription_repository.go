package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erixcast/support-service/internal/domain"
)

// SubscriptionRepository stores the lists approval workflows act on.
// Renewal and deletion of a list happen inside ApprovalRepository.Decide;
// this repository only covers operator-managed creation and reads.
type SubscriptionRepository interface {
	Create(ctx context.Context, list *domain.SubscriptionList) error
	GetByName(ctx context.Context, name string) (*domain.SubscriptionList, error)
	Update(ctx context.Context, list *domain.SubscriptionList) error
	List(ctx context.Context, limit, offset int) ([]domain.SubscriptionList, error)
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository instantiates repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Create(ctx context.Context, list *domain.SubscriptionList) error {
	const query = `
        INSERT INTO subscription_lists (name, cost_eur, expires_at, notes)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		list.Name,
		list.CostEUR,
		list.ExpiresAt,
		list.Notes,
	).Scan(&list.ID, &list.CreatedAt, &list.UpdatedAt)
}

func (r *subscriptionRepository) GetByName(ctx context.Context, name string) (*domain.SubscriptionList, error) {
	const query = `
        SELECT id, name, cost_eur, expires_at, notes, created_at, updated_at
        FROM subscription_lists WHERE name=$1`
	var list domain.SubscriptionList
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&list.ID,
		&list.Name,
		&list.CostEUR,
		&list.ExpiresAt,
		&list.Notes,
		&list.CreatedAt,
		&list.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, list *domain.SubscriptionList) error {
	const query = `
        UPDATE subscription_lists SET cost_eur=$1, expires_at=$2, notes=$3, updated_at=NOW()
        WHERE id=$4`
	_, err := r.pool.Exec(ctx, query, list.CostEUR, list.ExpiresAt, list.Notes, list.ID)
	return err
}

func (r *subscriptionRepository) List(ctx context.Context, limit, offset int) ([]domain.SubscriptionList, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, name, cost_eur, expires_at, notes, created_at, updated_at
        FROM subscription_lists ORDER BY name ASC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SubscriptionList
	for rows.Next() {
		var list domain.SubscriptionList
		if err := rows.Scan(&list.ID, &list.Name, &list.CostEUR, &list.ExpiresAt, &list.Notes, &list.CreatedAt, &list.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, list)
	}
	return result, rows.Err()
}
