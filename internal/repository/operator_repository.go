package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erixcast/support-service/internal/domain"
)

// OperatorRepository manages operator records. ListActive backs the
// notification dispatcher's recipient resolution.
type OperatorRepository interface {
	Create(ctx context.Context, op *domain.Operator) error
	GetByID(ctx context.Context, id string) (*domain.Operator, error)
	GetByEmail(ctx context.Context, email string) (*domain.Operator, error)
	ListActive(ctx context.Context) ([]domain.Operator, error)
}

type operatorRepository struct {
	pool *pgxpool.Pool
}

// NewOperatorRepository instantiates repository.
func NewOperatorRepository(pool *pgxpool.Pool) OperatorRepository {
	return &operatorRepository{pool: pool}
}

const operatorColumns = `id, name, email, password_hash, role, chat_id, locale, active, created_at, updated_at`

func (r *operatorRepository) Create(ctx context.Context, op *domain.Operator) error {
	const query = `
        INSERT INTO operators (name, email, password_hash, role, chat_id, locale, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		op.Name,
		op.Email,
		op.PasswordHash,
		op.Role,
		op.ChatID,
		op.Locale,
		op.Active,
	).Scan(&op.ID, &op.CreatedAt, &op.UpdatedAt)
}

func (r *operatorRepository) GetByID(ctx context.Context, id string) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *operatorRepository) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *operatorRepository) ListActive(ctx context.Context) ([]domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE active=TRUE ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Operator
	for rows.Next() {
		var op domain.Operator
		if err := rows.Scan(
			&op.ID,
			&op.Name,
			&op.Email,
			&op.PasswordHash,
			&op.Role,
			&op.ChatID,
			&op.Locale,
			&op.Active,
			&op.CreatedAt,
			&op.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, op)
	}
	return result, rows.Err()
}

func (r *operatorRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Operator, error) {
	var op domain.Operator
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&op.ID,
		&op.Name,
		&op.Email,
		&op.PasswordHash,
		&op.Role,
		&op.ChatID,
		&op.Locale,
		&op.Active,
		&op.CreatedAt,
		&op.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &op, nil
}
