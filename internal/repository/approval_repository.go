package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erixcast/support-service/internal/domain"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

// DecisionOutcome reports what Decide did. NewExpiry is set only for an
// approved renewal.
type DecisionOutcome struct {
	Request   *domain.ApprovalRequest
	NewExpiry *time.Time
}

// ApprovalRequestFilter captures listing parameters.
type ApprovalRequestFilter struct {
	Kind        *domain.ApprovalKind
	State       *domain.ApprovalState
	RequesterID *string
	Limit       int
	Offset      int
}

// ApprovalRepository stores gated-approval requests. Decide transitions a
// PENDING request to its terminal state and applies the subject mutation
// (renew or delete the subscription list) in the same transaction, so no
// reader can observe one without the other.
type ApprovalRepository interface {
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	ListWithFilter(ctx context.Context, filter ApprovalRequestFilter) ([]domain.ApprovalRequest, error)
	Decide(ctx context.Context, id string, decision domain.Decision, operatorID string, notes string) (*DecisionOutcome, error)
}

type approvalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository instantiates repository.
func NewApprovalRepository(pool *pgxpool.Pool) ApprovalRepository {
	return &approvalRepository{pool: pool}
}

const approvalColumns = `id, kind, subject_name, requester_user_id, months, cost_eur, reason,
       state, notes, decided_by, decided_at, created_at`

func (r *approvalRepository) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	const query = `
        INSERT INTO approval_requests (kind, subject_name, requester_user_id, months, cost_eur, reason, state)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		req.Kind,
		req.SubjectName,
		req.RequesterID,
		req.Months,
		req.CostEUR,
		req.Reason,
		req.State,
	).Scan(&req.ID, &req.CreatedAt)
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id=$1`
	var req domain.ApprovalRequest
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.Kind,
		&req.SubjectName,
		&req.RequesterID,
		&req.Months,
		&req.CostEUR,
		&req.Reason,
		&req.State,
		&req.Notes,
		&req.DecidedBy,
		&req.DecidedAt,
		&req.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *approvalRepository) ListWithFilter(ctx context.Context, filter ApprovalRequestFilter) ([]domain.ApprovalRequest, error) {
	base := `SELECT ` + approvalColumns + ` FROM approval_requests`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, fmt.Sprintf("kind=$%d", len(args)))
	}
	if filter.State != nil {
		args = append(args, *filter.State)
		clauses = append(clauses, fmt.Sprintf("state=$%d", len(args)))
	}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_user_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalRequest
	for rows.Next() {
		var req domain.ApprovalRequest
		if err := rows.Scan(
			&req.ID,
			&req.Kind,
			&req.SubjectName,
			&req.RequesterID,
			&req.Months,
			&req.CostEUR,
			&req.Reason,
			&req.State,
			&req.Notes,
			&req.DecidedBy,
			&req.DecidedAt,
			&req.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

// Decide flips a PENDING request exactly once. The conditional UPDATE takes
// a row lock, so of any number of concurrent calls exactly one matches; the
// rest see the decided row and get AlreadyDecided.
func (r *approvalRepository) Decide(ctx context.Context, id string, decision domain.Decision, operatorID string, notes string) (*DecisionOutcome, error) {
	state := domain.ApprovalStateRejected
	if decision == domain.DecisionApprove {
		state = domain.ApprovalStateApproved
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const decideQuery = `
        UPDATE approval_requests SET state=$2, notes=NULLIF($3,''), decided_by=$4, decided_at=NOW()
        WHERE id=$1 AND state='PENDING'
        RETURNING ` + approvalColumns
	var req domain.ApprovalRequest
	err = tx.QueryRow(ctx, decideQuery, id, state, notes, operatorID).Scan(
		&req.ID,
		&req.Kind,
		&req.SubjectName,
		&req.RequesterID,
		&req.Months,
		&req.CostEUR,
		&req.Reason,
		&req.State,
		&req.Notes,
		&req.DecidedBy,
		&req.DecidedAt,
		&req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.NewAlreadyDecided(id)
		}
		return nil, err
	}

	outcome := &DecisionOutcome{Request: &req}
	if state == domain.ApprovalStateApproved {
		switch req.Kind {
		case domain.ApprovalKindRenewal:
			const renewQuery = `
                UPDATE subscription_lists
                SET expires_at = GREATEST(COALESCE(expires_at, NOW()), NOW()) + make_interval(days => $2 * 30),
                    updated_at = NOW()
                WHERE name=$1
                RETURNING expires_at`
			var newExpiry time.Time
			if err := tx.QueryRow(ctx, renewQuery, req.SubjectName, req.Months).Scan(&newExpiry); err != nil {
				return nil, err
			}
			outcome.NewExpiry = &newExpiry
		case domain.ApprovalKindDeletion:
			cmd, err := tx.Exec(ctx, `DELETE FROM subscription_lists WHERE name=$1`, req.SubjectName)
			if err != nil {
				return nil, err
			}
			if cmd.RowsAffected() == 0 {
				return nil, pgx.ErrNoRows
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return outcome, nil
}
