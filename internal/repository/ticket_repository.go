package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erixcast/support-service/internal/domain"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	OwnerID *string
	States  []domain.TicketState
	Limit   int
	Offset  int
}

// TicketRepository encapsulates ticket persistence. UpdateVersioned is a
// compare-and-swap on the version column: a lost race returns a Conflict
// error and the caller must re-read before retrying.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateVersioned(ctx context.Context, ticket *domain.Ticket) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByState(ctx context.Context, state domain.TicketState) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, owner_user_id, title, description, state,
       automated_attempts, escalated, escalation_reason, version, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, owner_user_id, title, description, state, automated_attempts, escalated, escalation_reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.OwnerID,
		ticket.Title,
		ticket.Description,
		ticket.State,
		ticket.AutomatedAttempts,
		ticket.Escalated,
		ticket.EscalationReason,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// UpdateVersioned persists mutable fields guarded by the version the caller
// read. On success the ticket's version is advanced in place.
func (r *ticketRepository) UpdateVersioned(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET description=$1, state=$2, automated_attempts=$3, escalated=$4,
            escalation_reason=$5, closed_at=$6, version=version+1, updated_at=NOW()
        WHERE id=$7 AND version=$8`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Description,
		ticket.State,
		ticket.AutomatedAttempts,
		ticket.Escalated,
		ticket.EscalationReason,
		ticket.ClosedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, ticket.ID); err != nil {
			return err
		}
		return apperrors.NewConflict("ticket modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.OwnerID,
		&ticket.Title,
		&ticket.Description,
		&ticket.State,
		&ticket.AutomatedAttempts,
		&ticket.Escalated,
		&ticket.EscalationReason,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_user_id=$%d", len(args)))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByState(ctx context.Context, state domain.TicketState) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE state=$1`
	var count int64
	if err := r.pool.QueryRow(ctx, query, state).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.OwnerID,
			&ticket.Title,
			&ticket.Description,
			&ticket.State,
			&ticket.AutomatedAttempts,
			&ticket.Escalated,
			&ticket.EscalationReason,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
