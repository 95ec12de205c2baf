package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erixcast/support-service/internal/domain"
)

// TicketAuditRepository records immutable ticket trail entries.
type TicketAuditRepository interface {
	Create(ctx context.Context, entry *domain.TicketAuditEntry) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketAuditEntry, error)
}

type ticketAuditRepository struct {
	pool *pgxpool.Pool
}

// NewTicketAuditRepository instantiates repository.
func NewTicketAuditRepository(pool *pgxpool.Pool) TicketAuditRepository {
	return &ticketAuditRepository{pool: pool}
}

func (r *ticketAuditRepository) Create(ctx context.Context, entry *domain.TicketAuditEntry) error {
	const query = `
        INSERT INTO ticket_audit (ticket_id, event_type, actor_type, actor_id, detail)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.EventType,
		entry.ActorType,
		entry.ActorID,
		entry.Detail,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketAuditRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketAuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, event_type, actor_type, actor_id, detail, created_at
        FROM ticket_audit WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAuditEntry
	for rows.Next() {
		var entry domain.TicketAuditEntry
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.EventType, &entry.ActorType, &entry.ActorID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
