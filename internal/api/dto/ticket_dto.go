package dto

import (
	"time"

	"github.com/erixcast/support-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FollowUpRequest payload for owner follow-up messages.
type FollowUpRequest struct {
	Body string `json:"body"`
}

// OperatorReplyRequest payload.
type OperatorReplyRequest struct {
	Body string `json:"body"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Note string `json:"note"`
}

// EscalateRequest payload for manual escalation.
type EscalateRequest struct {
	Reason string `json:"reason"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                string             `json:"id"`
	ExternalKey       string             `json:"external_key"`
	Title             string             `json:"title"`
	State             domain.TicketState `json:"state"`
	AutomatedAttempts int                `json:"automated_attempts"`
	Escalated         bool               `json:"escalated"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with the thread.
type TicketDetailResponse struct {
	ID                string                  `json:"id"`
	ExternalKey       string                  `json:"external_key"`
	OwnerID           string                  `json:"owner_id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	State             domain.TicketState      `json:"state"`
	AutomatedAttempts int                     `json:"automated_attempts"`
	Escalated         bool                    `json:"escalated"`
	EscalationReason  *string                 `json:"escalation_reason,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	ClosedAt          *time.Time              `json:"closed_at,omitempty"`
	Messages          []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID         string                   `json:"id"`
	AuthorType domain.MessageAuthorType `json:"author_type"`
	AuthorID   *string                  `json:"author_id,omitempty"`
	Body       string                   `json:"body"`
	CreatedAt  time.Time                `json:"created_at"`
}

// AuditEntryResponse is one audit trail line.
type AuditEntryResponse struct {
	ID        string                   `json:"id"`
	EventType domain.TicketEventType   `json:"event_type"`
	ActorType domain.MessageAuthorType `json:"actor_type"`
	ActorID   *string                  `json:"actor_id,omitempty"`
	Detail    string                   `json:"detail,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}
