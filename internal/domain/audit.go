package domain

import "time"

// TicketEventType captures what happened in an audit trail entry.
type TicketEventType string

const (
	TicketEventCreated          TicketEventType = "CREATED"
	TicketEventAttemptSucceeded TicketEventType = "ATTEMPT_SUCCEEDED"
	TicketEventAttemptFailed    TicketEventType = "ATTEMPT_FAILED"
	TicketEventEscalated        TicketEventType = "ESCALATED"
	TicketEventOperatorReplied  TicketEventType = "OPERATOR_REPLIED"
	TicketEventResolved         TicketEventType = "RESOLVED"
	TicketEventClosed           TicketEventType = "CLOSED"
)

// TicketAuditEntry is an immutable audit trail record for a ticket.
type TicketAuditEntry struct {
	ID        string
	TicketID  string
	EventType TicketEventType
	ActorType MessageAuthorType
	ActorID   *string
	Detail    string
	CreatedAt time.Time
}
