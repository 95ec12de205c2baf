package domain

import "time"

// TicketState enumerates lifecycle states for support tickets.
type TicketState string

const (
	TicketStateOpen              TicketState = "OPEN"
	TicketStateAwaitingAutoReply TicketState = "AWAITING_AUTOMATED_REPLY"
	TicketStateEscalated         TicketState = "ESCALATED"
	TicketStateResolved          TicketState = "RESOLVED"
	TicketStateClosed            TicketState = "CLOSED"
)

// AutomatedAttemptCap is the maximum number of automated-reply attempts
// before escalation to an operator is mandatory.
const AutomatedAttemptCap = 2

// Ticket is the aggregate for support requests. Version guards
// compare-and-swap updates so concurrent follow-ups cannot race the
// attempt counter past the cap.
type Ticket struct {
	ID                string
	ExternalKey       string
	OwnerID           string
	Title             string
	Description       string
	State             TicketState
	AutomatedAttempts int
	Escalated         bool
	EscalationReason  *string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ClosedAt          *time.Time
}

// Terminal reports whether the ticket reached a final state.
func (t *Ticket) Terminal() bool {
	return t.State == TicketStateClosed
}
