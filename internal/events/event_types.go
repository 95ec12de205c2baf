package events

import (
	"time"

	"github.com/erixcast/support-service/internal/domain"
)

// EventType enumerates supported event identifiers. Every ticket or
// approval state transition publishes exactly one event.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventAttemptSucceeded EventType = "attempt_succeeded"
	EventAttemptFailed    EventType = "attempt_failed"
	EventTicketEscalated  EventType = "ticket_escalated"
	EventOwnerFollowUp    EventType = "owner_followup"
	EventOperatorReplied  EventType = "operator_replied"
	EventTicketResolved   EventType = "ticket_resolved"
	EventTicketClosed     EventType = "ticket_closed"
	EventRequestSubmitted EventType = "request_submitted"
	EventRequestDecided   EventType = "request_decided"
	EventHealthDegraded   EventType = "health_degraded"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	UserID     *string            `json:"user_id,omitempty"`
	OperatorID *string            `json:"operator_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketKey string `json:"ticket_key"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
}

// AttemptPayload describes one automated-reply attempt outcome.
type AttemptPayload struct {
	TicketKey    string `json:"ticket_key"`
	OwnerID      string `json:"owner_id"`
	AttemptCount int    `json:"attempt_count"`
	ReplyText    string `json:"reply_text,omitempty"`
	FailureCause string `json:"failure_cause,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	TicketKey    string `json:"ticket_key"`
	OwnerID      string `json:"owner_id"`
	AttemptCount int    `json:"attempt_count"`
	Reason       string `json:"reason"`
}

// OwnerFollowUpPayload relays a message written on an escalated ticket.
type OwnerFollowUpPayload struct {
	TicketKey string `json:"ticket_key"`
	OwnerID   string `json:"owner_id"`
	Body      string `json:"body"`
}

// OperatorReplyPayload payload.
type OperatorReplyPayload struct {
	TicketKey string `json:"ticket_key"`
	OwnerID   string `json:"owner_id"`
	Body      string `json:"body"`
}

// TicketStateChangedPayload covers resolve/close transitions.
type TicketStateChangedPayload struct {
	TicketKey string             `json:"ticket_key"`
	OwnerID   string             `json:"owner_id"`
	OldState  domain.TicketState `json:"old_state"`
	NewState  domain.TicketState `json:"new_state"`
}

// RequestSubmittedPayload payload.
type RequestSubmittedPayload struct {
	Kind        domain.ApprovalKind `json:"kind"`
	SubjectName string              `json:"subject_name"`
	RequesterID string              `json:"requester_id"`
	Months      int                 `json:"months,omitempty"`
	CostEUR     int                 `json:"cost_eur,omitempty"`
	Reason      string              `json:"reason,omitempty"`
}

// RequestDecidedPayload payload.
type RequestDecidedPayload struct {
	Kind        domain.ApprovalKind  `json:"kind"`
	SubjectName string               `json:"subject_name"`
	RequesterID string               `json:"requester_id"`
	State       domain.ApprovalState `json:"state"`
	Notes       string               `json:"notes,omitempty"`
	NewExpiry   *time.Time           `json:"new_expiry,omitempty"`
}

// HealthDegradedPayload payload.
type HealthDegradedPayload struct {
	ProbeName           string `json:"probe_name"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error"`
	Recovered           bool   `json:"recovered"`
}
