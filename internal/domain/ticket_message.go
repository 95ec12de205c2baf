package domain

import "time"

// MessageAuthorType indicates who authored a ticket message.
type MessageAuthorType string

const (
	AuthorTypeOwner     MessageAuthorType = "OWNER"
	AuthorTypeOperator  MessageAuthorType = "OPERATOR"
	AuthorTypeAssistant MessageAuthorType = "ASSISTANT"
)

// TicketMessage captures one entry of a ticket conversation thread.
type TicketMessage struct {
	ID         string
	TicketID   string
	AuthorType MessageAuthorType
	AuthorID   *string
	Body       string
	CreatedAt  time.Time
}
