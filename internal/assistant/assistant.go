// Package assistant wraps the external reply-drafting model behind a
// narrow interface and a bounded attempt wrapper. All attempt counting
// lives in the ticket service so the cap invariant has a single writer.
package assistant

import "context"

// ConversationTurn is one prior message of a ticket thread.
type ConversationTurn struct {
	Role string
	Text string
}

// ReplyContext is everything the assistant sees for one attempt.
type ReplyContext struct {
	TicketID     string
	Title        string
	Description  string
	Conversation []ConversationTurn
	Locale       string
}

// Reply is a drafted answer with the model's self-reported confidence.
type Reply struct {
	Text       string
	Confidence float64
}

// Assistant drafts replies to support requests. Implementations must
// honor ctx cancellation.
type Assistant interface {
	GenerateReply(ctx context.Context, rc ReplyContext) (Reply, error)
}
