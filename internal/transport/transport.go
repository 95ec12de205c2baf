// Package transport abstracts the chat channel notifications go out on.
// The engine only depends on the Client interface; the concrete Telegram
// client lives alongside so the wiring stays in one place.
package transport

import "context"

// Button is an inline action attached to a message.
type Button struct {
	Label string
	Data  string
}

// Client delivers rendered text to a chat recipient. Implementations
// must respect ctx deadlines; a send must never block indefinitely.
type Client interface {
	SendMessage(ctx context.Context, chatID, text string, buttons []Button) error
	EditMessage(ctx context.Context, chatID, messageID, text string) error
	// Reconnect re-establishes the underlying connection. Used as the
	// liveness coordinator's self-recovery action.
	Reconnect(ctx context.Context) error
}
