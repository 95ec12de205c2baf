package transport

import (
	"context"

	"go.uber.org/zap"
)

// LogClient is the transport used when no bot token is configured: it
// logs what would have been sent. Keeps local development working
// without external credentials.
type LogClient struct {
	logger *zap.Logger
}

// NewLogClient constructs the log-only transport.
func NewLogClient(logger *zap.Logger) *LogClient {
	return &LogClient{logger: logger}
}

func (c *LogClient) SendMessage(ctx context.Context, chatID, text string, buttons []Button) error {
	c.logger.Info("transport send (log only)",
		zap.String("chat_id", chatID),
		zap.String("text", text),
		zap.Int("buttons", len(buttons)))
	return nil
}

func (c *LogClient) EditMessage(ctx context.Context, chatID, messageID, text string) error {
	c.logger.Info("transport edit (log only)",
		zap.String("chat_id", chatID),
		zap.String("message_id", messageID))
	return nil
}

func (c *LogClient) Reconnect(ctx context.Context) error {
	return nil
}
