package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/config"
)

// TelegramClient talks to the Telegram Bot API over plain HTTP.
type TelegramClient struct {
	apiBase string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewTelegramClient builds a client from config.
func NewTelegramClient(cfg config.TelegramConfig, logger *zap.Logger) *TelegramClient {
	return &TelegramClient{
		apiBase: cfg.APIBase,
		token:   cfg.BotToken,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string                `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type editMessageRequest struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage delivers text (and optional inline buttons) to one chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string, buttons []Button) error {
	payload := sendMessageRequest{ChatID: chatID, Text: text}
	if len(buttons) > 0 {
		markup := &inlineKeyboardMarkup{}
		for _, b := range buttons {
			markup.InlineKeyboard = append(markup.InlineKeyboard, []inlineKeyboardButton{{Text: b.Label, CallbackData: b.Data}})
		}
		payload.ReplyMarkup = markup
	}
	return c.call(ctx, "sendMessage", payload)
}

// EditMessage replaces a previously sent message's text.
func (c *TelegramClient) EditMessage(ctx context.Context, chatID, messageID, text string) error {
	return c.call(ctx, "editMessageText", editMessageRequest{ChatID: chatID, MessageID: messageID, Text: text})
}

// Reconnect drops idle connections and verifies the API answers.
func (c *TelegramClient) Reconnect(ctx context.Context) error {
	c.client.CloseIdleConnections()
	return c.call(ctx, "getMe", struct{}{})
}

func (c *TelegramClient) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return err
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("telegram %s: unexpected response (status %d)", method, resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram %s: %s", method, parsed.Description)
	}
	return nil
}
