package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPAssistant calls an external reply-drafting endpoint. The endpoint
// accepts the full reply context and returns drafted text with a
// confidence score.
type HTTPAssistant struct {
	url    string
	client *http.Client
}

// NewHTTPAssistant builds the client. The tracker bounds each call with
// its own context deadline, so no client-level timeout is set here.
func NewHTTPAssistant(url string) *HTTPAssistant {
	return &HTTPAssistant{url: url, client: &http.Client{}}
}

type draftRequest struct {
	TicketID     string             `json:"ticket_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Conversation []ConversationTurn `json:"conversation,omitempty"`
	Locale       string             `json:"locale,omitempty"`
}

type draftResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// GenerateReply submits the context and parses the drafted reply.
func (a *HTTPAssistant) GenerateReply(ctx context.Context, rc ReplyContext) (Reply, error) {
	body, err := json.Marshal(draftRequest{
		TicketID:     rc.TicketID,
		Title:        rc.Title,
		Description:  rc.Description,
		Conversation: rc.Conversation,
		Locale:       rc.Locale,
	})
	if err != nil {
		return Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reply{}, err
	}
	var parsed draftResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Reply{}, fmt.Errorf("assistant response malformed: %w", err)
	}
	return Reply{Text: parsed.Text, Confidence: parsed.Confidence}, nil
}
