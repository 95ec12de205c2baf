package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/observability"
	"github.com/erixcast/support-service/internal/transport"
)

type staticDirectory struct {
	owner     Recipient
	ownerErr  error
	operators []Recipient
}

func (d *staticDirectory) ResolveOwner(_ context.Context, _ string) (Recipient, error) {
	return d.owner, d.ownerErr
}

func (d *staticDirectory) ResolveOperators(_ context.Context) ([]Recipient, error) {
	return d.operators, nil
}

type capturingClient struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]error
}

type sentMessage struct {
	chatID  string
	text    string
	buttons []transport.Button
}

func (c *capturingClient) SendMessage(_ context.Context, chatID, text string, buttons []transport.Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.fail[chatID]; ok {
		return err
	}
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text, buttons: buttons})
	return nil
}

func (c *capturingClient) EditMessage(_ context.Context, _, _, _ string) error { return nil }

func (c *capturingClient) Reconnect(_ context.Context) error { return nil }

func newTestDispatcher(t *testing.T, directory Directory, client transport.Client) *Dispatcher {
	t.Helper()
	renderer, err := NewTemplateTable("it")
	require.NoError(t, err)
	return NewDispatcher(directory, renderer, client, nil, observability.NewMetrics(), zap.NewNop(), time.Second, "it")
}

func TestSendToOwnerRendersInRecipientLocale(t *testing.T) {
	client := &capturingClient{}
	dispatcher := newTestDispatcher(t, &staticDirectory{
		owner: Recipient{ChatID: "chat-1", Locale: "en"},
	}, client)

	outcomes := dispatcher.Send(context.Background(), Message{
		TemplateKey: "ticket_closed",
		OwnerID:     "user-1",
		Fields:      map[string]string{"ticket_key": "TCK-AB12CD34"},
	})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Delivered)
	require.Len(t, client.sent, 1)
	assert.Contains(t, client.sent[0].text, "TCK-AB12CD34")
	assert.Contains(t, client.sent[0].text, "closed")
}

func TestSendFallsBackToDefaultLocale(t *testing.T) {
	client := &capturingClient{}
	dispatcher := newTestDispatcher(t, &staticDirectory{
		owner: Recipient{ChatID: "chat-1", Locale: "de"},
	}, client)

	outcomes := dispatcher.Send(context.Background(), Message{
		TemplateKey: "ticket_resolved",
		OwnerID:     "user-1",
		Fields:      map[string]string{"ticket_key": "TCK-00000001"},
	})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Delivered)
	require.Len(t, client.sent, 1)
	assert.Contains(t, client.sent[0].text, "risolto")
}

func TestSendToOperatorsFansOut(t *testing.T) {
	client := &capturingClient{}
	dispatcher := newTestDispatcher(t, &staticDirectory{
		operators: []Recipient{
			{ChatID: "op-chat-1", Locale: "it"},
			{ChatID: "op-chat-2", Locale: "en"},
		},
	}, client)

	buttons := []transport.Button{{Label: "✅ Approva", Data: "approve:req-1"}}
	outcomes := dispatcher.Send(context.Background(), Message{
		TemplateKey: "request_submitted",
		ToOperators: true,
		Fields: map[string]string{
			"kind":      "RENEWAL",
			"subject":   "premium",
			"requester": "user-1",
			"detail":    "3 months, 45 EUR",
		},
		Buttons: buttons,
	})

	require.Len(t, outcomes, 2)
	require.Len(t, client.sent, 2)
	for _, msg := range client.sent {
		assert.Contains(t, msg.text, "premium")
		assert.Equal(t, buttons, msg.buttons)
	}
}

func TestSendFailureNeverPropagates(t *testing.T) {
	client := &capturingClient{fail: map[string]error{"op-chat-1": errors.New("chat unreachable")}}
	dispatcher := newTestDispatcher(t, &staticDirectory{
		operators: []Recipient{
			{ChatID: "op-chat-1"},
			{ChatID: "op-chat-2"},
		},
	}, client)

	outcomes := dispatcher.Send(context.Background(), Message{
		TemplateKey: "ticket_escalated",
		ToOperators: true,
		Fields: map[string]string{
			"ticket_key": "TCK-FFFFFFFF",
			"owner":      "user-1",
			"attempts":   "2",
			"reason":     "automated attempts exhausted",
		},
	})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Delivered)
	assert.Equal(t, "chat unreachable", outcomes[0].Error)
	assert.True(t, outcomes[1].Delivered)
	require.Len(t, client.sent, 1, "the second operator still receives the message")
}

func TestSendUnresolvableOwner(t *testing.T) {
	client := &capturingClient{}
	dispatcher := newTestDispatcher(t, &staticDirectory{
		ownerErr: errors.New("user has no chat channel"),
	}, client)

	outcomes := dispatcher.Send(context.Background(), Message{
		TemplateKey: "ticket_created",
		OwnerID:     "user-1",
		Fields:      map[string]string{"ticket_key": "TCK-1", "title": "x"},
	})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Delivered)
	assert.Empty(t, client.sent)
}

func TestSendUnknownTemplate(t *testing.T) {
	client := &capturingClient{}
	dispatcher := newTestDispatcher(t, &staticDirectory{
		owner: Recipient{ChatID: "chat-1"},
	}, client)

	outcomes := dispatcher.Send(context.Background(), Message{
		TemplateKey: "no_such_template",
		OwnerID:     "user-1",
	})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Delivered)
	assert.True(t, strings.Contains(outcomes[0].Error, "no_such_template"))
}
