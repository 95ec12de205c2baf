package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/events"
	"github.com/erixcast/support-service/internal/notify"
	"github.com/erixcast/support-service/internal/transport"
)

// NotificationService translates domain events into outbound messages.
// Every state transition carries exactly one notification to the party
// it affects: owners hear about their own tickets and requests,
// operators hear about escalations, pending approvals and degraded
// health.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     *notify.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender *notify.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every event the engine emits.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventAttemptSucceeded, n.handleAttempt)
	n.dispatcher.Subscribe(events.EventAttemptFailed, n.handleAttempt)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventOwnerFollowUp, n.handleOwnerFollowUp)
	n.dispatcher.Subscribe(events.EventOperatorReplied, n.handleOperatorReplied)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketStateChanged)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketStateChanged)
	n.dispatcher.Subscribe(events.EventRequestSubmitted, n.handleRequestSubmitted)
	n.dispatcher.Subscribe(events.EventRequestDecided, n.handleRequestDecided)
	n.dispatcher.Subscribe(events.EventHealthDegraded, n.handleHealthDegraded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return n.badPayload(event)
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: string(event.Type),
		OwnerID:     payload.OwnerID,
		Fields: map[string]string{
			"ticket_key": payload.TicketKey,
			"title":      payload.Title,
		},
	})
	return nil
}

func (n *NotificationService) handleAttempt(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AttemptPayload)
	if !ok {
		return n.badPayload(event)
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: string(event.Type),
		OwnerID:     payload.OwnerID,
		Fields: map[string]string{
			"ticket_key": payload.TicketKey,
			"reply":      payload.ReplyText,
			"attempts":   strconv.Itoa(payload.AttemptCount),
		},
	})
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return n.badPayload(event)
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: string(event.Type),
		ToOperators: true,
		Fields: map[string]string{
			"ticket_key": payload.TicketKey,
			"owner":      payload.OwnerID,
			"attempts":   strconv.Itoa(payload.AttemptCount),
			"reason":     payload.Reason,
		},
	})
	return nil
}

func (n *NotificationService) handleOwnerFollowUp(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OwnerFollowUpPayload)
	if !ok {
		return n.badPayload(event)
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: string(event.Type),
		ToOperators: true,
		Fields: map[string]string{
			"ticket_key": payload.TicketKey,
			"owner":      payload.OwnerID,
			"message":    payload.Body,
		},
	})
	return nil
}

func (n *NotificationService) handleOperatorReplied(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OperatorReplyPayload)
	if !ok {
		return n.badPayload(event)
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: string(event.Type),
		OwnerID:     payload.OwnerID,
		Fields: map[string]string{
			"ticket_key": payload.TicketKey,
			"reply":      payload.Body,
		},
	})
	return nil
}

func (n *NotificationService) handleTicketStateChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStateChangedPayload)
	if !ok {
		return n.badPayload(event)
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: string(event.Type),
		OwnerID:     payload.OwnerID,
		Fields: map[string]string{
			"ticket_key": payload.TicketKey,
		},
	})
	return nil
}

func (n *NotificationService) handleRequestSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestSubmittedPayload)
	if !ok {
		return n.badPayload(event)
	}
	detail := payload.Reason
	if payload.Kind == domain.ApprovalKindRenewal {
		detail = fmt.Sprintf("%d mesi, %d EUR", payload.Months, payload.CostEUR)
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: string(event.Type),
		ToOperators: true,
		Fields: map[string]string{
			"kind":      string(payload.Kind),
			"subject":   payload.SubjectName,
			"requester": payload.RequesterID,
			"detail":    detail,
		},
		Buttons: []transport.Button{
			{Label: "✅ Approva", Data: "approve:" + event.RequestID},
			{Label: "❌ Rifiuta", Data: "reject:" + event.RequestID},
		},
	})
	return nil
}

func (n *NotificationService) handleRequestDecided(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestDecidedPayload)
	if !ok {
		return n.badPayload(event)
	}

	templateKey := "request_rejected"
	detail := ""
	if payload.State == domain.ApprovalStateApproved {
		templateKey = "request_approved"
		if payload.NewExpiry != nil {
			detail = "Nuova scadenza: " + payload.NewExpiry.Format("2006-01-02")
		}
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: templateKey,
		OwnerID:     payload.RequesterID,
		Fields: map[string]string{
			"kind":    string(payload.Kind),
			"subject": payload.SubjectName,
			"notes":   payload.Notes,
			"detail":  detail,
		},
	})
	return nil
}

func (n *NotificationService) handleHealthDegraded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.HealthDegradedPayload)
	if !ok {
		return n.badPayload(event)
	}
	templateKey := "health_degraded"
	if payload.Recovered {
		templateKey = "health_recovered"
	}
	n.sender.Send(ctx, notify.Message{
		TemplateKey: templateKey,
		ToOperators: true,
		Fields: map[string]string{
			"probe":    payload.ProbeName,
			"failures": strconv.Itoa(payload.ConsecutiveFailures),
			"error":    payload.LastError,
		},
	})
	return nil
}

func (n *NotificationService) badPayload(event events.Event) error {
	n.logger.Error("event payload has unexpected type",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
	return fmt.Errorf("unexpected payload for event %s", event.Type)
}
