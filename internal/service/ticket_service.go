package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/assistant"
	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/events"
	"github.com/erixcast/support-service/internal/observability"
	"github.com/erixcast/support-service/internal/repository"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

const (
	titleMinLen       = 3
	descriptionMinLen = 10
)

// TicketService coordinates the support-request lifecycle: creation,
// automated-reply attempts, escalation, operator handling and closure.
// All writes to a ticket go through a versioned compare-and-swap; a lost
// race is retried once against a fresh read before the Conflict surfaces.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	audit      repository.TicketAuditRepository
	tracker    *assistant.Tracker
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	AuditRepo   repository.TicketAuditRepository
	Tracker     *assistant.Tracker
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		audit:      deps.AuditRepo,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// CreateTicket opens a ticket and immediately runs the first automated
// attempt. The returned ticket reflects the state after that attempt.
func (s *TicketService) CreateTicket(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if len(title) < titleMinLen {
		return nil, apperrors.NewValidationError("title too short", map[string]any{"min_length": titleMinLen})
	}
	if len(description) < descriptionMinLen {
		return nil, apperrors.NewValidationError("description too short", map[string]any{"min_length": descriptionMinLen})
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		State:       domain.TicketStateAwaitingAutoReply,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.recordMessage(ctx, ticket.ID, domain.AuthorTypeOwner, &ownerID, description)
	s.recordAudit(ctx, ticket.ID, domain.TicketEventCreated, domain.AuthorTypeOwner, &ownerID, title)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(ownerID),
		Payload: events.TicketCreatedPayload{
			TicketKey: ticket.ExternalKey,
			OwnerID:   ownerID,
			Title:     title,
		},
	})

	return s.runAutomatedAttempt(ctx, ticket.ID)
}

// OwnerFollowUp appends an owner message. On a ticket still in the
// automated phase it triggers another attempt, which may escalate at the
// cap; on an escalated ticket the message is simply added to the thread
// for the operator.
func (s *TicketService) OwnerFollowUp(ctx context.Context, ownerID, ticketID, body string) (*domain.Ticket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is empty", nil)
	}

	ticket, err := s.getOwned(ctx, ownerID, ticketID)
	if err != nil {
		return nil, err
	}
	switch ticket.State {
	case domain.TicketStateResolved, domain.TicketStateClosed:
		return nil, apperrors.NewConflict("ticket is no longer active", map[string]any{"state": ticket.State})
	}

	s.recordMessage(ctx, ticket.ID, domain.AuthorTypeOwner, &ownerID, body)

	if ticket.State == domain.TicketStateEscalated {
		// The ticket is in operator hands: relay the message instead of
		// feeding the tracker.
		s.publishEvent(ctx, events.Event{
			Type:     events.EventOwnerFollowUp,
			TicketID: ticket.ID,
			Actor:    userActor(ownerID),
			Payload: events.OwnerFollowUpPayload{
				TicketKey: ticket.ExternalKey,
				OwnerID:   ownerID,
				Body:      body,
			},
		})
		return ticket, nil
	}
	return s.runAutomatedAttempt(ctx, ticket.ID)
}

// ForceEscalate hands a ticket to operators regardless of remaining
// attempts.
func (s *TicketService) ForceEscalate(ctx context.Context, operatorID, ticketID, reason string) (*domain.Ticket, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual escalation"
	}

	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		switch t.State {
		case domain.TicketStateOpen, domain.TicketStateAwaitingAutoReply:
			t.State = domain.TicketStateEscalated
			t.Escalated = true
			t.EscalationReason = &reason
			return nil
		case domain.TicketStateEscalated:
			return apperrors.NewConflict("ticket already escalated", map[string]any{"ticket_id": t.ID})
		default:
			return apperrors.NewConflict("ticket is no longer active", map[string]any{"state": t.State})
		}
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEscalation()
	s.recordAudit(ctx, ticket.ID, domain.TicketEventEscalated, domain.AuthorTypeOperator, &operatorID, reason)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    operatorActor(operatorID),
		Payload: events.TicketEscalatedPayload{
			TicketKey:    ticket.ExternalKey,
			OwnerID:      ticket.OwnerID,
			AttemptCount: ticket.AutomatedAttempts,
			Reason:       reason,
		},
	})
	return ticket, nil
}

// OperatorReply appends an operator answer to an escalated ticket. The
// ticket stays escalated until the operator resolves it.
func (s *TicketService) OperatorReply(ctx context.Context, operatorID, ticketID, body string) (*domain.Ticket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is empty", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.State != domain.TicketStateEscalated {
		return nil, apperrors.NewConflict("ticket is not escalated", map[string]any{"state": ticket.State})
	}

	s.recordMessage(ctx, ticket.ID, domain.AuthorTypeOperator, &operatorID, body)
	s.recordAudit(ctx, ticket.ID, domain.TicketEventOperatorReplied, domain.AuthorTypeOperator, &operatorID, stringPreview(body, 120))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventOperatorReplied,
		TicketID: ticket.ID,
		Actor:    operatorActor(operatorID),
		Payload: events.OperatorReplyPayload{
			TicketKey: ticket.ExternalKey,
			OwnerID:   ticket.OwnerID,
			Body:      body,
		},
	})
	return ticket, nil
}

// OperatorResolve marks an escalated ticket as resolved.
func (s *TicketService) OperatorResolve(ctx context.Context, operatorID, ticketID, note string) (*domain.Ticket, error) {
	var oldState domain.TicketState
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		switch t.State {
		case domain.TicketStateEscalated, domain.TicketStateAwaitingAutoReply, domain.TicketStateOpen:
			oldState = t.State
			t.State = domain.TicketStateResolved
			return nil
		case domain.TicketStateResolved:
			return apperrors.NewConflict("ticket already resolved", map[string]any{"ticket_id": t.ID})
		default:
			return apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": t.ID})
		}
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, ticket.ID, domain.TicketEventResolved, domain.AuthorTypeOperator, &operatorID, strings.TrimSpace(note))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Actor:    operatorActor(operatorID),
		Payload: events.TicketStateChangedPayload{
			TicketKey: ticket.ExternalKey,
			OwnerID:   ticket.OwnerID,
			OldState:  oldState,
			NewState:  domain.TicketStateResolved,
		},
	})
	return ticket, nil
}

// OwnerClose closes the ticket. Closing an already-closed ticket is a
// no-op so retried requests stay safe.
func (s *TicketService) OwnerClose(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, error) {
	current, err := s.getOwned(ctx, ownerID, ticketID)
	if err != nil {
		return nil, err
	}
	if current.State == domain.TicketStateClosed {
		return current, nil
	}

	var oldState domain.TicketState
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if t.State == domain.TicketStateClosed {
			return nil
		}
		oldState = t.State
		now := time.Now()
		t.State = domain.TicketStateClosed
		t.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if oldState == "" {
		// Lost the close race to an identical close; nothing left to do.
		return ticket, nil
	}

	s.recordAudit(ctx, ticket.ID, domain.TicketEventClosed, domain.AuthorTypeOwner, &ownerID, "")
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		Actor:    userActor(ownerID),
		Payload: events.TicketStateChangedPayload{
			TicketKey: ticket.ExternalKey,
			OwnerID:   ticket.OwnerID,
			OldState:  oldState,
			NewState:  domain.TicketStateClosed,
		},
	})
	return ticket, nil
}

// GetTicketForOwner fetches a ticket and its thread, enforcing ownership.
func (s *TicketService) GetTicketForOwner(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.getOwned(ctx, ownerID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, msgs, nil
}

// GetTicketForOperator fetches any ticket with its thread.
func (s *TicketService) GetTicketForOperator(ctx context.Context, ticketID string) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, msgs, nil
}

// ListOwnerTickets returns the owner's tickets, newest first.
func (s *TicketService) ListOwnerTickets(ctx context.Context, ownerID string, states []domain.TicketState, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		OwnerID: &ownerID,
		States:  states,
		Limit:   limit,
		Offset:  offset,
	})
}

// ListEscalated returns the operator work queue.
func (s *TicketService) ListEscalated(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		States: []domain.TicketState{domain.TicketStateEscalated},
		Limit:  limit,
		Offset: offset,
	})
}

// AuditTrail returns the ticket's immutable event history.
func (s *TicketService) AuditTrail(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketAuditEntry, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.audit.ListByTicket(ctx, ticketID, limit, offset)
}

// StateCounts reports how many tickets sit in each lifecycle state.
func (s *TicketService) StateCounts(ctx context.Context) (map[domain.TicketState]int64, error) {
	states := []domain.TicketState{
		domain.TicketStateOpen,
		domain.TicketStateAwaitingAutoReply,
		domain.TicketStateEscalated,
		domain.TicketStateResolved,
		domain.TicketStateClosed,
	}
	counts := make(map[domain.TicketState]int64, len(states))
	for _, state := range states {
		count, err := s.tickets.CountByState(ctx, state)
		if err != nil {
			return nil, err
		}
		counts[state] = count
	}
	return counts, nil
}

// runAutomatedAttempt performs one bounded assistant attempt and applies
// its outcome under the version guard. A delivered reply returns the
// ticket to Open without touching the counter; only a failed attempt
// increments it, escalating when the cap is reached.
func (s *TicketService) runAutomatedAttempt(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	switch ticket.State {
	case domain.TicketStateOpen, domain.TicketStateAwaitingAutoReply:
	default:
		return ticket, nil
	}

	result := s.tracker.Attempt(ctx, s.replyContext(ctx, ticket))

	if result.Succeeded {
		updated, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
			if err := ensureAutomatedPhase(t); err != nil {
				return err
			}
			t.State = domain.TicketStateOpen
			return nil
		})
		if err != nil {
			return s.absorbEscalationRace(ctx, ticketID, err)
		}

		s.metrics.RecordAttempt("succeeded")
		s.recordMessage(ctx, updated.ID, domain.AuthorTypeAssistant, nil, result.ReplyText)
		s.recordAudit(ctx, updated.ID, domain.TicketEventAttemptSucceeded, domain.AuthorTypeAssistant, nil,
			"automated reply delivered")
		s.publishEvent(ctx, events.Event{
			Type:     events.EventAttemptSucceeded,
			TicketID: updated.ID,
			Actor:    events.Actor{Type: domain.SubjectTypeUser},
			Payload: events.AttemptPayload{
				TicketKey:    updated.ExternalKey,
				OwnerID:      updated.OwnerID,
				AttemptCount: updated.AutomatedAttempts,
				ReplyText:    result.ReplyText,
			},
		})
		return updated, nil
	}

	// Failed attempt: consume it, escalating when the cap is reached.
	var escalated bool
	updated, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := ensureAutomatedPhase(t); err != nil {
			return err
		}
		t.AutomatedAttempts++
		if t.AutomatedAttempts >= domain.AutomatedAttemptCap {
			reason := fmt.Sprintf("automated attempts exhausted (%s)", result.Cause)
			t.State = domain.TicketStateEscalated
			t.Escalated = true
			t.EscalationReason = &reason
			escalated = true
		} else {
			t.State = domain.TicketStateAwaitingAutoReply
			escalated = false
		}
		return nil
	})
	if err != nil {
		return s.absorbEscalationRace(ctx, ticketID, err)
	}

	s.metrics.RecordAttempt(string(result.Cause))
	if escalated {
		s.metrics.RecordEscalation()
		reason := ""
		if updated.EscalationReason != nil {
			reason = *updated.EscalationReason
		}
		s.recordAudit(ctx, updated.ID, domain.TicketEventEscalated, domain.AuthorTypeAssistant, nil, reason)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: updated.ID,
			Actor:    events.Actor{Type: domain.SubjectTypeUser},
			Payload: events.TicketEscalatedPayload{
				TicketKey:    updated.ExternalKey,
				OwnerID:      updated.OwnerID,
				AttemptCount: updated.AutomatedAttempts,
				Reason:       reason,
			},
		})
		return updated, nil
	}

	s.recordAudit(ctx, updated.ID, domain.TicketEventAttemptFailed, domain.AuthorTypeAssistant, nil, string(result.Cause))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventAttemptFailed,
		TicketID: updated.ID,
		Actor:    events.Actor{Type: domain.SubjectTypeUser},
		Payload: events.AttemptPayload{
			TicketKey:    updated.ExternalKey,
			OwnerID:      updated.OwnerID,
			AttemptCount: updated.AutomatedAttempts,
			FailureCause: string(result.Cause),
		},
	})
	return updated, nil
}

// absorbEscalationRace turns a lost race against a concurrent escalation
// into that escalated ticket: the escalation already carried its own
// notification and audit entry, so the caller has nothing left to do.
func (s *TicketService) absorbEscalationRace(ctx context.Context, ticketID string, err error) (*domain.Ticket, error) {
	if apperrors.IsConflict(err) {
		if current, getErr := s.tickets.GetByID(ctx, ticketID); getErr == nil && current.State == domain.TicketStateEscalated {
			return current, nil
		}
	}
	return nil, err
}

// mutate applies fn to a fresh read of the ticket and persists it under
// the version guard. A single lost race is retried against a re-read; the
// second conflict propagates to the caller.
func (s *TicketService) mutate(ctx context.Context, ticketID string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	for attempt := 0; ; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if err := fn(ticket); err != nil {
			return nil, err
		}
		err = s.tickets.UpdateVersioned(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if apperrors.IsConflict(err) && attempt == 0 {
			s.logger.Debug("ticket update raced, retrying",
				zap.String("ticket_id", ticketID))
			continue
		}
		return nil, err
	}
}

func (s *TicketService) getOwned(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	return ticket, nil
}

func (s *TicketService) replyContext(ctx context.Context, ticket *domain.Ticket) assistant.ReplyContext {
	rc := assistant.ReplyContext{
		TicketID:    ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		s.logger.Warn("could not load thread for attempt",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return rc
	}
	for _, msg := range msgs {
		rc.Conversation = append(rc.Conversation, assistant.ConversationTurn{
			Role: string(msg.AuthorType),
			Text: msg.Body,
		})
	}
	return rc
}

// recordMessage and recordAudit are best-effort: a missing trail entry is
// logged, never allowed to fail the state transition it describes.
func (s *TicketService) recordMessage(ctx context.Context, ticketID string, author domain.MessageAuthorType, authorID *string, body string) {
	msg := &domain.TicketMessage{
		TicketID:   ticketID,
		AuthorType: author,
		AuthorID:   authorID,
		Body:       body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Warn("ticket message write failed",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func (s *TicketService) recordAudit(ctx context.Context, ticketID string, event domain.TicketEventType, actor domain.MessageAuthorType, actorID *string, detail string) {
	entry := &domain.TicketAuditEntry{
		TicketID:  ticketID,
		EventType: event,
		ActorType: actor,
		ActorID:   actorID,
		Detail:    detail,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket audit write failed",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func ensureAutomatedPhase(t *domain.Ticket) error {
	switch t.State {
	case domain.TicketStateOpen, domain.TicketStateAwaitingAutoReply:
		return nil
	case domain.TicketStateEscalated:
		return apperrors.NewConflict("ticket already escalated", map[string]any{"ticket_id": t.ID})
	default:
		return apperrors.NewConflict("ticket is no longer active", map[string]any{"state": t.State})
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}
}

func operatorActor(operatorID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeOperator, OperatorID: &operatorID}
}

// stringPreview truncates on rune boundaries so multi-byte text never
// ends up with a broken trailing sequence.
func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
