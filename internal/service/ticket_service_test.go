package service

import (
	"context"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/assistant"
	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/events"
	"github.com/erixcast/support-service/internal/observability"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

type ticketServiceEnv struct {
	service    *TicketService
	tickets    *memTicketRepo
	messages   *memMessageRepo
	audit      *memAuditRepo
	assistant  *scriptedAssistant
	dispatcher events.Dispatcher
	recorder   *eventRecorder
}

func newTicketServiceEnv(t *testing.T, scripted *scriptedAssistant) *ticketServiceEnv {
	t.Helper()

	tickets := newMemTicketRepo()
	messages := &memMessageRepo{}
	audit := &memAuditRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	recorder := recordEvents(dispatcher)

	tracker := assistant.NewTracker(scripted, time.Second, 0.5, zap.NewNop())
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		MessageRepo: messages,
		AuditRepo:   audit,
		Tracker:     tracker,
		Dispatcher:  dispatcher,
		Metrics:     observability.NewMetrics(),
		Logger:      zap.NewNop(),
	})
	return &ticketServiceEnv{
		service:    svc,
		tickets:    tickets,
		messages:   messages,
		audit:      audit,
		assistant:  scripted,
		dispatcher: dispatcher,
		recorder:   recorder,
	}
}

func succeedingAssistant() *scriptedAssistant {
	return &scriptedAssistant{
		replies: []assistant.Reply{{Text: "try restarting the client", Confidence: 0.9}},
		errs:    []error{nil},
	}
}

func failingAssistant() *scriptedAssistant {
	return &scriptedAssistant{
		replies: []assistant.Reply{{}},
		errs:    []error{context.DeadlineExceeded},
	}
}

func TestCreateTicketFirstAttemptSucceeds(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "No audio",
		Description: "The stream has no audio since yesterday evening.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Zero(t, ticket.AutomatedAttempts, "a delivered reply must not consume an attempt")
	assert.False(t, ticket.Escalated)
	assert.NotEmpty(t, ticket.ExternalKey)

	msgs, err := env.messages.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.AuthorTypeOwner, msgs[0].AuthorType)
	assert.Equal(t, domain.AuthorTypeAssistant, msgs[1].AuthorType)

	require.Len(t, env.recorder.ofType(events.EventTicketCreated), 1)
	require.Len(t, env.recorder.ofType(events.EventAttemptSucceeded), 1)
	assert.Empty(t, env.recorder.ofType(events.EventTicketEscalated))
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	_, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "ab",
		Description: "long enough description here",
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Valid title",
		Description: "short",
	})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, env.assistant.callCount())
}

func TestEscalationAfterCapFailures(t *testing.T) {
	env := newTicketServiceEnv(t, failingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Payment failed",
		Description: "My card was charged twice for the same renewal.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.AutomatedAttempts)
	assert.Equal(t, domain.TicketStateAwaitingAutoReply, ticket.State)

	ticket, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "still broken")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateEscalated, ticket.State)
	assert.Equal(t, domain.AutomatedAttemptCap, ticket.AutomatedAttempts)
	assert.True(t, ticket.Escalated)
	require.NotNil(t, ticket.EscalationReason)

	require.Len(t, env.recorder.ofType(events.EventAttemptFailed), 1)
	require.Len(t, env.recorder.ofType(events.EventTicketEscalated), 1)
}

func TestSuccessfulAttemptsDoNotAdvanceTowardEscalation(t *testing.T) {
	env := newTicketServiceEnv(t, &scriptedAssistant{
		replies: []assistant.Reply{
			{Text: "check the cable first", Confidence: 0.9},
			{},
			{},
		},
		errs: []error{nil, context.DeadlineExceeded, context.DeadlineExceeded},
	})

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Picture freezes",
		Description: "The picture freezes on every channel change.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Zero(t, ticket.AutomatedAttempts)

	ticket, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "cable is fine")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateAwaitingAutoReply, ticket.State)
	assert.Equal(t, 1, ticket.AutomatedAttempts)
	assert.False(t, ticket.Escalated, "one failure after a success is still below the cap")

	ticket, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "still freezing")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateEscalated, ticket.State)
	assert.Equal(t, domain.AutomatedAttemptCap, ticket.AutomatedAttempts)
}

func TestFollowUpAfterEscalationDoesNotAttempt(t *testing.T) {
	env := newTicketServiceEnv(t, failingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Login broken",
		Description: "I cannot log into the panel at all today.",
	})
	require.NoError(t, err)
	ticket, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "any news?")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStateEscalated, ticket.State)

	callsBefore := env.assistant.callCount()
	ticket, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "hello?")
	require.NoError(t, err)

	assert.Equal(t, callsBefore, env.assistant.callCount())
	assert.Equal(t, domain.AutomatedAttemptCap, ticket.AutomatedAttempts)
	assert.Equal(t, domain.TicketStateEscalated, ticket.State)
}

func TestEscalatedFollowUpIsRelayedToOperators(t *testing.T) {
	env := newTicketServiceEnv(t, failingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "App crashes",
		Description: "The app crashes whenever I open the guide.",
	})
	require.NoError(t, err)
	ticket, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "crashed again")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStateEscalated, ticket.State)

	_, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "any update on this?")
	require.NoError(t, err)

	relayed := env.recorder.ofType(events.EventOwnerFollowUp)
	require.Len(t, relayed, 1)
	payload, ok := relayed[0].Payload.(events.OwnerFollowUpPayload)
	require.True(t, ok)
	assert.Equal(t, ticket.ExternalKey, payload.TicketKey)
	assert.Equal(t, "any update on this?", payload.Body)
}

func TestAttemptCapNeverExceededUnderConcurrency(t *testing.T) {
	env := newTicketServiceEnv(t, failingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Buffering",
		Description: "Everything buffers every thirty seconds tonight.",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "follow-up")
		}()
	}
	wg.Wait()

	final, err := env.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, final.AutomatedAttempts, domain.AutomatedAttemptCap)
	assert.Equal(t, domain.TicketStateEscalated, final.State)
	require.Len(t, env.recorder.ofType(events.EventTicketEscalated), 1)
}

func TestMutateRetriesOnceOnConflict(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Channel list outdated",
		Description: "The channel list has not refreshed this week.",
	})
	require.NoError(t, err)

	env.tickets.mu.Lock()
	env.tickets.injectConflicts = 1
	env.tickets.mu.Unlock()

	closed, err := env.service.OwnerClose(context.Background(), "user-1", ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, closed.State)
}

func TestMutateSurfacesConflictAfterRetry(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "EPG missing",
		Description: "The electronic program guide shows nothing.",
	})
	require.NoError(t, err)

	env.tickets.mu.Lock()
	env.tickets.injectConflicts = 2
	env.tickets.mu.Unlock()

	_, err = env.service.OwnerClose(context.Background(), "user-1", ticket.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestOwnerCloseIsIdempotent(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Subtitle drift",
		Description: "Subtitles lag behind the video by seconds.",
	})
	require.NoError(t, err)

	first, err := env.service.OwnerClose(context.Background(), "user-1", ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStateClosed, first.State)
	require.NotNil(t, first.ClosedAt)

	second, err := env.service.OwnerClose(context.Background(), "user-1", ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, second.State)
	require.Len(t, env.recorder.ofType(events.EventTicketClosed), 1)
}

func TestFollowUpOnClosedTicketConflicts(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Recording gap",
		Description: "Catch-up recordings are missing an hour.",
	})
	require.NoError(t, err)
	_, err = env.service.OwnerClose(context.Background(), "user-1", ticket.ID)
	require.NoError(t, err)

	_, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "reopening?")
	assert.True(t, apperrors.IsConflict(err))
}

func TestOwnershipEnforced(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Wrong locale",
		Description: "The interface reverted to the wrong language.",
	})
	require.NoError(t, err)

	_, err = env.service.OwnerFollowUp(context.Background(), "user-2", ticket.ID, "mine now")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, _, err = env.service.GetTicketForOwner(context.Background(), "user-2", ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestForceEscalateAndOperatorFlow(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Account locked",
		Description: "My account locked itself after the update.",
	})
	require.NoError(t, err)

	_, err = env.service.OperatorReply(context.Background(), "op-1", ticket.ID, "looking into it")
	assert.True(t, apperrors.IsConflict(err), "reply before escalation must conflict")

	ticket, err = env.service.ForceEscalate(context.Background(), "op-1", ticket.ID, "needs manual check")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateEscalated, ticket.State)

	_, err = env.service.ForceEscalate(context.Background(), "op-1", ticket.ID, "again")
	assert.True(t, apperrors.IsConflict(err))

	ticket, err = env.service.OperatorReply(context.Background(), "op-1", ticket.ID, "fixed the lock, please retry")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateEscalated, ticket.State)

	ticket, err = env.service.OperatorResolve(context.Background(), "op-1", ticket.ID, "unlocked")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateResolved, ticket.State)

	_, err = env.service.OperatorResolve(context.Background(), "op-1", ticket.ID, "twice")
	assert.True(t, apperrors.IsConflict(err))

	require.Len(t, env.recorder.ofType(events.EventOperatorReplied), 1)
	require.Len(t, env.recorder.ofType(events.EventTicketResolved), 1)
}

func TestNotFoundTicket(t *testing.T) {
	env := newTicketServiceEnv(t, succeedingAssistant())

	_, err := env.service.OwnerClose(context.Background(), "user-1", "missing-id")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuditTrailRecordsLifecycle(t *testing.T) {
	env := newTicketServiceEnv(t, failingAssistant())

	ticket, err := env.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:       "Stream offline",
		Description: "The main stream has been offline for an hour.",
	})
	require.NoError(t, err)
	_, err = env.service.OwnerFollowUp(context.Background(), "user-1", ticket.ID, "still offline")
	require.NoError(t, err)

	entries, err := env.service.AuditTrail(context.Background(), ticket.ID, 50, 0)
	require.NoError(t, err)

	var types []domain.TicketEventType
	for _, entry := range entries {
		types = append(types, entry.EventType)
	}
	assert.Contains(t, types, domain.TicketEventCreated)
	assert.Contains(t, types, domain.TicketEventAttemptFailed)
	assert.Contains(t, types, domain.TicketEventEscalated)
}

func TestStringPreviewCutsOnRuneBoundaries(t *testing.T) {
	assert.Equal(t, "ciao", stringPreview("  ciao  ", 10))
	assert.Equal(t, "abcde...", stringPreview("abcdefghij", 8))

	preview := stringPreview("perché non funziona più niente qui", 10)
	assert.Equal(t, "perché ...", preview)
	assert.True(t, utf8.ValidString(preview))

	short := stringPreview("èèèèè", 2)
	assert.Equal(t, "èè", short)
	assert.True(t, utf8.ValidString(short))
}
