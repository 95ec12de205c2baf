package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/erixcast/support-service/internal/assistant"
	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/events"
	"github.com/erixcast/support-service/internal/repository"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

// memTicketRepo implements the versioned compare-and-swap contract of the
// real repository on an in-memory map.
type memTicketRepo struct {
	mu              sync.Mutex
	tickets         map[string]*domain.Ticket
	injectConflicts int
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memTicketRepo) UpdateVersioned(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.injectConflicts > 0 {
		r.injectConflicts--
		return apperrors.NewConflict("ticket modified concurrently", nil)
	}
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return apperrors.NewConflict("ticket modified concurrently", nil)
	}
	clone := *ticket
	clone.Version++
	clone.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = &clone
	ticket.Version = clone.Version
	return nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, stored := range r.tickets {
		if filter.OwnerID != nil && stored.OwnerID != *filter.OwnerID {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, stored.State) {
			continue
		}
		result = append(result, *stored)
	}
	return result, nil
}

func (r *memTicketRepo) CountByState(_ context.Context, state domain.TicketState) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, stored := range r.tickets {
		if stored.State == state {
			count++
		}
	}
	return count, nil
}

func containsState(states []domain.TicketState, state domain.TicketState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
}

func (r *memMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketMessage
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.TicketAuditEntry
}

func (r *memAuditRepo) Create(_ context.Context, entry *domain.TicketAuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketAuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketAuditEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// scriptedAssistant returns canned outcomes, one per call, repeating the
// last one once the script runs out.
type scriptedAssistant struct {
	mu      sync.Mutex
	replies []assistant.Reply
	errs    []error
	calls   int
}

func (a *scriptedAssistant) GenerateReply(_ context.Context, _ assistant.ReplyContext) (assistant.Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	a.calls++
	if idx >= len(a.replies) {
		idx = len(a.replies) - 1
	}
	if idx < 0 {
		return assistant.Reply{}, nil
	}
	return a.replies[idx], a.errs[idx]
}

func (a *scriptedAssistant) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// eventRecorder captures everything published on the dispatcher.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func recordEvents(dispatcher events.Dispatcher) *eventRecorder {
	rec := &eventRecorder{}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventAttemptSucceeded,
		events.EventAttemptFailed,
		events.EventTicketEscalated,
		events.EventOwnerFollowUp,
		events.EventOperatorReplied,
		events.EventTicketResolved,
		events.EventTicketClosed,
		events.EventRequestSubmitted,
		events.EventRequestDecided,
		events.EventHealthDegraded,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.events = append(rec.events, event)
			return nil
		})
	}
	return rec
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// memApprovalRepo mirrors the transactional Decide contract: exactly one
// caller flips a PENDING request, approval applies the subject mutation.
type memApprovalRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.ApprovalRequest
	lists    *memSubscriptionRepo
}

func newMemApprovalRepo(lists *memSubscriptionRepo) *memApprovalRepo {
	return &memApprovalRepo{requests: make(map[string]*domain.ApprovalRequest), lists: lists}
}

func (r *memApprovalRepo) Create(_ context.Context, req *domain.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = uuid.NewString()
	req.CreatedAt = time.Now()
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *memApprovalRepo) GetByID(_ context.Context, id string) (*domain.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memApprovalRepo) ListWithFilter(_ context.Context, filter repository.ApprovalRequestFilter) ([]domain.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ApprovalRequest
	for _, stored := range r.requests {
		if filter.Kind != nil && stored.Kind != *filter.Kind {
			continue
		}
		if filter.State != nil && stored.State != *filter.State {
			continue
		}
		if filter.RequesterID != nil && stored.RequesterID != *filter.RequesterID {
			continue
		}
		result = append(result, *stored)
	}
	return result, nil
}

func (r *memApprovalRepo) Decide(_ context.Context, id string, decision domain.Decision, operatorID string, notes string) (*repository.DecisionOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if stored.State != domain.ApprovalStatePending {
		return nil, apperrors.NewAlreadyDecided(id)
	}

	now := time.Now()
	stored.State = domain.ApprovalStateRejected
	if decision == domain.DecisionApprove {
		stored.State = domain.ApprovalStateApproved
	}
	if notes != "" {
		stored.Notes = &notes
	}
	stored.DecidedBy = &operatorID
	stored.DecidedAt = &now

	outcome := &repository.DecisionOutcome{}
	clone := *stored
	outcome.Request = &clone

	if stored.State == domain.ApprovalStateApproved {
		switch stored.Kind {
		case domain.ApprovalKindRenewal:
			newExpiry, err := r.lists.renew(stored.SubjectName, stored.Months)
			if err != nil {
				return nil, err
			}
			outcome.NewExpiry = &newExpiry
		case domain.ApprovalKindDeletion:
			if err := r.lists.delete(stored.SubjectName); err != nil {
				return nil, err
			}
		}
	}
	return outcome, nil
}

type memSubscriptionRepo struct {
	mu    sync.Mutex
	lists map[string]*domain.SubscriptionList
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{lists: make(map[string]*domain.SubscriptionList)}
}

func (r *memSubscriptionRepo) Create(_ context.Context, list *domain.SubscriptionList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list.ID = uuid.NewString()
	list.CreatedAt = time.Now()
	list.UpdatedAt = list.CreatedAt
	clone := *list
	r.lists[list.Name] = &clone
	return nil
}

func (r *memSubscriptionRepo) GetByName(_ context.Context, name string) (*domain.SubscriptionList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.lists[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memSubscriptionRepo) Update(_ context.Context, list *domain.SubscriptionList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *list
	r.lists[list.Name] = &clone
	return nil
}

func (r *memSubscriptionRepo) List(_ context.Context, _, _ int) ([]domain.SubscriptionList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SubscriptionList
	for _, stored := range r.lists {
		result = append(result, *stored)
	}
	return result, nil
}

// renew applies the same extension rule as the SQL repository: extend
// from the later of the current expiry and now.
func (r *memSubscriptionRepo) renew(name string, months int) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.lists[name]
	if !ok {
		return time.Time{}, pgx.ErrNoRows
	}
	base := time.Now()
	if stored.ExpiresAt != nil && stored.ExpiresAt.After(base) {
		base = *stored.ExpiresAt
	}
	newExpiry := base.AddDate(0, 0, months*30)
	stored.ExpiresAt = &newExpiry
	stored.UpdatedAt = time.Now()
	return newExpiry, nil
}

func (r *memSubscriptionRepo) delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lists[name]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.lists, name)
	return nil
}
