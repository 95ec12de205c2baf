package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/events"
	"github.com/erixcast/support-service/internal/repository"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

const deletionReasonMinLen = 5

// ApprovalService runs the operator-gated workflows: subscription-list
// renewal and deletion. Submitting creates a PENDING request; only an
// operator decision mutates the subject, and exactly one decision wins.
type ApprovalService struct {
	approvals     repository.ApprovalRepository
	subscriptions repository.SubscriptionRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(
	approvals repository.ApprovalRepository,
	subscriptions repository.SubscriptionRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		approvals:     approvals,
		subscriptions: subscriptions,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// SubmitRenewal opens a renewal request for the named list. Cost is
// derived from the flat monthly price, never taken from the caller.
func (s *ApprovalService) SubmitRenewal(ctx context.Context, requesterID, listName string, months int) (*domain.ApprovalRequest, error) {
	listName = strings.TrimSpace(listName)
	if listName == "" {
		return nil, apperrors.NewValidationError("list name is empty", nil)
	}
	if !domain.ValidRenewalMonths(months) {
		return nil, apperrors.NewValidationError("unsupported renewal duration", map[string]any{
			"months":  months,
			"allowed": domain.AllowedRenewalMonths,
		})
	}
	if _, err := s.subscriptions.GetByName(ctx, listName); err != nil {
		return nil, apperrors.MapError(err)
	}

	req := &domain.ApprovalRequest{
		Kind:        domain.ApprovalKindRenewal,
		SubjectName: listName,
		RequesterID: requesterID,
		Months:      months,
		CostEUR:     months * domain.RenewalMonthlyCostEUR,
		State:       domain.ApprovalStatePending,
	}
	if err := s.approvals.Create(ctx, req); err != nil {
		return nil, err
	}

	s.publishSubmitted(ctx, req, fmt.Sprintf("%d months, %d EUR", req.Months, req.CostEUR))
	return req, nil
}

// SubmitDeletion opens a deletion request. A reason is mandatory so the
// operator sees why the list should go.
func (s *ApprovalService) SubmitDeletion(ctx context.Context, requesterID, listName, reason string) (*domain.ApprovalRequest, error) {
	listName = strings.TrimSpace(listName)
	reason = strings.TrimSpace(reason)
	if listName == "" {
		return nil, apperrors.NewValidationError("list name is empty", nil)
	}
	if len(reason) < deletionReasonMinLen {
		return nil, apperrors.NewValidationError("deletion reason too short", map[string]any{"min_length": deletionReasonMinLen})
	}
	if _, err := s.subscriptions.GetByName(ctx, listName); err != nil {
		return nil, apperrors.MapError(err)
	}

	req := &domain.ApprovalRequest{
		Kind:        domain.ApprovalKindDeletion,
		SubjectName: listName,
		RequesterID: requesterID,
		Reason:      reason,
		State:       domain.ApprovalStatePending,
	}
	if err := s.approvals.Create(ctx, req); err != nil {
		return nil, err
	}

	s.publishSubmitted(ctx, req, reason)
	return req, nil
}

// Decide settles a pending request. The request flip and the subject
// mutation commit atomically in the repository; a request that already
// left PENDING yields AlreadyDecided.
func (s *ApprovalService) Decide(ctx context.Context, operatorID, requestID string, decision domain.Decision, notes string) (*domain.ApprovalRequest, error) {
	switch decision {
	case domain.DecisionApprove, domain.DecisionReject:
	default:
		return nil, apperrors.NewValidationError("unknown decision", map[string]any{"decision": decision})
	}

	outcome, err := s.approvals.Decide(ctx, requestID, decision, operatorID, strings.TrimSpace(notes))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	req := outcome.Request

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestDecided,
		RequestID: req.ID,
		Actor:     operatorActor(operatorID),
		Payload: events.RequestDecidedPayload{
			Kind:        req.Kind,
			SubjectName: req.SubjectName,
			RequesterID: req.RequesterID,
			State:       req.State,
			Notes:       derefString(req.Notes),
			NewExpiry:   outcome.NewExpiry,
		},
	})
	return req, nil
}

// GetRequest fetches one request.
func (s *ApprovalService) GetRequest(ctx context.Context, requestID string) (*domain.ApprovalRequest, error) {
	req, err := s.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

// ListPending returns the operator decision queue.
func (s *ApprovalService) ListPending(ctx context.Context, kind *domain.ApprovalKind, limit, offset int) ([]domain.ApprovalRequest, error) {
	pending := domain.ApprovalStatePending
	return s.approvals.ListWithFilter(ctx, repository.ApprovalRequestFilter{
		Kind:   kind,
		State:  &pending,
		Limit:  limit,
		Offset: offset,
	})
}

// ListForRequester returns a user's own requests.
func (s *ApprovalService) ListForRequester(ctx context.Context, requesterID string, limit, offset int) ([]domain.ApprovalRequest, error) {
	return s.approvals.ListWithFilter(ctx, repository.ApprovalRequestFilter{
		RequesterID: &requesterID,
		Limit:       limit,
		Offset:      offset,
	})
}

func (s *ApprovalService) publishSubmitted(ctx context.Context, req *domain.ApprovalRequest, detail string) {
	s.logger.Info("approval request submitted",
		zap.String("request_id", req.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("subject", req.SubjectName),
		zap.String("detail", detail))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestSubmitted,
		RequestID: req.ID,
		Actor:     userActor(req.RequesterID),
		Payload: events.RequestSubmittedPayload{
			Kind:        req.Kind,
			SubjectName: req.SubjectName,
			RequesterID: req.RequesterID,
			Months:      req.Months,
			CostEUR:     req.CostEUR,
			Reason:      req.Reason,
		},
	})
}

func (s *ApprovalService) publishEvent(ctx context.Context, event events.Event) {
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

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
