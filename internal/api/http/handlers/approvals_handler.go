package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/erixcast/support-service/internal/api/dto"
	"github.com/erixcast/support-service/internal/auth"
	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/service"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

// ApprovalsHandler serves the gated renewal/deletion workflows.
type ApprovalsHandler struct {
	service *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvalService *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{service: approvalService}
}

// SubmitRenewal POST /requests/renewals.
func (h *ApprovalsHandler) SubmitRenewal(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RenewalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.service.SubmitRenewal(c.UserContext(), principal.User.ID, req.ListName, req.Months)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": approvalResponse(created)})
}

// SubmitDeletion POST /requests/deletions.
func (h *ApprovalsHandler) SubmitDeletion(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.DeletionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.service.SubmitDeletion(c.UserContext(), principal.User.ID, req.ListName, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": approvalResponse(created)})
}

// ListMine GET /requests.
func (h *ApprovalsHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	limit, offset := parsePage(c)
	requests, err := h.service.ListForRequester(c.UserContext(), principal.User.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponses(requests)})
}

// ListPending GET /operator/requests/pending.
func (h *ApprovalsHandler) ListPending(c *fiber.Ctx) error {
	var kind *domain.ApprovalKind
	if val := c.Query("kind"); val != "" {
		k := domain.ApprovalKind(val)
		kind = &k
	}
	limit, offset := parsePage(c)
	requests, err := h.service.ListPending(c.UserContext(), kind, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponses(requests)})
}

// GetRequest GET /operator/requests/:id.
func (h *ApprovalsHandler) GetRequest(c *fiber.Ctx) error {
	req, err := h.service.GetRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponse(req)})
}

// Decide POST /operator/requests/:id/decision.
func (h *ApprovalsHandler) Decide(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	decided, err := h.service.Decide(c.UserContext(), principal.Operator.ID, c.Params("id"), req.Decision, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponse(decided)})
}

func approvalResponse(req *domain.ApprovalRequest) dto.ApprovalResponse {
	return dto.ApprovalResponse{
		ID:          req.ID,
		Kind:        req.Kind,
		SubjectName: req.SubjectName,
		RequesterID: req.RequesterID,
		Months:      req.Months,
		CostEUR:     req.CostEUR,
		Reason:      req.Reason,
		State:       req.State,
		Notes:       req.Notes,
		DecidedBy:   req.DecidedBy,
		DecidedAt:   req.DecidedAt,
		CreatedAt:   req.CreatedAt,
	}
}

func approvalResponses(requests []domain.ApprovalRequest) []dto.ApprovalResponse {
	items := make([]dto.ApprovalResponse, 0, len(requests))
	for i := range requests {
		items = append(items, approvalResponse(&requests[i]))
	}
	return items
}
