package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/erixcast/support-service/internal/api/dto"
	"github.com/erixcast/support-service/internal/auth"
	"github.com/erixcast/support-service/internal/service"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

// OperatorTicketsHandler serves the operator work queue.
type OperatorTicketsHandler struct {
	service *service.TicketService
}

// NewOperatorTicketsHandler constructs handler.
func NewOperatorTicketsHandler(ticketService *service.TicketService) *OperatorTicketsHandler {
	return &OperatorTicketsHandler{service: ticketService}
}

// ListEscalated GET /operator/tickets/escalated.
func (h *OperatorTicketsHandler) ListEscalated(c *fiber.Ctx) error {
	limit, offset := parsePage(c)
	tickets, err := h.service.ListEscalated(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /operator/tickets/:id.
func (h *OperatorTicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, msgs, err := h.service.GetTicketForOperator(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, msgs)})
}

// Reply POST /operator/tickets/:id/reply.
func (h *OperatorTicketsHandler) Reply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.OperatorReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.OperatorReply(c.UserContext(), principal.Operator.ID, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Resolve POST /operator/tickets/:id/resolve.
func (h *OperatorTicketsHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.ResolveRequest
	_ = c.BodyParser(&req)

	ticket, err := h.service.OperatorResolve(c.UserContext(), principal.Operator.ID, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Escalate POST /operator/tickets/:id/escalate.
func (h *OperatorTicketsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.EscalateRequest
	_ = c.BodyParser(&req)

	ticket, err := h.service.ForceEscalate(c.UserContext(), principal.Operator.ID, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AuditTrail GET /operator/tickets/:id/audit.
func (h *OperatorTicketsHandler) AuditTrail(c *fiber.Ctx) error {
	limit, offset := parsePage(c)
	entries, err := h.service.AuditTrail(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:        entry.ID,
			EventType: entry.EventType,
			ActorType: entry.ActorType,
			ActorID:   entry.ActorID,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /operator/tickets/stats.
func (h *OperatorTicketsHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.service.StateCounts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}
