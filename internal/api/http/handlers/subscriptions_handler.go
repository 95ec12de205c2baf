package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/erixcast/support-service/internal/api/dto"
	"github.com/erixcast/support-service/internal/domain"
	"github.com/erixcast/support-service/internal/repository"
	apperrors "github.com/erixcast/support-service/pkg/util"
)

// SubscriptionsHandler manages the lists approval workflows act on.
// Mutation beyond creation goes through the approval flow only.
type SubscriptionsHandler struct {
	subscriptions repository.SubscriptionRepository
}

// NewSubscriptionsHandler constructs handler.
func NewSubscriptionsHandler(subscriptions repository.SubscriptionRepository) *SubscriptionsHandler {
	return &SubscriptionsHandler{subscriptions: subscriptions}
}

// Create POST /operator/lists.
func (h *SubscriptionsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateListRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	list := &domain.SubscriptionList{
		Name:      req.Name,
		CostEUR:   req.CostEUR,
		ExpiresAt: req.ExpiresAt,
		Notes:     req.Notes,
	}
	if err := h.subscriptions.Create(c.UserContext(), list); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": subscriptionResponse(list)})
}

// List GET /lists.
func (h *SubscriptionsHandler) List(c *fiber.Ctx) error {
	limit, offset := parsePage(c)
	lists, err := h.subscriptions.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.SubscriptionListResponse, 0, len(lists))
	for i := range lists {
		items = append(items, subscriptionResponse(&lists[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /lists/:name.
func (h *SubscriptionsHandler) Get(c *fiber.Ctx) error {
	list, err := h.subscriptions.GetByName(c.UserContext(), c.Params("name"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": subscriptionResponse(list)})
}

func subscriptionResponse(list *domain.SubscriptionList) dto.SubscriptionListResponse {
	return dto.SubscriptionListResponse{
		ID:        list.ID,
		Name:      list.Name,
		CostEUR:   list.CostEUR,
		ExpiresAt: list.ExpiresAt,
		Notes:     list.Notes,
		CreatedAt: list.CreatedAt,
		UpdatedAt: list.UpdatedAt,
	}
}
