package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/erixcast/support-service/internal/liveness"
	"github.com/erixcast/support-service/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes. Live is also
// the target of the background probe loops, so it stays dependency-free.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	coordinator *liveness.Coordinator
}

// NewHealthHandler returns a new handler instance. coordinator may be nil
// when probes are disabled.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, coordinator *liveness.Coordinator) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		postgres:    postgres,
		redis:       redis,
		coordinator: coordinator,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if err := h.postgres.Ping(ctx); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		depStatus["redis"] = err.Error()
		ready = false
	} else {
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Probes GET /health/probes exposes the background probe loop states.
func (h *HealthHandler) Probes(c *fiber.Ctx) error {
	if h.coordinator == nil {
		return c.JSON(fiber.Map{"data": fiber.Map{"enabled": false}})
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"enabled": true,
			"healthy": h.coordinator.Healthy(),
			"probes":  h.coordinator.Snapshot(),
		},
	})
}
