package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/erixcast/support-service/internal/api/http/handlers"
	"github.com/erixcast/support-service/internal/auth"
	"github.com/erixcast/support-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Users           *handlers.UsersHandler
	Tickets         *handlers.TicketsHandler
	OperatorTickets *handlers.OperatorTicketsHandler
	Approvals       *handlers.ApprovalsHandler
	Subscriptions   *handlers.SubscriptionsHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/probes", cfg.Health.Probes)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/operators/login", cfg.Users.LoginOperator)

	userGroup := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireUser())
	userGroup.Post("/tickets", cfg.Tickets.CreateTicket)
	userGroup.Get("/tickets", cfg.Tickets.ListTickets)
	userGroup.Get("/tickets/:id", cfg.Tickets.GetTicket)
	userGroup.Post("/tickets/:id/messages", cfg.Tickets.FollowUp)
	userGroup.Post("/tickets/:id/close", cfg.Tickets.CloseTicket)
	userGroup.Post("/requests/renewals", cfg.Approvals.SubmitRenewal)
	userGroup.Post("/requests/deletions", cfg.Approvals.SubmitDeletion)
	userGroup.Get("/requests", cfg.Approvals.ListMine)
	userGroup.Get("/lists", cfg.Subscriptions.List)
	userGroup.Get("/lists/:name", cfg.Subscriptions.Get)

	operatorGroup := app.Group("/operator", cfg.AuthMiddleware.Handle, auth.RequireOperatorRole())
	operatorGroup.Get("/tickets/stats", cfg.OperatorTickets.Stats)
	operatorGroup.Get("/tickets/escalated", cfg.OperatorTickets.ListEscalated)
	operatorGroup.Get("/tickets/:id", cfg.OperatorTickets.GetTicket)
	operatorGroup.Get("/tickets/:id/audit", cfg.OperatorTickets.AuditTrail)
	operatorGroup.Post("/tickets/:id/reply", cfg.OperatorTickets.Reply)
	operatorGroup.Post("/tickets/:id/resolve", cfg.OperatorTickets.Resolve)
	operatorGroup.Post("/tickets/:id/escalate", cfg.OperatorTickets.Escalate)
	operatorGroup.Get("/requests/pending", cfg.Approvals.ListPending)
	operatorGroup.Get("/requests/:id", cfg.Approvals.GetRequest)
	operatorGroup.Post("/requests/:id/decision", cfg.Approvals.Decide)

	adminGroup := app.Group("/operator", cfg.AuthMiddleware.Handle, auth.RequireOperatorRole(domain.OperatorRoleAdmin))
	adminGroup.Post("/lists", cfg.Subscriptions.Create)
}
