package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role and state guards live in the
// service layer; routes only require an authenticated principal.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/plan", cfg.Tickets.RegisterPlan)
	tickets.Post("/:id/postponement", cfg.Tickets.RequestPostponement)
	tickets.Post("/:id/postponement/approve", cfg.Tickets.ApprovePostponement)
	tickets.Post("/:id/postponement/reject", cfg.Tickets.RejectPostponement)
	tickets.Post("/:id/completion", cfg.Tickets.RequestCompletion)
	tickets.Post("/:id/completion/approve", cfg.Tickets.ApproveCompletion)
	tickets.Post("/:id/completion/reject", cfg.Tickets.RejectCompletion)
	tickets.Get("/:id/history", cfg.Tickets.GetHistory)
	tickets.Get("/:id/decisions", cfg.Tickets.GetDecisionLog)
}
