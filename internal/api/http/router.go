package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpline-oss/support-desk/internal/api/http/handlers"
	"github.com/helpline-oss/support-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Staff     *handlers.StaffHandler
	StaffAuth *auth.StaffMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/stream", cfg.Tickets.StreamTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.StaffAuth.Handle, cfg.Tickets.UpdateStatus)
}

// Shutdown ends open ticket streams, then stops app and waits up to timeout
// for in-flight requests.
func Shutdown(app *fiber.App, cfg RouteConfig, timeout time.Duration) error {
	if cfg.Tickets != nil {
		cfg.Tickets.Close()
	}
	return app.ShutdownWithTimeout(timeout)
}
