package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/servicedesk-io/helpdesk-service/internal/api/http/handlers"
	"github.com/servicedesk-io/helpdesk-service/internal/auth"
	"github.com/servicedesk-io/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Repair         *handlers.RepairHandler
	Bookings       *handlers.BookingsHandler
	Accounts       *handlers.AccountsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	api := app.Group("", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", auth.RequireActiveRole(domain.RoleEmployee), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/feedback", auth.RequireActiveRole(domain.RoleEmployee), cfg.Tickets.SubmitFeedback)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)

	tickets.Post("/:id/diagnosis", auth.RequireActiveRole(domain.RoleTechnician), cfg.Repair.SubmitDiagnosis)
	tickets.Get("/:id/diagnosis", cfg.Repair.GetDiagnosis)
	tickets.Post("/:id/work-orders", auth.RequireActiveRole(domain.RoleTechnician), cfg.Repair.CreateWorkOrder)
	tickets.Get("/:id/work-orders", cfg.Repair.ListWorkOrders)
	tickets.Patch("/:id/work-orders/:woID", auth.RequireActiveRole(domain.RoleTechnician, domain.RoleServiceAdmin), cfg.Repair.UpdateWorkOrder)

	bookings := api.Group("/bookings", auth.RequireActiveRole(domain.RoleServiceAdmin))
	bookings.Post("/:id/approve", cfg.Bookings.Approve)
	bookings.Post("/:id/reject", cfg.Bookings.Reject)

	api.Get("/calendar", cfg.Bookings.Calendar)

	accounts := api.Group("/accounts")
	accounts.Get("", cfg.Accounts.List)
	accounts.Get("/:id/availability", cfg.Bookings.Availability)
	admin := accounts.Group("", auth.RequireActiveRole(domain.RoleServiceAdmin))
	admin.Post("", cfg.Accounts.Create)
	admin.Get("/:id", cfg.Accounts.Get)
	admin.Put("/:id", cfg.Accounts.Update)
	admin.Delete("/:id", cfg.Accounts.Delete)
}
