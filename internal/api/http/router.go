package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Users  *handlers.UsersHandler
	Guard  *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	users := app.Group("/auth/users")
	users.Post("/sign_up", cfg.Users.SignUp)
	users.Post("/sign_in", cfg.Users.SignIn)

	authed := users.Group("", cfg.Guard.Handle)
	authed.Post("/sign_out", cfg.Users.SignOut)
	authed.Get("/user/:id", cfg.Users.GetUser)

	admin := users.Group("", cfg.Guard.Handle, auth.RequireRole(domain.RoleAdmins))
	admin.Get("/list", cfg.Users.List)
	admin.Post("/user/:name/enable", cfg.Users.Enable)
	admin.Post("/user/:name/disable", cfg.Users.Disable)
	admin.Put("/user/:name/role", cfg.Users.SetRole)
	admin.Delete("/user/:id", cfg.Users.Delete)
}
