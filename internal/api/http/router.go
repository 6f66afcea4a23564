package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/estates-web/internal/api/http/handlers"
	"github.com/spec-kit/estates-web/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Home    *handlers.HomeHandler
	Session *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Static("/public", "./public")

	app.Get("/", cfg.Session.Attach, cfg.Session.RequireUser, cfg.Home.Index)

	authGroup := app.Group("/auth", cfg.Session.Attach)
	// The login form always clears any existing session, so it takes no
	// guest gate.
	authGroup.Get("/login", cfg.Auth.ShowLogin)
	authGroup.Post("/login", cfg.Auth.Login)

	authGroup.Get("/registro", cfg.Session.RequireGuest, cfg.Auth.ShowRegister)
	authGroup.Post("/registro", cfg.Session.RequireGuest, cfg.Auth.Register)

	authGroup.Get("/confirmar/:token", cfg.Auth.Confirm)

	authGroup.Get("/olvide-password", cfg.Session.RequireGuest, cfg.Auth.ShowForgotPassword)
	authGroup.Post("/olvide-password", cfg.Session.RequireGuest, cfg.Auth.ForgotPassword)
	authGroup.Get("/olvide-password/:token", cfg.Auth.ShowResetPassword)
	authGroup.Post("/olvide-password/:token", cfg.Auth.ResetPassword)

	authGroup.Get("/logout", cfg.Auth.Logout)
}
