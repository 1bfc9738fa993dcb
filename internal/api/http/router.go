package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/spec-kit/orderme/internal/api/http/handlers"
	"github.com/spec-kit/orderme/internal/auth"
	"github.com/spec-kit/orderme/internal/domain"
	"github.com/spec-kit/orderme/internal/observability"
	apperrors "github.com/spec-kit/orderme/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health              *handlers.HealthHandler
	Users               *handlers.UsersHandler
	Kiosk               *handlers.KioskHandler
	Admin               *handlers.AdminHandler
	Gate                *auth.AuthMiddleware
	Metrics             *observability.Metrics
	LogoutRatePerMinute int

	// ConfirmRatePerMinute bounds SMS code guesses per client IP.
	ConfirmRatePerMinute int
}

// RegisterRoutes wires HTTP routes. Every route sits behind the gate; the
// gate lets its public allow-list through unauthenticated.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Gate.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	logoutLimit := perIPLimiter(cfg.LogoutRatePerMinute, 30)
	confirmLimit := perIPLimiter(cfg.ConfirmRatePerMinute, 10)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/verify/request", cfg.Users.RequestVerification)
	authGroup.Post("/verify/confirm", confirmLimit, cfg.Users.ConfirmVerification)
	authGroup.Post("/refresh", cfg.Users.Refresh)
	authGroup.Post("/logout", logoutLimit, cfg.Users.Logout)

	kiosk := authGroup.Group("/kiosk")
	kiosk.Post("/phone-login", cfg.Kiosk.PhoneLogin)
	kiosk.Post("/extend-session", auth.RequireClass(domain.TokenClassKiosk), cfg.Kiosk.ExtendSession)
	kiosk.Post("/logout", logoutLimit, auth.RequireClass(domain.TokenClassKiosk), cfg.Kiosk.Logout)

	authGroup.Post("/admin/login", cfg.Admin.Login)
	authGroup.Post("/admin/register", cfg.Admin.Register)

	app.Get("/api/users/me", auth.RequireClass(domain.TokenClassApp, domain.TokenClassKiosk), cfg.Users.Me)
	app.Get("/api/admin/me", auth.RequireClass(domain.TokenClassAdmin), cfg.Admin.Me)
}

func perIPLimiter(perMinute, fallback int) fiber.Handler {
	if perMinute <= 0 {
		perMinute = fallback
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewDomainError("RATE_LIMITED", "too many requests", fiber.StatusTooManyRequests, nil)
		},
	})
}
