package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/classhub-api/internal/config"
	"github.com/noah-isme/classhub-api/internal/handler"
	"github.com/noah-isme/classhub-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	ClassroomHandler    *handler.ClassroomHandler
	SubmissionHandler   *handler.SubmissionHandler
	NotificationHandler *handler.NotificationHandler
	ActivityHandler     *handler.ActivityHandler
	JWTMiddleware       fiber.Handler
	CurrentUser         fiber.Handler
	AuthRateLimit       fiber.Handler
	TeacherOnly         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		if deps.AuthRateLimit != nil {
			auth.Use(deps.AuthRateLimit)
		}
		deps.AuthHandler.Register(auth)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	currentUser := deps.CurrentUser
	if currentUser == nil {
		currentUser = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware, currentUser)

	if deps.ClassroomHandler != nil {
		deps.ClassroomHandler.Register(protected.Group("/classrooms"))
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(protected.Group("/submissions"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(protected.Group("/notifications"))
	}
	if deps.ActivityHandler != nil {
		activity := protected.Group("/activity")
		if deps.TeacherOnly != nil {
			activity.Use(deps.TeacherOnly)
		}
		deps.ActivityHandler.Register(activity)
	}
}
