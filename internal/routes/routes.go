package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/smarttodo/sync/internal/config"
	"github.com/smarttodo/sync/internal/handlers"
	"github.com/smarttodo/sync/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	syncHandler *handlers.SyncHandler,
	userDataHandler *handlers.UserDataHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth routes are public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected auth routes
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Get("/auth/verify", middleware.JWTProtected(cfg), authHandler.Verify)
	api.Post("/auth/change-password", middleware.JWTProtected(cfg), authHandler.ChangePassword)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Everything below requires a valid bearer credential.
	protected := api.Group("", middleware.JWTProtected(cfg))

	// Tasks + merge
	protected.Get("/tasks", syncHandler.ListTasks)
	protected.Post("/tasks/sync", syncHandler.SyncTasks)
	protected.Delete("/tasks/:id", syncHandler.DeleteTask)
	protected.Post("/sync/full", syncHandler.FullSync)

	// Assistant side channels
	protected.Get("/profile", userDataHandler.GetProfile)
	protected.Post("/profile", userDataHandler.UpdateProfile)
	protected.Get("/memories", userDataHandler.GetMemories)
	protected.Post("/memories/sync", userDataHandler.SyncMemories)
	protected.Get("/settings", userDataHandler.GetSettings)
	protected.Post("/settings", userDataHandler.UpdateSettings)
}
