package app

import (
	"cardgen/internal/handlers"
	u "cardgen/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

// SetupApp creates and configures a new Fiber app instance serving the card
// form backed by b.
func SetupApp(cfg u.Config, b handlers.Builder) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			u.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	RegisterMiddleware(app, cfg)
	RegisterRoutes(app, cfg, b)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, cfg u.Config, b handlers.Builder) {
	downloads := newStorage(cfg, cfg.Cache.DownloadDB, "downloads")
	svc := handlers.NewCardService(cfg, b, downloads)

	app.Get("/", svc.HandleForm)

	v1 := app.Group("/v1")
	v1.Post("/preview", svc.HandlePreview)

	if cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0 {
		v1.Post("/cards", userRateLimitMiddleware(cfg), svc.HandleGenerate)
	} else {
		v1.Post("/cards", svc.HandleGenerate)
	}
	v1.Get("/cards/:id", svc.HandleDownload)

	v1.Get("/monitor", monitor.New())
}
