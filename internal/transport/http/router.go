// Package http is the thin request/response adapter in front of the
// ingestion pipelines. No business logic lives here.
package http

import (
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/Nibir1/Nexus-Marine/internal/transport/http/handler"
)

type Handlers struct {
	Telemetry *handler.TelemetryHandler
	Orders    *handler.OrdersHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Use(otelfiber.Middleware())

	app.Use(cors.New())

	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 5 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	api := app.Group("/api")

	api.Post("/telemetry", h.Telemetry.Ingest)
	api.Get("/telemetry/:shipId/latest", h.Telemetry.Latest)
	api.Post("/orders", h.Orders.Create)
}
