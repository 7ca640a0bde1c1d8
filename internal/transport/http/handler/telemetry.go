package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
	"github.com/Nibir1/Nexus-Marine/internal/telemetry"
)

type TelemetryHandler struct {
	service *telemetry.Service
	logger  *zap.Logger
}

func NewTelemetryHandler(service *telemetry.Service, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{service: service, logger: logger}
}

func (h *TelemetryHandler) Ingest(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty request body",
		})
	}

	reading, err := h.service.Ingest(c.UserContext(), body)
	if err != nil {
		var validationErr *apperr.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Invalid Data",
				"details": validationErr.Fields,
			})
		}

		mylogger.Error(
			c.UserContext(),
			h.logger,
			"Telemetry ingestion failed",
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Telemetry ingested successfully",
		"data":    reading,
	})
}

func (h *TelemetryHandler) Latest(c *fiber.Ctx) error {
	shipID := c.Params("shipId")
	if shipID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shipId is required",
		})
	}

	limit := int64(c.QueryInt("limit", 20))

	readings, err := h.service.Latest(c.UserContext(), shipID, limit)
	if err != nil {
		mylogger.Error(
			c.UserContext(),
			h.logger,
			"Failed to read latest telemetry",
			zap.String("ship_id", shipID),
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}

	return c.JSON(fiber.Map{"data": readings})
}
