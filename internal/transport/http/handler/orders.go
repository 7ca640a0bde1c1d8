package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/apperr"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
	"github.com/Nibir1/Nexus-Marine/internal/orders"
)

type OrdersHandler struct {
	service *orders.Service
	logger  *zap.Logger
}

func NewOrdersHandler(service *orders.Service, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{service: service, logger: logger}
}

func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing Body",
		})
	}

	order, err := h.service.CreateOrder(c.UserContext(), body)
	if err != nil {
		var validationErr *apperr.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Invalid Order",
				"details": validationErr.Fields,
			})
		}

		mylogger.Error(
			c.UserContext(),
			h.logger,
			"Order creation failed",
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}
