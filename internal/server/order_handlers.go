package server

import (
	"atelier/internal/models"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Checkout handles POST /api/orders/checkout
func (s *Server) Checkout(c *fiber.Ctx) error {
	var req service.CheckoutInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	order, err := s.orderService.Checkout(c.Context(), currentUserID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order": order})
}

// GetOrders handles GET /api/orders
func (s *Server) GetOrders(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	orders, total, err := s.orderService.ListOrders(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}
