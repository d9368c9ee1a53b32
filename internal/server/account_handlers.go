package server

import (
	"atelier/internal/models"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAccountOverview handles GET /api/account/me
func (s *Server) GetAccountOverview(c *fiber.Ctx) error {
	overview, err := s.accountService.GetOverview(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(overview)
}

// UpdateAccountProfile handles PUT /api/account/me
func (s *Server) UpdateAccountProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.accountService.UpdateProfile(c.Context(), currentUserID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// ChangePassword handles POST /api/account/change-password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.accountService.ChangePassword(c.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAccountOrders handles GET /api/account/orders
func (s *Server) GetAccountOrders(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	orders, total, err := s.accountService.ListOrdersWithThreads(c.Context(), currentUserID(c), p.Limit, p.Offset)
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

// GetAccountOrder handles GET /api/account/orders/:id
func (s *Server) GetAccountOrder(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	order, err := s.accountService.GetOrderWithThread(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"order": order})
}

// GetAddresses handles GET /api/account/addresses
func (s *Server) GetAddresses(c *fiber.Ctx) error {
	addresses, err := s.accountService.ListAddresses(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"addresses": addresses})
}

// CreateAddress handles POST /api/account/addresses
func (s *Server) CreateAddress(c *fiber.Ctx) error {
	var req service.AddressInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	addr, err := s.accountService.CreateAddress(c.Context(), currentUserID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"address": addr})
}

// UpdateAddress handles PUT /api/account/addresses/:id
func (s *Server) UpdateAddress(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.AddressInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	addr, err := s.accountService.UpdateAddress(c.Context(), currentUserID(c), id, req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"address": addr})
}

// DeleteAddress handles DELETE /api/account/addresses/:id
func (s *Server) DeleteAddress(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.accountService.DeleteAddress(c.Context(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPaymentMethods handles GET /api/account/payment-methods
func (s *Server) GetPaymentMethods(c *fiber.Ctx) error {
	instruments, err := s.accountService.ListPaymentInstruments(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"payment_methods": instruments})
}

// CreatePaymentMethod handles POST /api/account/payment-methods
func (s *Server) CreatePaymentMethod(c *fiber.Ctx) error {
	var req service.PaymentInstrumentInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pi, err := s.accountService.CreatePaymentInstrument(c.Context(), currentUserID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment_method": pi})
}

// DeletePaymentMethod handles DELETE /api/account/payment-methods/:id
func (s *Server) DeletePaymentMethod(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.accountService.DeletePaymentInstrument(c.Context(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPreferences handles GET /api/account/preferences
func (s *Server) GetPreferences(c *fiber.Ctx) error {
	prefs, err := s.accountService.GetPreferences(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(prefs)
}

// UpdatePreferences handles PUT /api/account/preferences
func (s *Server) UpdatePreferences(c *fiber.Ctx) error {
	var req service.PreferencesInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	prefs, err := s.accountService.UpdatePreferences(c.Context(), currentUserID(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(prefs)
}
