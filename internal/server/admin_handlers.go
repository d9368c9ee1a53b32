package server

import (
	"encoding/json"
	"time"

	"atelier/internal/models"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAdminMetrics handles GET /api/admin/metrics: a rollup of orders,
// revenue, signups and analytics over the trailing 30 days.
func (s *Server) GetAdminMetrics(c *fiber.Ctx) error {
	ctx := c.Context()
	since := time.Now().AddDate(0, 0, -30)

	orderCount, err := s.orderRepo.CountSince(ctx, since)
	if err != nil {
		return respondServiceError(c, err)
	}
	revenue, err := s.orderRepo.RevenueSince(ctx, since)
	if err != nil {
		return respondServiceError(c, err)
	}
	byStatus, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return respondServiceError(c, err)
	}
	topProducts, err := s.orderRepo.TopProducts(ctx, since, 10)
	if err != nil {
		return respondServiceError(c, err)
	}
	newUsers, err := s.userRepo.CountCreatedSince(ctx, since)
	if err != nil {
		return respondServiceError(c, err)
	}
	productCount, err := s.productRepo.Count(ctx)
	if err != nil {
		return respondServiceError(c, err)
	}
	eventCount, err := s.eventRepo.CountSince(ctx, since)
	if err != nil {
		return respondServiceError(c, err)
	}
	topEvents, err := s.eventRepo.TopEventTypes(ctx, since, 10)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"window_days":      30,
		"orders":           orderCount,
		"revenue":          revenue,
		"orders_by_status": byStatus,
		"top_products":     topProducts,
		"new_users":        newUsers,
		"products":         productCount,
		"events":           eventCount,
		"top_events":       topEvents,
	})
}

// GetAdminThreads handles GET /api/admin/chat/threads
func (s *Server) GetAdminThreads(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	status := models.OrderStatus(c.Query("status"))
	unreadOnly := c.QueryBool("unread_only", false)

	threads, total, err := s.chatService.ListAdminThreads(c.Context(), status, unreadOnly, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"threads": threads,
		"total":   total,
		"limit":   p.Limit,
		"offset":  p.Offset,
	})
}

// GetAdminThread handles GET /api/admin/chat/threads/:id
func (s *Server) GetAdminThread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	limit := c.QueryInt("limit", 0)
	page, err := s.chatService.GetThreadMessages(c.Context(), id, limit, parseCursor(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// SendAdminThreadMessage handles POST /api/admin/chat/threads/:id/messages.
// Supports plain text, notes and code drops.
func (s *Server) SendAdminThreadMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text         string `json:"text"`
		Kind         string `json:"kind"`
		Code         string `json:"code"`
		Instructions string `json:"instructions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	kind := models.MessageKind(req.Kind)
	var payload json.RawMessage
	if kind == models.KindCode {
		if req.Code == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Code messages require a code"))
		}
		payload = models.MarshalPayload(models.CodePayload{
			Code:         req.Code,
			Instructions: req.Instructions,
		})
	}

	msg, err := s.chatService.SendAdminMessage(c.Context(), currentUserID(c), id, req.Text, kind, payload)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// MarkAdminThreadRead handles POST /api/admin/chat/threads/:id/read
func (s *Server) MarkAdminThreadRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.chatService.MarkConversationAsReadForAdmin(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAdminOrders handles GET /api/admin/orders
func (s *Server) GetAdminOrders(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	status := models.OrderStatus(c.Query("status"))

	orders, total, err := s.orderService.ListAllOrders(c.Context(), status, p.Limit, p.Offset)
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

// UpdateAdminOrderStatus handles PUT /api/admin/orders/:id/status
func (s *Server) UpdateAdminOrderStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	order, err := s.orderService.UpdateOrderStatus(c.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"order": order})
}

// CreateAdminProduct handles POST /api/admin/products
func (s *Server) CreateAdminProduct(c *fiber.Ctx) error {
	var req service.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	product, err := s.catalogService.CreateProduct(c.Context(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"product": product})
}

// UpdateAdminProduct handles PUT /api/admin/products/:id
func (s *Server) UpdateAdminProduct(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	product, err := s.catalogService.UpdateProduct(c.Context(), id, req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"product": product})
}

// DeleteAdminProduct handles DELETE /api/admin/products/:id
func (s *Server) DeleteAdminProduct(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.catalogService.DeleteProduct(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateAdminCategory handles POST /api/admin/categories
func (s *Server) CreateAdminCategory(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.catalogService.CreateCategory(c.Context(), req.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"category": category})
}
