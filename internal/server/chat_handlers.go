package server

import (
	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetThreads handles GET /api/chat/threads. The support thread is ensured
// first so every signed-in user always sees at least one thread.
func (s *Server) GetThreads(c *fiber.Ctx) error {
	userID := currentUserID(c)

	if _, err := s.chatService.EnsureSupportConversation(c.Context(), userID); err != nil {
		return respondServiceError(c, err)
	}

	threads, err := s.chatService.ListThreadsForUser(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"threads": threads})
}

// parseCursor extracts the optional message pagination cursor.
func parseCursor(c *fiber.Ctx) *uint {
	if raw := c.QueryInt("cursor", 0); raw > 0 {
		cursor := uint(raw)
		return &cursor
	}
	return nil
}

// GetThread handles GET /api/chat/threads/:id. Returns one page of messages,
// oldest first, plus the cursor for the next (older) page.
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	limit := c.QueryInt("limit", 0)
	page, err := s.chatService.GetThreadMessagesForUser(c.Context(), currentUserID(c), id, limit, parseCursor(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// SendThreadMessage handles POST /api/chat/threads/:id/messages
func (s *Server) SendThreadMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.chatService.SendUserMessage(c.Context(), currentUserID(c), id, req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// MarkThreadRead handles POST /api/chat/threads/:id/read
func (s *Server) MarkThreadRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.chatService.MarkConversationAsReadForUser(c.Context(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
