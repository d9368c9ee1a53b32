package server

import (
	"encoding/json"
	"time"

	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const sessionCookieName = "__atl_session"

// sessionID returns the analytics session cookie, minting one when absent.
func (s *Server) sessionID(c *fiber.Ctx) string {
	if sid := c.Cookies(sessionCookieName); sid != "" {
		return sid
	}
	sid := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    sid,
		Expires:  time.Now().AddDate(1, 0, 0),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return sid
}

// Track handles POST /api/track. Auth is optional: events from signed-in
// users carry their user id, anonymous events only the session cookie.
func (s *Server) Track(c *fiber.Ctx) error {
	var req struct {
		EventType  string          `json:"event_type"`
		Screen     string          `json:"screen"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.EventType == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("event_type is required"))
	}

	event := models.Event{
		SessionID:  s.sessionID(c),
		EventType:  req.EventType,
		Screen:     req.Screen,
		Properties: req.Properties,
	}
	if userID, ok := s.optionalUserID(c); ok {
		event.UserID = &userID
	}

	if err := s.eventRepo.Create(c.Context(), &event); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}
