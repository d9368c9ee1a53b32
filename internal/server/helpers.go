package server

import (
	"errors"
	"strings"
	"unicode"

	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already committed the HTTP
// response. Handlers must return nil in that case so Fiber's ErrorHandler
// does not overwrite the body.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination reads limit and offset from the query string. Out-of-range
// values fall back to the default or the cap rather than erroring.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", defaultLimit),
		Offset: c.QueryInt("offset", 0),
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPaginationLimit {
		p.Limit = maxPaginationLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// parseID reads a route parameter as a positive uint. On failure it writes
// the 400 response itself and returns errResponseWritten; callers check
// err != nil and return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a route param name into the label used in error
// messages: "id" becomes "ID", "orderItemId" becomes "order item ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	prefix, found := strings.CutSuffix(param, "Id")
	if !found {
		return param
	}
	return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// respondServiceError maps a service-layer error onto its HTTP status.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// currentUserID returns the authenticated user ID stored by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	return c.Locals("userID").(uint)
}

// isAdmin checks whether the given user has admin privileges.
func (s *Server) isAdmin(c *fiber.Ctx, userID uint) (bool, error) {
	var user models.User
	if err := s.db.WithContext(c.Context()).Select("role").First(&user, userID).Error; err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}
