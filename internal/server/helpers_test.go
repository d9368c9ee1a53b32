package server

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "order ID", humanizeParam("orderId"))
	assert.Equal(t, "order item ID", humanizeParam("orderItemId"))
	assert.Equal(t, "cursor", humanizeParam("cursor"))
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = parsePagination(c, 24)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name   string
		url    string
		limit  int
		offset int
	}{
		{"Defaults", "/", 24, 0},
		{"Explicit", "/?limit=10&offset=5", 10, 5},
		{"Clamped", "/?limit=9999", 100, 0},
		{"Negative values fall back", "/?limit=-1&offset=-3", 24, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.url, nil))
			assert.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.limit, got.Limit)
			assert.Equal(t, tt.offset, got.Offset)
		})
	}
}
