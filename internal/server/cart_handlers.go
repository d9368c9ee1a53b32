package server

import (
	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCart handles GET /api/cart. The cart row is created lazily on first read.
func (s *Server) GetCart(c *fiber.Ctx) error {
	cart, err := s.cartRepo.GetOrCreate(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"cart": cart})
}

// PutCart handles PUT /api/cart: the request body replaces the cart's
// contents wholesale. Lines with quantity <= 0 are dropped.
func (s *Server) PutCart(c *fiber.Ctx) error {
	var req struct {
		Items []struct {
			ProductID     uint   `json:"product_id"`
			Quantity      int    `json:"quantity"`
			SelectedSize  string `json:"selected_size"`
			SelectedColor string `json:"selected_color"`
		} `json:"items"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	cart, err := s.cartRepo.GetOrCreate(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	items := make([]models.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Cart items require a product ID"))
		}
		items = append(items, models.CartItem{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
		})
	}

	if err := s.cartRepo.ReplaceItems(c.Context(), cart.ID, items); err != nil {
		return respondServiceError(c, err)
	}

	cart, err = s.cartRepo.GetOrCreate(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"cart": cart})
}
