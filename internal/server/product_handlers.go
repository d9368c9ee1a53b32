package server

import (
	"strconv"

	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseProductFilter builds a ProductFilter from query parameters. Unknown
// or malformed values are dropped; filtering never rejects a request.
func parseProductFilter(c *fiber.Ctx) models.ProductFilter {
	filter := models.ProductFilter{
		Query:    c.Query("q"),
		Audience: c.Query("audience"),
		Brand:    c.Query("brand"),
		Style:    c.Query("style"),
		Sort:     models.ProductSort(c.Query("sort")),
	}

	if categoryID := c.QueryInt("category_id", 0); categoryID > 0 {
		filter.CategoryID = uint(categoryID)
	}
	if raw := c.Query("price_min"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.PriceMin = &v
		}
	}
	if raw := c.Query("price_max"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.PriceMax = &v
		}
	}

	filter.Colors = models.NormalizeList(c.Query("colors"))
	filter.Sizes = models.NormalizeList(c.Query("sizes"))
	filter.Materials = models.NormalizeList(c.Query("materials"))
	filter.Badges = models.NormalizeList(c.Query("badges"))
	filter.Featured = c.QueryBool("featured", false)
	filter.NewArrival = c.QueryBool("new_arrival", false)

	return filter
}

// GetProducts handles GET /api/products
func (s *Server) GetProducts(c *fiber.Ctx) error {
	p := parsePagination(c, 24)
	page, err := s.catalogService.ListProducts(c.Context(), parseProductFilter(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetProduct handles GET /api/products/:id
func (s *Server) GetProduct(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	product, err := s.catalogService.GetProduct(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"product": product})
}

// GetCategories handles GET /api/products/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.catalogService.ListCategories(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// GetCurated handles GET /api/products/curated
func (s *Server) GetCurated(c *fiber.Ctx) error {
	curated, err := s.catalogService.GetCurated(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(curated)
}
