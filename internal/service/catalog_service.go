package service

import (
	"context"
	"strings"

	"atelier/internal/cache"
	"atelier/internal/models"
	"atelier/internal/repository"
)

const (
	curatedNewArrivals = 8
	curatedCapsule     = 6
	curatedStatement   = 6
)

// statementBadges marks products surfaced in the curated statement rail.
var statementBadges = []string{"statement", "runway", "artisanal"}

// CatalogService implements catalog browsing, filtering and curation.
type CatalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService returns a new CatalogService.
func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo, categoryRepo: categoryRepo}
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// CuratedCatalog is the merchandised storefront landing payload.
type CuratedCatalog struct {
	Hero            []models.Product `json:"hero"`
	NewArrivals     []models.Product `json:"new_arrivals"`
	CapsuleEdit     []models.Product `json:"capsule_edit"`
	StatementPieces []models.Product `json:"statement_pieces"`
}

// normalizeFilter applies the filter's lenient parsing rules: audience is
// uppercased against the allowlist and silently dropped when unknown, as is
// an unknown sort value.
func normalizeFilter(filter models.ProductFilter) models.ProductFilter {
	if filter.Audience != "" {
		audience := strings.ToUpper(strings.TrimSpace(filter.Audience))
		filter.Audience = ""
		for _, allowed := range models.AllowedAudiences {
			if audience == allowed {
				filter.Audience = audience
				break
			}
		}
	}

	switch filter.Sort {
	case models.SortPriceAsc, models.SortPriceDesc, models.SortNewest:
	default:
		filter.Sort = models.SortDefault
	}

	if filter.PriceMin != nil && *filter.PriceMin < 0 {
		filter.PriceMin = nil
	}
	if filter.PriceMax != nil && *filter.PriceMax < 0 {
		filter.PriceMax = nil
	}
	return filter
}

// ListProducts returns a filtered, sorted catalog page. Unknown filter
// values are omitted rather than rejected.
func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter, limit, offset int) (*ProductPage, error) {
	if limit <= 0 {
		limit = 24
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	products, total, err := s.productRepo.List(ctx, normalizeFilter(filter), limit, offset)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return &ProductPage{Products: products, Total: total, Limit: limit, Offset: offset}, nil
}

// GetProduct returns one product with category and inventory.
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// ListCategories returns all categories, name ascending, cached.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return cache.GetOrLoad(ctx, cache.CategoriesKey, cache.CategoriesTTL, func() ([]models.Category, error) {
		return s.categoryRepo.List(ctx)
	})
}

// GetCurated returns the merchandised landing rails, cached.
func (s *CatalogService) GetCurated(ctx context.Context) (*CuratedCatalog, error) {
	return cache.GetOrLoad(ctx, cache.CuratedKey, cache.CuratedTTL, func() (*CuratedCatalog, error) {
		hero, err := s.productRepo.ListFeatured(ctx, 4)
		if err != nil {
			return nil, err
		}
		arrivals, err := s.productRepo.ListNewArrivals(ctx, curatedNewArrivals)
		if err != nil {
			return nil, err
		}
		capsule, err := s.productRepo.ListByStyle(ctx, "capsule", curatedCapsule)
		if err != nil {
			return nil, err
		}
		statement, err := s.productRepo.ListWithAnyBadge(ctx, statementBadges, curatedStatement)
		if err != nil {
			return nil, err
		}
		return &CuratedCatalog{
			Hero:            hero,
			NewArrivals:     arrivals,
			CapsuleEdit:     capsule,
			StatementPieces: statement,
		}, nil
	})
}

// ProductInput is the admin input for creating or updating a product.
type ProductInput struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description"`
	Price            float64  `json:"price"`
	Image            string   `json:"image"`
	SKU              string   `json:"sku"`
	Brand            string   `json:"brand"`
	Style            string   `json:"style"`
	Audience         string   `json:"audience"`
	IsFeatured       bool     `json:"is_featured"`
	IsNewArrival     bool     `json:"is_new_arrival"`
	ColorOptions     []string `json:"color_options"`
	SizeOptions      []string `json:"size_options"`
	Materials        []string `json:"materials"`
	Badges           []string `json:"badges"`
	CategoryID       uint     `json:"category_id"`
	Quantity         int      `json:"quantity"`
}

func (in *ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return models.NewValidationError("Product name is required")
	}
	if strings.TrimSpace(in.SKU) == "" {
		return models.NewValidationError("Product SKU is required")
	}
	if in.Price < 0 {
		return models.NewValidationError("Product price cannot be negative")
	}
	if in.Quantity < 0 {
		return models.NewValidationError("Product quantity cannot be negative")
	}
	return nil
}

func (in *ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.ShortDescription = in.ShortDescription
	p.Description = in.Description
	p.Price = roundToCents(in.Price)
	p.Image = in.Image
	p.SKU = strings.TrimSpace(in.SKU)
	p.Brand = in.Brand
	p.Style = in.Style
	p.Audience = strings.ToUpper(strings.TrimSpace(in.Audience))
	p.IsFeatured = in.IsFeatured
	p.IsNewArrival = in.IsNewArrival
	p.ColorOptions = models.NormalizeList(in.ColorOptions...)
	p.SizeOptions = models.NormalizeList(in.SizeOptions...)
	p.Materials = models.NormalizeList(in.Materials...)
	p.Badges = models.NormalizeList(in.Badges...)
	p.CategoryID = in.CategoryID
}

// CreateProduct adds a catalog entry with its inventory row. Admin only.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.CategoryID != 0 {
		if _, err := s.categoryRepo.GetByID(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	var product models.Product
	in.apply(&product)
	if err := s.productRepo.Create(ctx, &product); err != nil {
		return nil, err
	}
	if err := s.productRepo.SetInventory(ctx, product.ID, in.Quantity); err != nil {
		return nil, err
	}
	return s.productRepo.GetByID(ctx, product.ID)
}

// UpdateProduct replaces a catalog entry's fields and stock level. Admin only.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in.apply(product)
	product.Inventory = nil
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	if err := s.productRepo.SetInventory(ctx, product.ID, in.Quantity); err != nil {
		return nil, err
	}
	return s.productRepo.GetByID(ctx, product.ID)
}

// DeleteProduct removes a catalog entry. Admin only.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	return s.productRepo.Delete(ctx, id)
}

// CreateCategory adds a category. Admin only.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}
	category := models.Category{Name: name}
	if err := s.categoryRepo.Create(ctx, &category); err != nil {
		return nil, err
	}
	return &category, nil
}
