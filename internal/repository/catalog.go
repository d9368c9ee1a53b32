package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"atelier/internal/cache"
	"atelier/internal/models"
	"atelier/internal/observability"

	"gorm.io/gorm"
)

// ProductRepository defines persistence operations for the catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter, limit, offset int) ([]models.Product, int64, error)
	ListFeatured(ctx context.Context, limit int) ([]models.Product, error)
	ListNewArrivals(ctx context.Context, limit int) ([]models.Product, error)
	ListByStyle(ctx context.Context, styleSubstr string, limit int) ([]models.Product, error)
	ListWithAnyBadge(ctx context.Context, badges []string, limit int) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	SetInventory(ctx context.Context, productID uint, quantity int) error
	Count(ctx context.Context) (int64, error)
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository returns a new ProductRepository implementation.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Inventory").
		First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Product", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &product, nil
}

// facetClause matches rows whose JSON-encoded list column contains any of
// the requested values. The column stores normalized lowercase entries, so
// a substring match on the quoted value is exact.
func facetClause(q *gorm.DB, column string, values models.StringList) *gorm.DB {
	if len(values) == 0 {
		return q
	}
	conds := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values))
	for _, value := range values {
		conds = append(conds, column+" LIKE ?")
		args = append(args, fmt.Sprintf(`%%"%s"%%`, value))
	}
	return q.Where(strings.Join(conds, " OR "), args...)
}

func (r *productRepository) List(ctx context.Context, filter models.ProductFilter, limit, offset int) ([]models.Product, int64, error) {
	start := time.Now()
	defer func() {
		observability.CatalogQueryLatency.Observe(time.Since(start).Seconds())
	}()

	q := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.Query != "" {
		needle := "%" + strings.ToLower(strings.TrimSpace(filter.Query)) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", needle, needle)
	}
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Audience != "" {
		q = q.Where("audience = ?", filter.Audience)
	}
	if filter.Brand != "" {
		q = q.Where("LOWER(brand) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(filter.Brand))+"%")
	}
	if filter.Style != "" {
		q = q.Where("LOWER(style) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(filter.Style))+"%")
	}
	if filter.PriceMin != nil {
		q = q.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		q = q.Where("price <= ?", *filter.PriceMax)
	}
	q = facetClause(q, "color_options", filter.Colors)
	q = facetClause(q, "size_options", filter.Sizes)
	q = facetClause(q, "materials", filter.Materials)
	q = facetClause(q, "badges", filter.Badges)
	if filter.Featured {
		q = q.Where("is_featured = ?", true)
	}
	if filter.NewArrival {
		q = q.Where("is_new_arrival = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch filter.Sort {
	case models.SortPriceAsc:
		q = q.Order("price ASC, id ASC")
	case models.SortPriceDesc:
		q = q.Order("price DESC, id ASC")
	case models.SortNewest:
		q = q.Order("created_at DESC, id DESC")
	default:
		q = q.Order("updated_at DESC, id DESC")
	}

	var products []models.Product
	err := q.Preload("Category").Preload("Inventory").
		Limit(limit).Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return products, total, nil
}

func (r *productRepository) ListFeatured(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_featured = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Preload("Category").
		Preload("Inventory").
		Find(&products).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

func (r *productRepository) ListNewArrivals(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_new_arrival = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Preload("Category").
		Preload("Inventory").
		Find(&products).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

func (r *productRepository) ListByStyle(ctx context.Context, styleSubstr string, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(style) LIKE ?", "%"+strings.ToLower(styleSubstr)+"%").
		Order("updated_at DESC").
		Limit(limit).
		Preload("Category").
		Preload("Inventory").
		Find(&products).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

func (r *productRepository) ListWithAnyBadge(ctx context.Context, badges []string, limit int) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})

	cond := ""
	args := make([]interface{}, 0, len(badges))
	for i, badge := range badges {
		if i > 0 {
			cond += " OR "
		}
		cond += "badges LIKE ?"
		args = append(args, fmt.Sprintf(`%%"%s"%%`, strings.ToLower(badge)))
	}
	if cond != "" {
		q = q.Where(cond, args...)
	}

	var products []models.Product
	err := q.Order("updated_at DESC").
		Limit(limit).
		Preload("Category").
		Preload("Inventory").
		Find(&products).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A product with this SKU already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCatalog(ctx)
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A product with this SKU already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateProduct(ctx, product.ID)
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Product", id)
	}
	cache.InvalidateProduct(ctx, id)
	return nil
}

func (r *productRepository) SetInventory(ctx context.Context, productID uint, quantity int) error {
	inv := models.Inventory{ProductID: productID, Quantity: quantity}
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Assign(map[string]interface{}{"quantity": quantity}).
		FirstOrCreate(&inv).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateProduct(ctx, productID)
	return nil
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A category with this name already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCatalog(ctx)
	return nil
}
