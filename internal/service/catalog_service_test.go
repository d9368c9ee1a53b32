package service

import (
	"context"
	"testing"

	"atelier/internal/models"
	"atelier/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCatalogFixture(t *testing.T) (*CatalogService, *gorm.DB) {
	t.Helper()
	db := newServiceTestDB(t)
	svc := NewCatalogService(repository.NewProductRepository(db), repository.NewCategoryRepository(db))
	return svc, db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	products := []models.Product{
		{
			Name: "Silk Slip Dress", SKU: "D-1", Price: 240, Audience: models.AudienceWomen,
			Brand: "Maison Lune", Style: "romantic",
			ColorOptions: models.NormalizeList("ivory", "black"),
			IsFeatured:   true,
		},
		{
			Name: "Boxy Denim Jacket", SKU: "J-1", Price: 120, Audience: models.AudienceUnisex,
			Brand: "Atelier North", Style: "capsule",
			ColorOptions: models.NormalizeList("indigo"),
			IsNewArrival: true,
		},
		{
			Name: "Merino Crewneck", SKU: "K-1", Price: 95, Audience: models.AudienceMen,
			Brand: "Harbor & Wool", Style: "capsule",
			ColorOptions: models.NormalizeList("camel", "black"),
			Badges:       models.NormalizeList("statement"),
		},
	}
	for i := range products {
		require.NoError(t, db.Create(&products[i]).Error)
	}
}

func TestCatalogService_ListProducts_Filters(t *testing.T) {
	svc, db := newCatalogFixture(t)
	seedCatalog(t, db)
	ctx := context.Background()

	t.Run("Price range", func(t *testing.T) {
		min, max := 100.0, 200.0
		page, err := svc.ListProducts(ctx, models.ProductFilter{PriceMin: &min, PriceMax: &max}, 0, 0)
		require.NoError(t, err)
		require.Len(t, page.Products, 1)
		assert.Equal(t, "Boxy Denim Jacket", page.Products[0].Name)
		assert.EqualValues(t, 1, page.Total)
	})

	t.Run("Color facet", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{
			Colors: models.NormalizeList("black"),
		}, 0, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
	})

	t.Run("Multi-value facet matches any", func(t *testing.T) {
		// ivory and indigo never appear on the same product; a product
		// carrying either one matches.
		page, err := svc.ListProducts(ctx, models.ProductFilter{
			Colors: models.NormalizeList("ivory", "indigo"),
		}, 0, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
	})

	t.Run("Brand matches substring case-insensitively", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{Brand: "MAISON"}, 0, 0)
		require.NoError(t, err)
		require.Len(t, page.Products, 1)
		assert.Equal(t, "Silk Slip Dress", page.Products[0].Name)
	})

	t.Run("Style matches substring", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{Style: "caps"}, 0, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
	})

	t.Run("Audience is case-insensitive", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{Audience: "women"}, 0, 0)
		require.NoError(t, err)
		require.Len(t, page.Products, 1)
		assert.Equal(t, "Silk Slip Dress", page.Products[0].Name)
	})

	t.Run("Unknown audience is dropped, not rejected", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{Audience: "martians"}, 0, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
	})

	t.Run("Sort by price ascending", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{Sort: models.SortPriceAsc}, 0, 0)
		require.NoError(t, err)
		require.Len(t, page.Products, 3)
		assert.Equal(t, "Merino Crewneck", page.Products[0].Name)
		assert.Equal(t, "Silk Slip Dress", page.Products[2].Name)
	})

	t.Run("Free-text query", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{Query: "denim"}, 0, 0)
		require.NoError(t, err)
		require.Len(t, page.Products, 1)
		assert.Equal(t, "Boxy Denim Jacket", page.Products[0].Name)
	})

	t.Run("Limit is clamped", func(t *testing.T) {
		page, err := svc.ListProducts(ctx, models.ProductFilter{}, 5000, 0)
		require.NoError(t, err)
		assert.Equal(t, 100, page.Limit)
	})
}

func TestCatalogService_GetCurated(t *testing.T) {
	svc, db := newCatalogFixture(t)
	seedCatalog(t, db)

	curated, err := svc.GetCurated(context.Background())
	require.NoError(t, err)

	require.Len(t, curated.Hero, 1)
	assert.Equal(t, "Silk Slip Dress", curated.Hero[0].Name)

	require.Len(t, curated.NewArrivals, 1)
	assert.Equal(t, "Boxy Denim Jacket", curated.NewArrivals[0].Name)

	assert.Len(t, curated.CapsuleEdit, 2)

	require.Len(t, curated.StatementPieces, 1)
	assert.Equal(t, "Merino Crewneck", curated.StatementPieces[0].Name)
}

func TestCatalogService_CreateProduct(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, ProductInput{SKU: "X-1", Price: 10})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)

		_, err = svc.CreateProduct(ctx, ProductInput{Name: "Scarf", SKU: "X-1", Price: -5})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	t.Run("Unknown category rejected", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, ProductInput{Name: "Scarf", SKU: "X-2", Price: 35, CategoryID: 999})
		assert.Error(t, err)
		assert.Equal(t, "NOT_FOUND", err.(*models.AppError).Code)
	})

	category, err := svc.CreateCategory(ctx, "Accessories")
	require.NoError(t, err)

	product, err := svc.CreateProduct(ctx, ProductInput{
		Name:         "Cashmere Scarf",
		SKU:          "ACC-0001",
		Price:        79.999,
		Audience:     "unisex",
		ColorOptions: []string{"Camel", " black "},
		CategoryID:   category.ID,
		Quantity:     12,
	})
	require.NoError(t, err)
	assert.InDelta(t, 80.00, product.Price, 0.001)
	assert.Equal(t, models.AudienceUnisex, product.Audience)
	assert.Equal(t, models.StringList{"camel", "black"}, product.ColorOptions)
	require.NotNil(t, product.Inventory)
	assert.Equal(t, 12, product.Inventory.Quantity)

	t.Run("Duplicate SKU conflicts", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, ProductInput{Name: "Other Scarf", SKU: "ACC-0001", Price: 10})
		assert.Error(t, err)
		assert.Equal(t, "CONFLICT", err.(*models.AppError).Code)
	})

	t.Run("Update replaces stock", func(t *testing.T) {
		updated, err := svc.UpdateProduct(ctx, product.ID, ProductInput{
			Name: "Cashmere Scarf", SKU: "ACC-0001", Price: 85, Quantity: 3,
		})
		require.NoError(t, err)
		assert.InDelta(t, 85, updated.Price, 0.001)
		require.NotNil(t, updated.Inventory)
		assert.Equal(t, 3, updated.Inventory.Quantity)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteProduct(ctx, product.ID))
		err := svc.DeleteProduct(ctx, product.ID)
		assert.Error(t, err)
		assert.Equal(t, "NOT_FOUND", err.(*models.AppError).Code)
	})
}

func TestCatalogService_ListCategories_Sorted(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	for _, name := range []string{"Outerwear", "Accessories", "Denim"} {
		_, err := svc.CreateCategory(ctx, name)
		require.NoError(t, err)
	}

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Accessories", categories[0].Name)
	assert.Equal(t, "Denim", categories[1].Name)
	assert.Equal(t, "Outerwear", categories[2].Name)
}
