package repository

import (
	"context"
	"errors"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// CartRepository defines persistence operations for carts.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error)
	GetItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error)
	FindItem(ctx context.Context, cartID, productID uint, size, color string) (*models.CartItem, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	RemoveItem(ctx context.Context, cartID, itemID uint) error
	Clear(ctx context.Context, cartID uint) error
	// ReplaceItems swaps the cart's contents for the given items in one
	// transaction. Lines with non-positive quantity are dropped; unknown
	// product ids abort the replacement.
	ReplaceItems(ctx context.Context, cartID uint, items []models.CartItem) error
}

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository returns a new CartRepository implementation.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		FirstOrCreate(&cart).Error
	if err != nil {
		// A concurrent request may have created the row between the lookup
		// and the insert; retry the read once.
		if isUniqueConstraintError(err) {
			if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
				return nil, models.NewInternalError(err)
			}
		} else {
			return nil, models.NewInternalError(err)
		}
	}

	err = r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Inventory").
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Find(&cart.Items).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &cart, nil
}

func (r *cartRepository) GetItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Cart item", itemID)
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, productID uint, size, color string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND selected_size = ? AND selected_color = ?",
			cartID, productID, size, color).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

func (r *cartRepository) AddItem(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *cartRepository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, itemID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Cart item", itemID)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, cartID uint) error {
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *cartRepository) ReplaceItems(ctx context.Context, cartID uint, items []models.CartItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			if items[i].Quantity <= 0 {
				continue
			}
			var exists int64
			if err := tx.Model(&models.Product{}).Where("id = ?", items[i].ProductID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return models.NewNotFoundError("Product", items[i].ProductID)
			}
			items[i].ID = 0
			items[i].CartID = cartID
			if err := tx.Create(&items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}
