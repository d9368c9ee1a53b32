package repository

import (
	"context"
	"errors"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Order, int64, error)
	ListAll(ctx context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
	RevenueSince(ctx context.Context, since time.Time) (float64, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]models.ProductSales, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository returns a new OrderRepository implementation.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Order", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &order, nil
}

func (r *orderRepository) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Order, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Items").
		Preload("Items.Product").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return orders, total, nil
}

func (r *orderRepository) ListAll(ctx context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		base = base.Where("status = ?", status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	q := r.db.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	err := q.
		Preload("User").
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Order", id)
	}
	return nil
}

func (r *orderRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("created_at >= ?", since).Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *orderRepository) RevenueSince(ctx context.Context, since time.Time) (float64, error) {
	var revenue *float64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("created_at >= ? AND status <> ?", since, models.OrderCancelled).
		Select("SUM(total)").
		Scan(&revenue).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if revenue == nil {
		return 0, nil
	}
	return *revenue, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	type row struct {
		Status models.OrderStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make(map[models.OrderStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (r *orderRepository) TopProducts(ctx context.Context, since time.Time, limit int) ([]models.ProductSales, error) {
	var rows []models.ProductSales
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id, products.name, SUM(order_items.quantity) as units_sold, SUM(order_items.quantity * order_items.unit_price) as revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.created_at >= ? AND orders.status <> ?", since, models.OrderCancelled).
		Group("order_items.product_id, products.name").
		Order("units_sold DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
