package repository

import (
	"context"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// EventRepository stores analytics events.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
	TopEventTypes(ctx context.Context, since time.Time, limit int) ([]models.EventTypeCount, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns a new EventRepository implementation.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *eventRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Event{}).Where("created_at >= ?", since).Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *eventRepository) TopEventTypes(ctx context.Context, since time.Time, limit int) ([]models.EventTypeCount, error) {
	var rows []models.EventTypeCount
	err := r.db.WithContext(ctx).Model(&models.Event{}).
		Select("event_type, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("event_type").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
