package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"accommodation-portal/internal/model"
)

// UserEventListFilters optional analytics filters
type UserEventListFilters struct {
	UserID       string
	EventType    string
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
}

// UserEventRepository analytics event data access
type UserEventRepository interface {
	Create(ctx context.Context, e *model.UserEvent) error
	List(ctx context.Context, filters *UserEventListFilters, offset, limit int) ([]model.UserEvent, int64, error)
}

type userEventRepo struct {
	db *gorm.DB
}

// NewUserEventRepo creates a UserEventRepository
func NewUserEventRepo(db *gorm.DB) UserEventRepository {
	return &userEventRepo{db: db}
}

func (r *userEventRepo) Create(ctx context.Context, e *model.UserEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *userEventRepo) List(ctx context.Context, filters *UserEventListFilters, offset, limit int) ([]model.UserEvent, int64, error) {
	var list []model.UserEvent
	var total int64

	db := r.db.WithContext(ctx).Model(&model.UserEvent{})
	if filters != nil {
		if filters.UserID != "" {
			db = db.Where("user_id = ?", filters.UserID)
		}
		if filters.EventType != "" {
			db = db.Where("event_type = ?", filters.EventType)
		}
		if filters.ResourceType != "" {
			db = db.Where("resource_type = ?", filters.ResourceType)
		}
		if filters.ResourceID != "" {
			db = db.Where("resource_id = ?", filters.ResourceID)
		}
		if filters.From != nil {
			db = db.Where("timestamp >= ?", *filters.From)
		}
		if filters.To != nil {
			db = db.Where("timestamp < ?", *filters.To)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("timestamp DESC, event_id DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
