package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accommodation-portal/internal/model"
	"accommodation-portal/pkg/database"
	pkgerrors "accommodation-portal/pkg/errors"
)

// uniqueActivePerRoom partial unique index on room_allocations(room_id) WHERE is_active
const uniqueActivePerRoom = "uk_room_allocations_active_room"

// AllocationVisibility restricts a listing to rows matching any set field
type AllocationVisibility struct {
	UserID        string
	ServiceUnitID string
	AllocatedBy   string
}

// AllocationListFilters optional allocation list filters
type AllocationListFilters struct {
	RoomID        string
	BuildingID    string
	UserID        string
	ServiceUnitID string
	Kind          string
	Active        *bool
	VisibleTo     *AllocationVisibility
}

// AllocationRepository allocation data access.
// is_active is written only through Create and SetActive.
type AllocationRepository interface {
	Create(ctx context.Context, a *model.Allocation) error
	GetByID(ctx context.Context, id int64) (*model.Allocation, error)
	SetActive(ctx context.Context, id int64, active bool) error
	ListActiveByRoom(ctx context.Context, roomID string) ([]model.Allocation, error)
	CountActiveByRoom(ctx context.Context, roomID string) (int64, error)
	CountActiveByBuilding(ctx context.Context, buildingID string) (int64, error)
	CountActiveByServiceUnit(ctx context.Context, serviceUnitID string) (int64, error)
	List(ctx context.Context, filters *AllocationListFilters, offset, limit int) ([]model.Allocation, int64, error)
}

type allocationRepo struct {
	db *gorm.DB
}

// NewAllocationRepo creates an AllocationRepository
func NewAllocationRepo(db *gorm.DB) AllocationRepository {
	return &allocationRepo{db: db}
}

func (r *allocationRepo) Create(ctx context.Context, a *model.Allocation) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
	return translateActiveConflict(err)
}

func (r *allocationRepo) GetByID(ctx context.Context, id int64) (*model.Allocation, error) {
	var a model.Allocation
	err := r.db.WithContext(ctx).
		Preload("Room.Building").
		Preload("User").
		Preload("ServiceUnit").
		Preload("Allocator").
		Where("allocation_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *allocationRepo) SetActive(ctx context.Context, id int64, active bool) error {
	err := r.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("allocation_id = ?", id).
		Update("is_active", active).Error
	return translateActiveConflict(err)
}

func (r *allocationRepo) ListActiveByRoom(ctx context.Context, roomID string) ([]model.Allocation, error) {
	var list []model.Allocation
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_active", roomID).
		Order("allocation_id ASC").
		Find(&list).Error
	return list, err
}

func (r *allocationRepo) CountActiveByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("room_id = ? AND is_active", roomID).
		Count(&count).Error
	return count, err
}

func (r *allocationRepo) CountActiveByBuilding(ctx context.Context, buildingID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Joins("JOIN rooms ON rooms.room_id = room_allocations.room_id").
		Where("rooms.building_id = ? AND room_allocations.is_active", buildingID).
		Count(&count).Error
	return count, err
}

func (r *allocationRepo) CountActiveByServiceUnit(ctx context.Context, serviceUnitID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("service_unit_id = ? AND is_active", serviceUnitID).
		Count(&count).Error
	return count, err
}

func (r *allocationRepo) List(ctx context.Context, filters *AllocationListFilters, offset, limit int) ([]model.Allocation, int64, error) {
	var list []model.Allocation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Allocation{})
	if filters != nil {
		if filters.RoomID != "" {
			db = db.Where("room_allocations.room_id = ?", filters.RoomID)
		}
		if filters.BuildingID != "" {
			db = db.Where("room_allocations.room_id IN (SELECT room_id FROM rooms WHERE building_id = ?)", filters.BuildingID)
		}
		if filters.UserID != "" {
			db = db.Where("room_allocations.user_id = ?", filters.UserID)
		}
		if filters.ServiceUnitID != "" {
			db = db.Where("room_allocations.service_unit_id = ?", filters.ServiceUnitID)
		}
		if filters.Kind != "" {
			db = db.Where("room_allocations.allocation_type = ?", filters.Kind)
		}
		if filters.Active != nil {
			db = db.Where("room_allocations.is_active = ?", *filters.Active)
		}
		if v := filters.VisibleTo; v != nil {
			scope := r.db.Where("1 = 0")
			if v.UserID != "" {
				scope = scope.Or("room_allocations.user_id = ?", v.UserID)
			}
			if v.ServiceUnitID != "" {
				scope = scope.Or("room_allocations.service_unit_id = ?", v.ServiceUnitID)
			}
			if v.AllocatedBy != "" {
				scope = scope.Or("room_allocations.allocated_by = ?", v.AllocatedBy)
			}
			db = db.Where(scope)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Room.Building").
		Preload("User").
		Preload("ServiceUnit").
		Offset(offset).Limit(limit).
		Order("room_allocations.allocation_date DESC, room_allocations.allocation_id DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func translateActiveConflict(err error) error {
	if database.IsUniqueViolation(err, uniqueActivePerRoom) {
		return fmt.Errorf("%w: room already has an active allocation", pkgerrors.ErrConflict)
	}
	return err
}
