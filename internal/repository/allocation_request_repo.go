package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accommodation-portal/internal/model"
	pkgerrors "accommodation-portal/pkg/errors"
)

// RequestVisibility restricts a listing to the user's own requests and,
// when ServiceUnitID is set, those of the unit's members
type RequestVisibility struct {
	UserID        string
	ServiceUnitID string
}

// RequestListFilters optional request list filters
type RequestListFilters struct {
	Status      string
	RequestedBy string
	VisibleTo   *RequestVisibility
}

// AllocationRequestRepository allocation request data access
type AllocationRequestRepository interface {
	Create(ctx context.Context, req *model.AllocationRequest) error
	GetByID(ctx context.Context, id int64) (*model.AllocationRequest, error)
	// LockByID reads the request with SELECT ... FOR UPDATE; call inside a transaction
	LockByID(ctx context.Context, id int64) (*model.AllocationRequest, error)
	Update(ctx context.Context, req *model.AllocationRequest) error
	List(ctx context.Context, filters *RequestListFilters, offset, limit int) ([]model.AllocationRequest, int64, error)
}

type allocationRequestRepo struct {
	db *gorm.DB
}

// NewAllocationRequestRepo creates an AllocationRequestRepository
func NewAllocationRequestRepo(db *gorm.DB) AllocationRequestRepository {
	return &allocationRequestRepo{db: db}
}

func (r *allocationRequestRepo) Create(ctx context.Context, req *model.AllocationRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

func (r *allocationRequestRepo) GetByID(ctx context.Context, id int64) (*model.AllocationRequest, error) {
	var req model.AllocationRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("PreferredRoom.Building").
		Preload("PreferredBuilding").
		Preload("Reviewer").
		Preload("CreatedAllocation").
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *allocationRequestRepo) LockByID(ctx context.Context, id int64) (*model.AllocationRequest, error) {
	var req model.AllocationRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Update writes every mutable column guarded by version
func (r *allocationRequestRepo) Update(ctx context.Context, req *model.AllocationRequest) error {
	oldVersion := req.Version
	result := r.db.WithContext(ctx).
		Model(&model.AllocationRequest{}).
		Where("request_id = ? AND version = ?", req.RequestID, oldVersion).
		Updates(map[string]interface{}{
			"preferred_room_id":     req.PreferredRoomID,
			"preferred_building_id": req.PreferredBuildingID,
			"request_reason":        req.Reason,
			"requested_start_date":  req.RequestedStartDate,
			"requested_end_date":    req.RequestedEndDate,
			"status":                req.Status,
			"reviewed_by":           req.ReviewedBy,
			"review_notes":          req.ReviewNotes,
			"reviewed_at":           req.ReviewedAt,
			"created_allocation_id": req.CreatedAllocationID,
			"updated_by":            req.UpdatedBy,
			"version":               oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version = oldVersion + 1
	return nil
}

func (r *allocationRequestRepo) List(ctx context.Context, filters *RequestListFilters, offset, limit int) ([]model.AllocationRequest, int64, error) {
	var list []model.AllocationRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AllocationRequest{})
	if filters != nil {
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.RequestedBy != "" {
			db = db.Where("requested_by = ?", filters.RequestedBy)
		}
		if v := filters.VisibleTo; v != nil {
			if v.ServiceUnitID != "" {
				db = db.Where("requested_by = ? OR requested_by IN (SELECT user_id FROM users WHERE service_unit_id = ?)",
					v.UserID, v.ServiceUnitID)
			} else {
				db = db.Where("requested_by = ?", v.UserID)
			}
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Requester").
		Preload("PreferredRoom").
		Preload("PreferredBuilding").
		Offset(offset).Limit(limit).
		Order("created_at DESC, request_id DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
