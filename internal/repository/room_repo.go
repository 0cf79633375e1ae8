package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accommodation-portal/internal/model"
)

// RoomListFilters optional room list filters
type RoomListFilters struct {
	BuildingID  string
	Allocated   *bool
	MinCapacity int
	Keyword     string
}

// RoomRepository room data access. is_allocated is written only by SetAllocated.
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	// LockByID reads the room with SELECT ... FOR UPDATE; call inside a transaction
	LockByID(ctx context.Context, id string) (*model.Room, error)
	// LockByBuilding locks every live room of the building, in room_id order
	LockByBuilding(ctx context.Context, buildingID string) ([]model.Room, error)
	GetByNumber(ctx context.Context, buildingID, roomNumber string) (*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	SetAllocated(ctx context.Context, id string, allocated bool) error
	Delete(ctx context.Context, id string, deletedBy string) error
	List(ctx context.Context, filters *RoomListFilters, offset, limit int) ([]model.Room, int64, error)
	ListAvailable(ctx context.Context, buildingID string) ([]model.Room, error)
	ListIDs(ctx context.Context) ([]string, error)
	StatsByBuilding(ctx context.Context, buildingIDs []string) (map[string]model.BuildingStats, error)
}

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo creates a RoomRepository
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Preload("Building").
		Where("room_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) LockByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) LockByBuilding(ctx context.Context, buildingID string) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("building_id = ?", buildingID).
		Order("room_id ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) GetByNumber(ctx context.Context, buildingID, roomNumber string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("building_id = ? AND room_number = ?", buildingID, roomNumber).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_id = ?", room.RoomID).
		Updates(map[string]interface{}{
			"building_id":  room.BuildingID,
			"room_number":  room.RoomNumber,
			"capacity":     room.Capacity,
			"has_toilet":   room.HasToilet,
			"has_washroom": room.HasWashroom,
			"updated_by":   room.UpdatedBy,
		}).Error
}

func (r *roomRepo) SetAllocated(ctx context.Context, id string, allocated bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_id = ?", id).
		Update("is_allocated", allocated).Error
}

func (r *roomRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *roomRepo) List(ctx context.Context, filters *RoomListFilters, offset, limit int) ([]model.Room, int64, error) {
	var rooms []model.Room
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Room{})
	if filters != nil {
		if filters.BuildingID != "" {
			db = db.Where("building_id = ?", filters.BuildingID)
		}
		if filters.Allocated != nil {
			db = db.Where("is_allocated = ?", *filters.Allocated)
		}
		if filters.MinCapacity > 0 {
			db = db.Where("capacity >= ?", filters.MinCapacity)
		}
		if filters.Keyword != "" {
			db = db.Where("room_number ILIKE ?", "%"+filters.Keyword+"%")
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Building").
		Offset(offset).Limit(limit).
		Order("building_id ASC, room_number ASC").
		Find(&rooms).Error; err != nil {
		return nil, 0, err
	}

	return rooms, total, nil
}

// ListAvailable rooms with no active allocation, optionally in one building
func (r *roomRepo) ListAvailable(ctx context.Context, buildingID string) ([]model.Room, error) {
	var rooms []model.Room
	db := r.db.WithContext(ctx).
		Preload("Building").
		Where("NOT EXISTS (SELECT 1 FROM room_allocations a WHERE a.room_id = rooms.room_id AND a.is_active)")
	if buildingID != "" {
		db = db.Where("building_id = ?", buildingID)
	}
	err := db.Order("building_id ASC, room_number ASC").Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Order("room_id ASC").
		Pluck("room_id", &ids).Error
	return ids, err
}

// StatsByBuilding room aggregates per building in one query
func (r *roomRepo) StatsByBuilding(ctx context.Context, buildingIDs []string) (map[string]model.BuildingStats, error) {
	result := make(map[string]model.BuildingStats, len(buildingIDs))
	if len(buildingIDs) == 0 {
		return result, nil
	}

	var rows []model.BuildingStats
	err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Select("building_id, COUNT(*) AS total_rooms, " +
			"COUNT(*) FILTER (WHERE is_allocated) AS allocated_rooms, " +
			"COALESCE(SUM(capacity), 0) AS total_capacity").
		Where("building_id IN ?", buildingIDs).
		Group("building_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.BuildingID] = row
	}
	return result, nil
}
