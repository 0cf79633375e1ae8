package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/event"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/policy"
	"accommodation-portal/internal/repository"
	pkgerrors "accommodation-portal/pkg/errors"
)

// ── Building / room module errors ──

var (
	ErrBuildingNameExists  = fmt.Errorf("%w: building name already exists", pkgerrors.ErrConflict)
	ErrBuildingAllocated   = fmt.Errorf("%w: building has rooms with active allocations", pkgerrors.ErrConflict)
	ErrRoomNumberExists    = fmt.Errorf("%w: room number already exists in this building", pkgerrors.ErrConflict)
	ErrRoomAllocated       = fmt.Errorf("%w: room has an active allocation", pkgerrors.ErrConflict)
	ErrCannotManageHousing = fmt.Errorf("%w: only a SuperAdmin can manage buildings and rooms", pkgerrors.ErrForbidden)
)

// BuildingService buildings and rooms interface
type BuildingService interface {
	CreateBuilding(ctx context.Context, p policy.Principal, req *dto.CreateBuildingRequest) (*dto.BuildingResponse, error)
	GetBuilding(ctx context.Context, id string) (*dto.BuildingResponse, error)
	ListBuildings(ctx context.Context, req *dto.BuildingListRequest) ([]dto.BuildingResponse, error)
	UpdateBuilding(ctx context.Context, p policy.Principal, id string, req *dto.UpdateBuildingRequest) (*dto.BuildingResponse, error)
	DeleteBuilding(ctx context.Context, p policy.Principal, id string) error

	CreateRoom(ctx context.Context, p policy.Principal, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	GetRoom(ctx context.Context, id string) (*dto.RoomResponse, error)
	ListRooms(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, int64, error)
	UpdateRoom(ctx context.Context, p policy.Principal, id string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error)
	DeleteRoom(ctx context.Context, p policy.Principal, id string) error
}

type buildingService struct {
	repo    *repository.Repository
	emitter event.Emitter
	logger  *zap.Logger
}

// NewBuildingService creates a BuildingService
func NewBuildingService(repo *repository.Repository, emitter event.Emitter, logger *zap.Logger) BuildingService {
	return &buildingService{repo: repo, emitter: emitter, logger: logger}
}

// ────────────────────── Buildings ──────────────────────

func (s *buildingService) CreateBuilding(ctx context.Context, p policy.Principal, req *dto.CreateBuildingRequest) (*dto.BuildingResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrCannotManageHousing
	}

	name := strings.TrimSpace(req.Name)
	if err := s.checkBuildingNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	b := &model.Building{
		Name:            name,
		Location:        req.Location,
		Description:     req.Description,
		SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &p.UserID}},
	}
	if err := s.repo.Building.Create(ctx, b); err != nil {
		s.logger.Error("create building failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindBuildingCreate, p, event.SubjectBuilding, b.BuildingID,
		map[string]any{"name": b.Name}))

	return toBuildingResponse(b, model.BuildingStats{BuildingID: b.BuildingID}), nil
}

func (s *buildingService) GetBuilding(ctx context.Context, id string) (*dto.BuildingResponse, error) {
	b, err := s.getBuilding(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Room.StatsByBuilding(ctx, []string{id})
	if err != nil {
		s.logger.Error("building stats failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toBuildingResponse(b, stats[id]), nil
}

func (s *buildingService) ListBuildings(ctx context.Context, req *dto.BuildingListRequest) ([]dto.BuildingResponse, error) {
	buildings, err := s.repo.Building.List(ctx, req.Keyword)
	if err != nil {
		s.logger.Error("list buildings failed", zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(buildings))
	for _, b := range buildings {
		ids = append(ids, b.BuildingID)
	}
	stats, err := s.repo.Room.StatsByBuilding(ctx, ids)
	if err != nil {
		s.logger.Error("building stats failed", zap.Error(err))
		return nil, err
	}

	result := make([]dto.BuildingResponse, 0, len(buildings))
	for i := range buildings {
		result = append(result, *toBuildingResponse(&buildings[i], stats[buildings[i].BuildingID]))
	}
	return result, nil
}

func (s *buildingService) UpdateBuilding(ctx context.Context, p policy.Principal, id string, req *dto.UpdateBuildingRequest) (*dto.BuildingResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrCannotManageHousing
	}

	b, err := s.getBuilding(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.checkBuildingNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		b.Name = name
	}
	if req.Location != nil {
		b.Location = *req.Location
	}
	if req.Description != nil {
		b.Description = *req.Description
	}

	b.UpdatedBy = &p.UserID
	if err := s.repo.Building.Update(ctx, b); err != nil {
		s.logger.Error("update building failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindBuildingUpdate, p, event.SubjectBuilding, id,
		map[string]any{"name": b.Name}))
	return s.GetBuilding(ctx, id)
}

// DeleteBuilding soft-deletes the building and its rooms. The rooms are
// locked first, so a concurrent allocation either commits before the count
// or finds its room gone.
func (s *buildingService) DeleteBuilding(ctx context.Context, p policy.Principal, id string) error {
	if !policy.IsSuperAdmin(p) {
		return ErrCannotManageHousing
	}
	b, err := s.getBuilding(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Room.LockByBuilding(ctx, id); err != nil {
			s.logger.Error("lock building rooms failed", zap.String("id", id), zap.Error(err))
			return err
		}

		active, err := tx.Allocation.CountActiveByBuilding(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrBuildingAllocated
		}

		if err := tx.Building.Delete(ctx, id, p.UserID); err != nil {
			s.logger.Error("delete building failed", zap.String("id", id), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindBuildingDelete, p, event.SubjectBuilding, id,
		map[string]any{"name": b.Name}))
	return nil
}

// ────────────────────── Rooms ──────────────────────

func (s *buildingService) CreateRoom(ctx context.Context, p policy.Principal, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrCannotManageHousing
	}
	if req.Capacity <= 0 {
		return nil, pkgerrors.Validation("capacity must be positive")
	}

	if _, err := s.getBuilding(ctx, req.BuildingID); err != nil {
		return nil, err
	}
	number := strings.TrimSpace(req.RoomNumber)
	if err := s.checkRoomNumberFree(ctx, req.BuildingID, number, ""); err != nil {
		return nil, err
	}

	room := &model.Room{
		BuildingID:      req.BuildingID,
		RoomNumber:      number,
		Capacity:        req.Capacity,
		HasToilet:       req.HasToilet,
		HasWashroom:     req.HasWashroom,
		SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &p.UserID}},
	}
	if err := s.repo.Room.Create(ctx, room); err != nil {
		s.logger.Error("create room failed", zap.String("building_id", req.BuildingID), zap.Error(err))
		return nil, err
	}

	s.emitRoom(ctx, event.KindRoomCreate, p, room)
	return s.GetRoom(ctx, room.RoomID)
}

func (s *buildingService) GetRoom(ctx context.Context, id string) (*dto.RoomResponse, error) {
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRoomResponse(room), nil
}

func (s *buildingService) ListRooms(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, int64, error) {
	filters := &repository.RoomListFilters{
		BuildingID:  req.BuildingID,
		Allocated:   req.Allocated,
		MinCapacity: req.MinCapacity,
		Keyword:     req.Keyword,
	}

	rooms, total, err := s.repo.Room.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list rooms failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, *toRoomResponse(&rooms[i]))
	}
	return result, total, nil
}

// UpdateRoom changes the descriptive fields; is_allocated is never touched here
func (s *buildingService) UpdateRoom(ctx context.Context, p policy.Principal, id string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrCannotManageHousing
	}

	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BuildingID != nil && *req.BuildingID != room.BuildingID {
		if _, err := s.getBuilding(ctx, *req.BuildingID); err != nil {
			return nil, err
		}
		room.BuildingID = *req.BuildingID
	}
	if req.RoomNumber != nil {
		room.RoomNumber = strings.TrimSpace(*req.RoomNumber)
	}
	if req.BuildingID != nil || req.RoomNumber != nil {
		if err := s.checkRoomNumberFree(ctx, room.BuildingID, room.RoomNumber, id); err != nil {
			return nil, err
		}
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, pkgerrors.Validation("capacity must be positive")
		}
		room.Capacity = *req.Capacity
	}
	if req.HasToilet != nil {
		room.HasToilet = *req.HasToilet
	}
	if req.HasWashroom != nil {
		room.HasWashroom = *req.HasWashroom
	}

	room.UpdatedBy = &p.UserID
	if err := s.repo.Room.Update(ctx, room); err != nil {
		s.logger.Error("update room failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.emitRoom(ctx, event.KindRoomUpdate, p, room)
	return s.GetRoom(ctx, id)
}

// DeleteRoom soft-deletes a room that holds no active allocation
func (s *buildingService) DeleteRoom(ctx context.Context, p policy.Principal, id string) error {
	if !policy.IsSuperAdmin(p) {
		return ErrCannotManageHousing
	}

	var room *model.Room
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		room, err = tx.Room.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		active, err := tx.Allocation.CountActiveByRoom(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrRoomAllocated
		}

		if err := tx.Room.Delete(ctx, id, p.UserID); err != nil {
			s.logger.Error("delete room failed", zap.String("id", id), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitRoom(ctx, event.KindRoomDelete, p, room)
	return nil
}

// ── helpers ──

func (s *buildingService) emitRoom(ctx context.Context, kind event.Kind, p policy.Principal, room *model.Room) {
	e := adminEvent(kind, p, event.SubjectRoom, room.RoomID, map[string]any{"room_number": room.RoomNumber})
	e.SubjectIDs[event.SubjectBuilding] = room.BuildingID
	s.emitter.Emit(ctx, e)
}

func (s *buildingService) getBuilding(ctx context.Context, id string) (*model.Building, error) {
	b, err := s.repo.Building.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuildingNotFound
		}
		s.logger.Error("get building failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return b, nil
}

func (s *buildingService) getRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("get room failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

func (s *buildingService) checkBuildingNameFree(ctx context.Context, name, excludeID string) error {
	existing, err := s.repo.Building.GetByName(ctx, name)
	if err == nil && existing.BuildingID != excludeID {
		return ErrBuildingNameExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *buildingService) checkRoomNumberFree(ctx context.Context, buildingID, number, excludeID string) error {
	existing, err := s.repo.Room.GetByNumber(ctx, buildingID, number)
	if err == nil && existing.RoomID != excludeID {
		return ErrRoomNumberExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func toBuildingResponse(b *model.Building, stats model.BuildingStats) *dto.BuildingResponse {
	return &dto.BuildingResponse{
		ID:             b.BuildingID,
		Name:           b.Name,
		Location:       b.Location,
		Description:    b.Description,
		TotalRooms:     stats.TotalRooms,
		AllocatedRooms: stats.AllocatedRooms,
		AvailableRooms: stats.AvailableRooms(),
		TotalCapacity:  stats.TotalCapacity,
		OccupancyRate:  stats.OccupancyRate(),
		CreatedAt:      formatTime(b.CreatedAt),
	}
}
