package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"accommodation-portal/config"
	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/event"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/policy"
	"accommodation-portal/internal/repository"
	pkgerrors "accommodation-portal/pkg/errors"
)

// ── Allocation module errors ──

var (
	ErrAllocationNotFound     = fmt.Errorf("%w: allocation not found", pkgerrors.ErrNotFound)
	ErrRoomNotFound           = fmt.Errorf("%w: room not found", pkgerrors.ErrNotFound)
	ErrRoomOccupied           = fmt.Errorf("%w: room already has an active allocation", pkgerrors.ErrConflict)
	ErrInvalidAllocationKind  = fmt.Errorf("%w: allocation_type must be ServiceUnit, Pastor or Member", pkgerrors.ErrValidation)
	ErrServiceUnitRequired    = fmt.Errorf("%w: service unit is required for this allocation", pkgerrors.ErrValidation)
	ErrInvalidDateRange       = fmt.Errorf("%w: end date must be after start date", pkgerrors.ErrValidation)
	ErrCannotAllocate         = fmt.Errorf("%w: only administrators can allocate rooms", pkgerrors.ErrForbidden)
	ErrCannotModifyAllocation = fmt.Errorf("%w: you can not modify this allocation", pkgerrors.ErrForbidden)
	ErrCannotViewAllocation   = fmt.Errorf("%w: you can not view this allocation", pkgerrors.ErrForbidden)
)

// AllocationService allocation business interface
type AllocationService interface {
	Create(ctx context.Context, p policy.Principal, req *dto.CreateAllocationRequest) (*dto.AllocationResponse, error)
	GetByID(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationResponse, error)
	List(ctx context.Context, p policy.Principal, req *dto.AllocationListRequest) ([]dto.AllocationResponse, int64, error)
	ListMine(ctx context.Context, p policy.Principal, req *dto.MyAllocationsRequest) ([]dto.AllocationResponse, error)
	Deactivate(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationResponse, error)
	Reactivate(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationResponse, error)
	AvailableRooms(ctx context.Context, req *dto.AvailableRoomsRequest) ([]dto.RoomResponse, error)
	ReconcileRooms(ctx context.Context) (*dto.ReconcileRoomsResponse, error)
}

type allocationService struct {
	cfg     *config.AllocationConfig
	repo    *repository.Repository
	ledger  *allocationLedger
	emitter event.Emitter
	logger  *zap.Logger
}

// NewAllocationService creates an AllocationService
func NewAllocationService(
	cfg *config.AllocationConfig,
	repo *repository.Repository,
	emitter event.Emitter,
	logger *zap.Logger,
) AllocationService {
	return &allocationService{
		cfg:     cfg,
		repo:    repo,
		ledger:  &allocationLedger{logger: logger},
		emitter: emitter,
		logger:  logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *allocationService) Create(ctx context.Context, p policy.Principal, req *dto.CreateAllocationRequest) (*dto.AllocationResponse, error) {
	if !policy.CanAllocateRooms(p) {
		return nil, ErrCannotAllocate
	}

	dates, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	pl := placement{
		RoomID:        req.RoomID,
		Kind:          req.Kind,
		UserID:        req.UserID,
		ServiceUnitID: req.ServiceUnitID,
		AllocatedBy:   p.UserID,
		Dates:         dates,
		Notes:         req.Notes,
		Active:        active,
		Supersede:     s.cfg.SupersedeOnCreate,
	}

	var result *placementResult
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		result, err = s.ledger.place(ctx, tx, pl)
		return err
	})
	if err != nil {
		return nil, err
	}

	a := result.Allocation
	for _, id := range result.Superseded {
		s.emitter.Emit(ctx, event.Event{
			Kind:    event.KindAllocationDeactivated,
			ActorID: p.UserID,
			SubjectIDs: map[string]string{
				event.SubjectAllocation: fmt.Sprint(id),
				event.SubjectRoom:       a.RoomID,
			},
			Metadata: map[string]any{"superseded_by": a.AllocationID},
		})
	}
	s.emitter.Emit(ctx, allocationEvent(event.KindAllocationCreated, p.UserID, a))

	return s.reload(ctx, a)
}

// ────────────────────── GetByID ──────────────────────

func (s *allocationService) GetByID(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationResponse, error) {
	a, err := s.repo.Allocation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllocationNotFound
		}
		s.logger.Error("get allocation failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	if !canViewAllocation(p, a) {
		return nil, ErrCannotViewAllocation
	}
	return toAllocationResponse(a), nil
}

// ────────────────────── List ──────────────────────

func (s *allocationService) List(ctx context.Context, p policy.Principal, req *dto.AllocationListRequest) ([]dto.AllocationResponse, int64, error) {
	filters := &repository.AllocationListFilters{
		RoomID:        req.RoomID,
		BuildingID:    req.BuildingID,
		UserID:        req.UserID,
		ServiceUnitID: req.ServiceUnitID,
		Kind:          req.Kind,
		Active:        req.Active,
		VisibleTo:     allocationVisibility(p),
	}

	list, total, err := s.repo.Allocation.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list allocations failed", zap.Error(err))
		return nil, 0, err
	}
	return toAllocationResponses(list), total, nil
}

// ListMine allocations held by the caller or by the caller's service unit,
// active ones only unless req asks for history
func (s *allocationService) ListMine(ctx context.Context, p policy.Principal, req *dto.MyAllocationsRequest) ([]dto.AllocationResponse, error) {
	v := &repository.AllocationVisibility{UserID: p.UserID}
	if p.ServiceUnitID != nil {
		v.ServiceUnitID = *p.ServiceUnitID
	}
	filters := &repository.AllocationListFilters{VisibleTo: v}
	if req == nil || !req.IncludeInactive {
		active := true
		filters.Active = &active
	}

	list, _, err := s.repo.Allocation.List(ctx, filters, 0, maxListAll)
	if err != nil {
		s.logger.Error("list own allocations failed", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}
	return toAllocationResponses(list), nil
}

// ────────────────────── Deactivate / Reactivate ──────────────────────

func (s *allocationService) Deactivate(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationResponse, error) {
	return s.toggle(ctx, p, id, false)
}

func (s *allocationService) Reactivate(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationResponse, error) {
	return s.toggle(ctx, p, id, true)
}

func (s *allocationService) toggle(ctx context.Context, p policy.Principal, id int64, activate bool) (*dto.AllocationResponse, error) {
	var a *model.Allocation
	var changed bool

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		current, err := s.ledger.getAllocation(ctx, tx, id)
		if err != nil {
			return err
		}
		unit, err := s.allocationUnit(ctx, tx, current)
		if err != nil {
			return err
		}
		if !policy.CanModifyAllocation(p, current, unit) {
			return ErrCannotModifyAllocation
		}

		if activate {
			a, changed, err = s.ledger.reactivate(ctx, tx, id)
		} else {
			a, changed, err = s.ledger.deactivate(ctx, tx, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		kind := event.KindAllocationDeactivated
		if activate {
			kind = event.KindAllocationReactivated
		}
		s.emitter.Emit(ctx, allocationEvent(kind, p.UserID, a))
	}

	return s.reload(ctx, a)
}

// allocationUnit loads the unit the allocation belongs to, nil if none
func (s *allocationService) allocationUnit(ctx context.Context, tx *repository.Repository, a *model.Allocation) (*model.ServiceUnit, error) {
	if a.ServiceUnitID == nil {
		return nil, nil
	}
	if a.ServiceUnit != nil {
		return a.ServiceUnit, nil
	}
	unit, err := tx.ServiceUnit.GetByID(ctx, *a.ServiceUnitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return unit, nil
}

// ────────────────────── AvailableRooms ──────────────────────

func (s *allocationService) AvailableRooms(ctx context.Context, req *dto.AvailableRoomsRequest) ([]dto.RoomResponse, error) {
	rooms, err := s.repo.Room.ListAvailable(ctx, req.BuildingID)
	if err != nil {
		s.logger.Error("list available rooms failed", zap.Error(err))
		return nil, err
	}

	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, *toRoomResponse(&rooms[i]))
	}
	return result, nil
}

// ────────────────────── ReconcileRooms ──────────────────────

// ReconcileRooms recomputes is_allocated for every room, one transaction per room
func (s *allocationService) ReconcileRooms(ctx context.Context) (*dto.ReconcileRoomsResponse, error) {
	ids, err := s.repo.Room.ListIDs(ctx)
	if err != nil {
		s.logger.Error("list room ids failed", zap.Error(err))
		return nil, err
	}

	resp := &dto.ReconcileRoomsResponse{}
	for _, id := range ids {
		var fixed bool
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			var err error
			fixed, err = s.ledger.reconcileRoom(ctx, tx, id)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("reconcile room %s: %w", id, err)
		}
		resp.Checked++
		if fixed {
			resp.Fixed++
			s.logger.Warn("room flag corrected", zap.String("room_id", id))
		}
	}
	return resp, nil
}

// ── helpers ──

// maxListAll upper bound for unpaginated "mine" listings
const maxListAll = 500

func (s *allocationService) reload(ctx context.Context, a *model.Allocation) (*dto.AllocationResponse, error) {
	loaded, err := s.repo.Allocation.GetByID(ctx, a.AllocationID)
	if err != nil {
		s.logger.Warn("reload allocation failed", zap.Int64("id", a.AllocationID), zap.Error(err))
		return toAllocationResponse(a), nil
	}
	return toAllocationResponse(loaded), nil
}

func allocationEvent(kind event.Kind, actorID string, a *model.Allocation) event.Event {
	subjects := map[string]string{
		event.SubjectAllocation: a.IDString(),
		event.SubjectRoom:       a.RoomID,
	}
	if a.UserID != nil {
		subjects[event.SubjectUser] = *a.UserID
	}
	if a.ServiceUnitID != nil {
		subjects[event.SubjectServiceUnit] = *a.ServiceUnitID
	}
	return event.Event{
		Kind:       kind,
		ActorID:    actorID,
		SubjectIDs: subjects,
		Metadata:   map[string]any{"allocation_type": a.Kind},
	}
}

// allocationVisibility nil means unrestricted
func allocationVisibility(p policy.Principal) *repository.AllocationVisibility {
	switch {
	case policy.IsSuperAdmin(p):
		return nil
	case policy.IsServiceUnitAdmin(p):
		v := &repository.AllocationVisibility{UserID: p.UserID, AllocatedBy: p.UserID}
		if p.ServiceUnitID != nil {
			v.ServiceUnitID = *p.ServiceUnitID
		}
		return v
	default:
		return &repository.AllocationVisibility{UserID: p.UserID}
	}
}

func canViewAllocation(p policy.Principal, a *model.Allocation) bool {
	if policy.IsSuperAdmin(p) {
		return true
	}
	if a.UserID != nil && *a.UserID == p.UserID {
		return true
	}
	if policy.IsServiceUnitAdmin(p) {
		if a.AllocatedBy == p.UserID {
			return true
		}
		return a.ServiceUnitID != nil && p.InServiceUnit(*a.ServiceUnitID)
	}
	return false
}

func toAllocationResponse(a *model.Allocation) *dto.AllocationResponse {
	return &dto.AllocationResponse{
		ID:             a.AllocationID,
		Room:           toRoomResponse(a.Room),
		RoomID:         a.RoomID,
		Kind:           a.Kind,
		User:           toUserBrief(a.User),
		ServiceUnit:    toServiceUnitBrief(a.ServiceUnit),
		AllocatedBy:    a.AllocatedBy,
		AllocationDate: formatTime(a.AllocationDate),
		StartDate:      formatDate(a.StartDate),
		EndDate:        formatDate(a.EndDate),
		IsActive:       a.IsActive,
		Notes:          a.Notes,
	}
}

func toAllocationResponses(list []model.Allocation) []dto.AllocationResponse {
	result := make([]dto.AllocationResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAllocationResponse(&list[i]))
	}
	return result
}
