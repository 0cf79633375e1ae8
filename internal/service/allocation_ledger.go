package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"accommodation-portal/internal/model"
	"accommodation-portal/internal/repository"
	pkgerrors "accommodation-portal/pkg/errors"
)

// placement a new allocation handed to the ledger
type placement struct {
	RoomID        string
	Kind          string
	UserID        *string
	ServiceUnitID *string // defaults to the user's unit for Pastor / Member
	AllocatedBy   string
	Dates         dateRange
	Notes         string
	Active        bool
	// Supersede deactivates the room's current allocation instead of failing
	Supersede bool
}

// placementResult the stored allocation and the ids it superseded
type placementResult struct {
	Allocation *model.Allocation
	Superseded []int64
}

// allocationLedger is the only writer of Allocation.is_active and
// Room.is_allocated. Every method expects tx to be a transaction-bound
// repository; the room row is locked before the active set is read.
type allocationLedger struct {
	logger *zap.Logger
}

// ────────────────────── place ──────────────────────

func (l *allocationLedger) place(ctx context.Context, tx *repository.Repository, p placement) (*placementResult, error) {
	if err := l.validate(ctx, tx, &p); err != nil {
		return nil, err
	}

	room, err := l.lockRoom(ctx, tx, p.RoomID)
	if err != nil {
		return nil, err
	}

	result := &placementResult{}
	if p.Active {
		active, err := tx.Allocation.ListActiveByRoom(ctx, room.RoomID)
		if err != nil {
			l.logger.Error("list active allocations failed", zap.String("room_id", room.RoomID), zap.Error(err))
			return nil, err
		}
		if len(active) > 0 && !p.Supersede {
			return nil, ErrRoomOccupied
		}
		for _, a := range active {
			if err := tx.Allocation.SetActive(ctx, a.AllocationID, false); err != nil {
				l.logger.Error("deactivate superseded allocation failed", zap.Int64("allocation_id", a.AllocationID), zap.Error(err))
				return nil, err
			}
			result.Superseded = append(result.Superseded, a.AllocationID)
		}
	}

	a := &model.Allocation{
		RoomID:        room.RoomID,
		UserID:        p.UserID,
		ServiceUnitID: p.ServiceUnitID,
		AllocatedBy:   p.AllocatedBy,
		Kind:          p.Kind,
		Notes:         p.Notes,
		StartDate:     p.Dates.Start,
		EndDate:       p.Dates.End,
		IsActive:      p.Active,
	}
	if err := tx.Allocation.Create(ctx, a); err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			return nil, ErrRoomOccupied
		}
		l.logger.Error("create allocation failed", zap.String("room_id", room.RoomID), zap.Error(err))
		return nil, err
	}

	if err := l.recomputeRoom(ctx, tx, room); err != nil {
		return nil, err
	}

	result.Allocation = a
	return result, nil
}

// validate checks the kind/principal/date invariants and fills in the
// denormalized service unit for user allocations
func (l *allocationLedger) validate(ctx context.Context, tx *repository.Repository, p *placement) error {
	if !model.IsValidAllocationKind(p.Kind) {
		return ErrInvalidAllocationKind
	}
	if err := p.Dates.validate(); err != nil {
		return err
	}

	if p.Kind == model.AllocationKindServiceUnit {
		if p.UserID != nil {
			return pkgerrors.Validation("user must not be set for a ServiceUnit allocation")
		}
		if p.ServiceUnitID == nil {
			return ErrServiceUnitRequired
		}
		return l.requireServiceUnit(ctx, tx, *p.ServiceUnitID)
	}

	if p.UserID == nil {
		return pkgerrors.Validation("user is required for a %s allocation", p.Kind)
	}
	user, err := tx.User.GetByID(ctx, *p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Role != p.Kind {
		return pkgerrors.Validation("user must have the %s role for a %s allocation", p.Kind, p.Kind)
	}
	if p.ServiceUnitID == nil {
		p.ServiceUnitID = user.ServiceUnitID
	}
	if p.ServiceUnitID == nil {
		return ErrServiceUnitRequired
	}
	return l.requireServiceUnit(ctx, tx, *p.ServiceUnitID)
}

// requireServiceUnit share-locks the unit so it can not be deleted before commit
func (l *allocationLedger) requireServiceUnit(ctx context.Context, tx *repository.Repository, id string) error {
	if _, err := tx.ServiceUnit.ShareByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceUnitNotFound
		}
		return err
	}
	return nil
}

// ────────────────────── deactivate ──────────────────────

// deactivate is idempotent: an inactive allocation is returned unchanged
func (l *allocationLedger) deactivate(ctx context.Context, tx *repository.Repository, id int64) (*model.Allocation, bool, error) {
	a, err := l.getAllocation(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if !a.IsActive {
		return a, false, nil
	}

	room, err := l.lockRoom(ctx, tx, a.RoomID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Allocation.SetActive(ctx, a.AllocationID, false); err != nil {
		l.logger.Error("deactivate allocation failed", zap.Int64("allocation_id", id), zap.Error(err))
		return nil, false, err
	}
	a.IsActive = false

	if err := l.recomputeRoom(ctx, tx, room); err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// ────────────────────── reactivate ──────────────────────

// reactivate never supersedes: another active allocation on the room is a conflict
func (l *allocationLedger) reactivate(ctx context.Context, tx *repository.Repository, id int64) (*model.Allocation, bool, error) {
	a, err := l.getAllocation(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if a.IsActive {
		return a, false, nil
	}

	room, err := l.lockRoom(ctx, tx, a.RoomID)
	if err != nil {
		return nil, false, err
	}

	count, err := tx.Allocation.CountActiveByRoom(ctx, room.RoomID)
	if err != nil {
		return nil, false, err
	}
	if count > 0 {
		return nil, false, ErrRoomOccupied
	}

	if err := tx.Allocation.SetActive(ctx, a.AllocationID, true); err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			return nil, false, ErrRoomOccupied
		}
		l.logger.Error("reactivate allocation failed", zap.Int64("allocation_id", id), zap.Error(err))
		return nil, false, err
	}
	a.IsActive = true

	if err := l.recomputeRoom(ctx, tx, room); err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// ────────────────────── room flag ──────────────────────

// reconcileRoom locks the room and rewrites is_allocated from the active set.
// Reports whether the stored flag was wrong.
func (l *allocationLedger) reconcileRoom(ctx context.Context, tx *repository.Repository, roomID string) (bool, error) {
	room, err := l.lockRoom(ctx, tx, roomID)
	if err != nil {
		return false, err
	}
	before := room.IsAllocated
	if err := l.recomputeRoom(ctx, tx, room); err != nil {
		return false, err
	}
	return before != room.IsAllocated, nil
}

// recomputeRoom sets is_allocated = (active allocations > 0)
func (l *allocationLedger) recomputeRoom(ctx context.Context, tx *repository.Repository, room *model.Room) error {
	count, err := tx.Allocation.CountActiveByRoom(ctx, room.RoomID)
	if err != nil {
		l.logger.Error("count active allocations failed", zap.String("room_id", room.RoomID), zap.Error(err))
		return err
	}

	allocated := count > 0
	if room.IsAllocated == allocated {
		return nil
	}
	if err := tx.Room.SetAllocated(ctx, room.RoomID, allocated); err != nil {
		l.logger.Error("update room flag failed", zap.String("room_id", room.RoomID), zap.Error(err))
		return err
	}
	room.IsAllocated = allocated
	return nil
}

// ── helpers ──

func (l *allocationLedger) lockRoom(ctx context.Context, tx *repository.Repository, id string) (*model.Room, error) {
	room, err := tx.Room.LockByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.logger.Error("lock room failed", zap.String("room_id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

func (l *allocationLedger) getAllocation(ctx context.Context, tx *repository.Repository, id int64) (*model.Allocation, error) {
	a, err := tx.Allocation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return a, nil
}
