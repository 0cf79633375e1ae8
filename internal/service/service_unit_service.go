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

// ── Service unit module errors ──

var (
	ErrServiceUnitNotFound   = fmt.Errorf("%w: service unit not found", pkgerrors.ErrNotFound)
	ErrServiceUnitNameExists = fmt.Errorf("%w: service unit name already exists", pkgerrors.ErrConflict)
	ErrServiceUnitHasMembers = fmt.Errorf("%w: service unit still has members", pkgerrors.ErrConflict)
	ErrServiceUnitAllocated  = fmt.Errorf("%w: service unit still holds active allocations", pkgerrors.ErrConflict)
	ErrInvalidUnitAdmin      = fmt.Errorf("%w: the unit admin must be a ServiceUnitAdmin", pkgerrors.ErrValidation)
	ErrNotUnitMember         = fmt.Errorf("%w: user is not a member of this service unit", pkgerrors.ErrValidation)
	ErrCannotManageUnit      = fmt.Errorf("%w: you can not manage this service unit", pkgerrors.ErrForbidden)
)

// ServiceUnitService service unit interface
type ServiceUnitService interface {
	Create(ctx context.Context, p policy.Principal, req *dto.CreateServiceUnitRequest) (*dto.ServiceUnitDetailResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ServiceUnitDetailResponse, error)
	List(ctx context.Context) ([]dto.ServiceUnitDetailResponse, error)
	Update(ctx context.Context, p policy.Principal, id string, req *dto.UpdateServiceUnitRequest) (*dto.ServiceUnitDetailResponse, error)
	Delete(ctx context.Context, p policy.Principal, id string) error
	ListMembers(ctx context.Context, p policy.Principal, id string) ([]dto.UserResponse, error)
	AddMember(ctx context.Context, p policy.Principal, id string, req *dto.ServiceUnitMemberRequest) error
	RemoveMember(ctx context.Context, p policy.Principal, id, userID string) error
}

type serviceUnitService struct {
	repo    *repository.Repository
	emitter event.Emitter
	logger  *zap.Logger
}

// NewServiceUnitService creates a ServiceUnitService
func NewServiceUnitService(repo *repository.Repository, emitter event.Emitter, logger *zap.Logger) ServiceUnitService {
	return &serviceUnitService{repo: repo, emitter: emitter, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *serviceUnitService) Create(ctx context.Context, p policy.Principal, req *dto.CreateServiceUnitRequest) (*dto.ServiceUnitDetailResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrCannotManageUnit
	}

	name := strings.TrimSpace(req.Name)
	if err := s.checkNameFree(ctx, name, ""); err != nil {
		return nil, err
	}
	if req.AdminID != nil {
		if err := s.checkAdmin(ctx, *req.AdminID); err != nil {
			return nil, err
		}
	}

	unit := &model.ServiceUnit{
		Name:            name,
		Description:     req.Description,
		AdminID:         req.AdminID,
		SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &p.UserID}},
	}
	if err := s.repo.ServiceUnit.Create(ctx, unit); err != nil {
		s.logger.Error("create service unit failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindServiceUnitCreate, p, event.SubjectServiceUnit, unit.ServiceUnitID,
		map[string]any{"name": unit.Name}))

	return s.GetByID(ctx, unit.ServiceUnitID)
}

// ────────────────────── GetByID / List ──────────────────────

func (s *serviceUnitService) GetByID(ctx context.Context, id string) (*dto.ServiceUnitDetailResponse, error) {
	unit, err := s.getUnit(ctx, id)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ServiceUnit.CountMembers(ctx, id)
	if err != nil {
		s.logger.Error("count unit members failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	active, err := s.repo.Allocation.CountActiveByServiceUnit(ctx, id)
	if err != nil {
		s.logger.Error("count unit allocations failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toServiceUnitDetail(unit, members, active), nil
}

func (s *serviceUnitService) List(ctx context.Context) ([]dto.ServiceUnitDetailResponse, error) {
	units, err := s.repo.ServiceUnit.List(ctx)
	if err != nil {
		s.logger.Error("list service units failed", zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ServiceUnitID)
	}
	counts, err := s.repo.ServiceUnit.BatchCountMembers(ctx, ids)
	if err != nil {
		s.logger.Error("count unit members failed", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ServiceUnitDetailResponse, 0, len(units))
	for i := range units {
		active, err := s.repo.Allocation.CountActiveByServiceUnit(ctx, units[i].ServiceUnitID)
		if err != nil {
			return nil, err
		}
		result = append(result, *toServiceUnitDetail(&units[i], counts[units[i].ServiceUnitID], active))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *serviceUnitService) Update(ctx context.Context, p policy.Principal, id string, req *dto.UpdateServiceUnitRequest) (*dto.ServiceUnitDetailResponse, error) {
	unit, err := s.getUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageServiceUnit(p, unit) {
		return nil, ErrCannotManageUnit
	}
	// only SuperAdmin hands the unit to another admin
	if req.AdminID != nil && !policy.IsSuperAdmin(p) {
		return nil, ErrCannotManageUnit
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.checkNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		unit.Name = name
	}
	if req.Description != nil {
		unit.Description = *req.Description
	}
	if req.AdminID != nil {
		if err := s.checkAdmin(ctx, *req.AdminID); err != nil {
			return nil, err
		}
		unit.AdminID = req.AdminID
	}

	unit.Admin = nil
	unit.UpdatedBy = &p.UserID
	if err := s.repo.ServiceUnit.Update(ctx, unit); err != nil {
		s.logger.Error("update service unit failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindServiceUnitUpdate, p, event.SubjectServiceUnit, id,
		map[string]any{"name": unit.Name}))

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

// Delete soft-deletes an empty unit. The unit row is locked against the
// ledger's share lock before anything is counted.
func (s *serviceUnitService) Delete(ctx context.Context, p policy.Principal, id string) error {
	if !policy.IsSuperAdmin(p) {
		return ErrCannotManageUnit
	}

	var unit *model.ServiceUnit
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if unit, err = tx.ServiceUnit.LockByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrServiceUnitNotFound
			}
			s.logger.Error("lock service unit failed", zap.String("id", id), zap.Error(err))
			return err
		}

		members, err := tx.ServiceUnit.CountMembers(ctx, id)
		if err != nil {
			return err
		}
		if members > 0 {
			return ErrServiceUnitHasMembers
		}
		active, err := tx.Allocation.CountActiveByServiceUnit(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrServiceUnitAllocated
		}

		if err := tx.ServiceUnit.Delete(ctx, id, p.UserID); err != nil {
			s.logger.Error("delete service unit failed", zap.String("id", id), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindServiceUnitDelete, p, event.SubjectServiceUnit, id,
		map[string]any{"name": unit.Name}))
	return nil
}

// ────────────────────── Members ──────────────────────

func (s *serviceUnitService) ListMembers(ctx context.Context, p policy.Principal, id string) ([]dto.UserResponse, error) {
	unit, err := s.getUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageServiceUnit(p, unit) && !p.InServiceUnit(id) {
		return nil, ErrCannotManageUnit
	}

	users, err := s.repo.User.ListByServiceUnit(ctx, id)
	if err != nil {
		s.logger.Error("list unit members failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		users[i].ServiceUnit = unit
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, nil
}

func (s *serviceUnitService) AddMember(ctx context.Context, p policy.Principal, id string, req *dto.ServiceUnitMemberRequest) error {
	unit, err := s.getUnit(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanManageServiceUnit(p, unit) {
		return ErrCannotManageUnit
	}

	user, err := s.getUser(ctx, req.UserID)
	if err != nil {
		return err
	}
	if user.ServiceUnitID != nil && *user.ServiceUnitID == id {
		return nil
	}

	user.ServiceUnitID = &unit.ServiceUnitID
	user.UpdatedBy = &p.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("add unit member failed", zap.String("unit_id", id), zap.String("user_id", req.UserID), zap.Error(err))
		return err
	}

	s.emitMembership(ctx, p, id, user.UserID, "member_added")
	return nil
}

func (s *serviceUnitService) RemoveMember(ctx context.Context, p policy.Principal, id, userID string) error {
	unit, err := s.getUnit(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanManageServiceUnit(p, unit) {
		return ErrCannotManageUnit
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.ServiceUnitID == nil || *user.ServiceUnitID != id {
		return ErrNotUnitMember
	}

	user.ServiceUnitID = nil
	user.UpdatedBy = &p.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("remove unit member failed", zap.String("unit_id", id), zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.emitMembership(ctx, p, id, userID, "member_removed")
	return nil
}

// ── helpers ──

func (s *serviceUnitService) emitMembership(ctx context.Context, p policy.Principal, unitID, userID, action string) {
	e := adminEvent(event.KindServiceUnitUpdate, p, event.SubjectServiceUnit, unitID, map[string]any{"action": action})
	e.SubjectIDs[event.SubjectUser] = userID
	s.emitter.Emit(ctx, e)
}

func (s *serviceUnitService) getUnit(ctx context.Context, id string) (*model.ServiceUnit, error) {
	unit, err := s.repo.ServiceUnit.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceUnitNotFound
		}
		s.logger.Error("get service unit failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return unit, nil
}

func (s *serviceUnitService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *serviceUnitService) checkNameFree(ctx context.Context, name, excludeID string) error {
	existing, err := s.repo.ServiceUnit.GetByName(ctx, name)
	if err == nil && existing.ServiceUnitID != excludeID {
		return ErrServiceUnitNameExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *serviceUnitService) checkAdmin(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != model.RoleServiceUnitAdmin && user.Role != model.RoleSuperAdmin {
		return ErrInvalidUnitAdmin
	}
	return nil
}

func toServiceUnitDetail(u *model.ServiceUnit, members, active int64) *dto.ServiceUnitDetailResponse {
	return &dto.ServiceUnitDetailResponse{
		ID:                u.ServiceUnitID,
		Name:              u.Name,
		Description:       u.Description,
		Admin:             toUserBrief(u.Admin),
		MemberCount:       members,
		ActiveAllocations: active,
		CreatedAt:         formatTime(u.CreatedAt),
		UpdatedAt:         formatTime(u.UpdatedAt),
	}
}
