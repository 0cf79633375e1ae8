package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

// ── Allocation request module errors ──

var (
	ErrRequestNotFound     = fmt.Errorf("%w: allocation request not found", pkgerrors.ErrNotFound)
	ErrBuildingNotFound    = fmt.Errorf("%w: building not found", pkgerrors.ErrNotFound)
	ErrRequestNotPending   = fmt.Errorf("%w: only pending requests can be changed", pkgerrors.ErrValidation)
	ErrNoRoomResolved      = fmt.Errorf("%w: no room specified and the request has no preferred room", pkgerrors.ErrValidation)
	ErrRoomNotInBuilding   = fmt.Errorf("%w: preferred room is not in the preferred building", pkgerrors.ErrValidation)
	ErrApprovalRole        = fmt.Errorf("%w: requester role can not receive a room through a request", pkgerrors.ErrValidation)
	ErrCannotReviewRequest = fmt.Errorf("%w: only administrators can review requests", pkgerrors.ErrForbidden)
	ErrCannotCancelRequest = fmt.Errorf("%w: only the requester can cancel this request", pkgerrors.ErrForbidden)
	ErrCannotEditRequest   = fmt.Errorf("%w: only the requester can edit this request", pkgerrors.ErrForbidden)
	ErrCannotViewRequest   = fmt.Errorf("%w: you can not view this request", pkgerrors.ErrForbidden)
	ErrRequestOutOfScope   = fmt.Errorf("%w: you can only review requests from your service unit", pkgerrors.ErrForbidden)
)

// AllocationRequestService request workflow interface
type AllocationRequestService interface {
	Submit(ctx context.Context, p policy.Principal, req *dto.SubmitAllocationRequest) (*dto.AllocationRequestResponse, error)
	GetByID(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationRequestResponse, error)
	List(ctx context.Context, p policy.Principal, req *dto.AllocationRequestListRequest) ([]dto.AllocationRequestResponse, int64, error)
	ListPending(ctx context.Context, p policy.Principal, page *dto.PaginationRequest) ([]dto.AllocationRequestResponse, int64, error)
	ListMine(ctx context.Context, p policy.Principal) ([]dto.AllocationRequestResponse, error)
	Update(ctx context.Context, p policy.Principal, id int64, req *dto.UpdateAllocationRequestRequest) (*dto.AllocationRequestResponse, error)
	Approve(ctx context.Context, p policy.Principal, id int64, req *dto.ApproveAllocationRequest) (*dto.AllocationRequestResponse, error)
	Reject(ctx context.Context, p policy.Principal, id int64, req *dto.RejectAllocationRequest) (*dto.AllocationRequestResponse, error)
	Cancel(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationRequestResponse, error)
}

type allocationRequestService struct {
	cfg     *config.AllocationConfig
	repo    *repository.Repository
	ledger  *allocationLedger
	emitter event.Emitter
	logger  *zap.Logger
	now     func() time.Time
}

// NewAllocationRequestService creates an AllocationRequestService
func NewAllocationRequestService(
	cfg *config.AllocationConfig,
	repo *repository.Repository,
	emitter event.Emitter,
	logger *zap.Logger,
) AllocationRequestService {
	return &allocationRequestService{
		cfg:     cfg,
		repo:    repo,
		ledger:  &allocationLedger{logger: logger},
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ────────────────────── Submit ──────────────────────

func (s *allocationRequestService) Submit(ctx context.Context, p policy.Principal, req *dto.SubmitAllocationRequest) (*dto.AllocationRequestResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, pkgerrors.Validation("request_reason is required")
	}

	dates, err := parseDateRange(req.RequestedStartDate, req.RequestedEndDate)
	if err != nil {
		return nil, err
	}

	if err := s.checkPreferences(ctx, req.PreferredRoomID, req.PreferredBuildingID); err != nil {
		return nil, err
	}

	r := &model.AllocationRequest{
		RequestedBy:         p.UserID,
		PreferredRoomID:     req.PreferredRoomID,
		PreferredBuildingID: req.PreferredBuildingID,
		Reason:              reason,
		RequestedStartDate:  dates.Start,
		RequestedEndDate:    dates.End,
		Status:              model.RequestStatusPending,
		BaseModel:           model.BaseModel{CreatedBy: &p.UserID},
	}
	if err := s.repo.AllocationRequest.Create(ctx, r); err != nil {
		s.logger.Error("create allocation request failed", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, requestEvent(event.KindRequestSubmitted, p.UserID, r))

	return s.reload(ctx, r)
}

// checkPreferences preferred room and building must exist, and agree when both are given
func (s *allocationRequestService) checkPreferences(ctx context.Context, roomID, buildingID *string) error {
	if buildingID != nil {
		if _, err := s.repo.Building.GetByID(ctx, *buildingID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBuildingNotFound
			}
			return err
		}
	}
	if roomID != nil {
		room, err := s.repo.Room.GetByID(ctx, *roomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if buildingID != nil && room.BuildingID != *buildingID {
			return ErrRoomNotInBuilding
		}
	}
	return nil
}

// ────────────────────── Queries ──────────────────────

func (s *allocationRequestService) GetByID(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationRequestResponse, error) {
	r, err := s.getRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(p, r) {
		return nil, ErrCannotViewRequest
	}
	return toAllocationRequestResponse(r), nil
}

func (s *allocationRequestService) List(ctx context.Context, p policy.Principal, req *dto.AllocationRequestListRequest) ([]dto.AllocationRequestResponse, int64, error) {
	filters := &repository.RequestListFilters{
		Status:    req.Status,
		VisibleTo: requestVisibility(p),
	}
	return s.list(ctx, filters, req.GetOffset(), req.GetPageSize())
}

// ListPending review queue
func (s *allocationRequestService) ListPending(ctx context.Context, p policy.Principal, page *dto.PaginationRequest) ([]dto.AllocationRequestResponse, int64, error) {
	if !policy.CanReviewRequest(p) {
		return nil, 0, ErrCannotReviewRequest
	}
	filters := &repository.RequestListFilters{
		Status:    model.RequestStatusPending,
		VisibleTo: requestVisibility(p),
	}
	return s.list(ctx, filters, page.GetOffset(), page.GetPageSize())
}

func (s *allocationRequestService) ListMine(ctx context.Context, p policy.Principal) ([]dto.AllocationRequestResponse, error) {
	list, _, err := s.list(ctx, &repository.RequestListFilters{RequestedBy: p.UserID}, 0, maxListAll)
	return list, err
}

func (s *allocationRequestService) list(ctx context.Context, filters *repository.RequestListFilters, offset, limit int) ([]dto.AllocationRequestResponse, int64, error) {
	list, total, err := s.repo.AllocationRequest.List(ctx, filters, offset, limit)
	if err != nil {
		s.logger.Error("list allocation requests failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AllocationRequestResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAllocationRequestResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *allocationRequestService) Update(ctx context.Context, p policy.Principal, id int64, req *dto.UpdateAllocationRequestRequest) (*dto.AllocationRequestResponse, error) {
	r, err := s.getRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditRequest(p, r) {
		return nil, ErrCannotEditRequest
	}
	if !r.IsPending() {
		return nil, ErrRequestNotPending
	}

	if req.PreferredRoomID != nil {
		r.PreferredRoomID = req.PreferredRoomID
	}
	if req.PreferredBuildingID != nil {
		r.PreferredBuildingID = req.PreferredBuildingID
	}
	if err := s.checkPreferences(ctx, r.PreferredRoomID, r.PreferredBuildingID); err != nil {
		return nil, err
	}
	if req.Reason != nil {
		reason := strings.TrimSpace(*req.Reason)
		if reason == "" {
			return nil, pkgerrors.Validation("request_reason is required")
		}
		r.Reason = reason
	}
	if req.RequestedStartDate != nil {
		if r.RequestedStartDate, err = parseDate("requested_start_date", req.RequestedStartDate); err != nil {
			return nil, err
		}
	}
	if req.RequestedEndDate != nil {
		if r.RequestedEndDate, err = parseDate("requested_end_date", req.RequestedEndDate); err != nil {
			return nil, err
		}
	}
	if err := (dateRange{Start: r.RequestedStartDate, End: r.RequestedEndDate}).validate(); err != nil {
		return nil, err
	}

	r.UpdatedBy = &p.UserID
	if err := s.repo.AllocationRequest.Update(ctx, r); err != nil {
		s.logger.Error("update allocation request failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return s.reload(ctx, r)
}

// ────────────────────── Approve ──────────────────────

// Approve creates the allocation and marks the request Approved in one
// transaction. A room that is already taken fails the whole approval and
// the request stays Pending.
func (s *allocationRequestService) Approve(ctx context.Context, p policy.Principal, id int64, req *dto.ApproveAllocationRequest) (*dto.AllocationRequestResponse, error) {
	if !policy.CanReviewRequest(p) {
		return nil, ErrCannotReviewRequest
	}

	override, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	var r *model.AllocationRequest
	var result *placementResult
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var (
			requester *model.User
			err       error
		)
		if r, requester, err = s.lockReviewable(ctx, tx, p, id); err != nil {
			return err
		}

		roomID := r.PreferredRoomID
		if req.RoomID != nil {
			roomID = req.RoomID
		}
		if roomID == nil {
			return ErrNoRoomResolved
		}

		dates := dateRange{Start: r.RequestedStartDate, End: r.RequestedEndDate}
		if !override.isZero() {
			dates = override
		}

		kind, err := s.approvalKind(requester)
		if err != nil {
			return err
		}

		result, err = s.ledger.place(ctx, tx, placement{
			RoomID:      *roomID,
			Kind:        kind,
			UserID:      &requester.UserID,
			AllocatedBy: p.UserID,
			Dates:       dates,
			Notes:       approvalNotes(r.RequestID, req.ReviewNotes),
			Active:      true,
			Supersede:   false,
		})
		if err != nil {
			return err
		}

		now := s.now()
		r.Status = model.RequestStatusApproved
		r.ReviewedBy = &p.UserID
		r.ReviewedAt = &now
		r.ReviewNotes = req.ReviewNotes
		r.CreatedAllocationID = &result.Allocation.AllocationID
		r.UpdatedBy = &p.UserID
		return tx.AllocationRequest.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	a := result.Allocation
	s.emitter.Emit(ctx, allocationEvent(event.KindAllocationCreated, p.UserID, a))

	e := requestEvent(event.KindRequestApproved, p.UserID, r)
	e.SubjectIDs[event.SubjectAllocation] = a.IDString()
	e.SubjectIDs[event.SubjectRoom] = a.RoomID
	e.Metadata["review_notes"] = r.ReviewNotes
	s.emitter.Emit(ctx, e)

	return s.reload(ctx, r)
}

// approvalKind the allocation kind a request approval produces
func (s *allocationRequestService) approvalKind(requester *model.User) (string, error) {
	if s.cfg.ApprovalKind == config.ApprovalKindMember {
		return model.AllocationKindMember, nil
	}
	switch requester.Role {
	case model.RolePastor:
		return model.AllocationKindPastor, nil
	case model.RoleMember:
		return model.AllocationKindMember, nil
	}
	return "", ErrApprovalRole
}

func approvalNotes(requestID int64, reviewNotes string) string {
	notes := fmt.Sprintf("Created from request #%d.", requestID)
	if n := strings.TrimSpace(reviewNotes); n != "" {
		notes += " " + n
	}
	return notes
}

// ────────────────────── Reject ──────────────────────

func (s *allocationRequestService) Reject(ctx context.Context, p policy.Principal, id int64, req *dto.RejectAllocationRequest) (*dto.AllocationRequestResponse, error) {
	if !policy.CanReviewRequest(p) {
		return nil, ErrCannotReviewRequest
	}

	var r *model.AllocationRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if r, _, err = s.lockReviewable(ctx, tx, p, id); err != nil {
			return err
		}

		now := s.now()
		r.Status = model.RequestStatusRejected
		r.ReviewedBy = &p.UserID
		r.ReviewedAt = &now
		r.ReviewNotes = req.ReviewNotes
		r.UpdatedBy = &p.UserID
		return tx.AllocationRequest.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	e := requestEvent(event.KindRequestRejected, p.UserID, r)
	e.Metadata["review_notes"] = r.ReviewNotes
	s.emitter.Emit(ctx, e)

	return s.reload(ctx, r)
}

// ────────────────────── Cancel ──────────────────────

func (s *allocationRequestService) Cancel(ctx context.Context, p policy.Principal, id int64) (*dto.AllocationRequestResponse, error) {
	var r *model.AllocationRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if r, err = s.lockRequest(ctx, tx, id); err != nil {
			return err
		}
		if !policy.CanCancelRequest(p, r) {
			return ErrCannotCancelRequest
		}
		if !r.IsPending() {
			return ErrRequestNotPending
		}

		r.Status = model.RequestStatusCancelled
		r.UpdatedBy = &p.UserID
		return tx.AllocationRequest.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, requestEvent(event.KindRequestCancelled, p.UserID, r))

	return s.reload(ctx, r)
}

// ── helpers ──

func (s *allocationRequestService) getRequest(ctx context.Context, repo *repository.Repository, id int64) (*model.AllocationRequest, error) {
	r, err := repo.AllocationRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("get allocation request failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return r, nil
}

func (s *allocationRequestService) lockRequest(ctx context.Context, tx *repository.Repository, id int64) (*model.AllocationRequest, error) {
	r, err := tx.AllocationRequest.LockByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("lock allocation request failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return r, nil
}

// lockReviewable locks a pending request whose requester the reviewer covers.
// Scope is checked before status.
func (s *allocationRequestService) lockReviewable(ctx context.Context, tx *repository.Repository, p policy.Principal, id int64) (*model.AllocationRequest, *model.User, error) {
	r, err := s.lockRequest(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	requester, err := tx.User.GetByID(ctx, r.RequestedBy)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	if !policy.CanReviewRequestFrom(p, requester) {
		return nil, nil, ErrRequestOutOfScope
	}
	if !r.IsPending() {
		return nil, nil, ErrRequestNotPending
	}
	return r, requester, nil
}

func (s *allocationRequestService) canView(p policy.Principal, r *model.AllocationRequest) bool {
	if policy.IsSuperAdmin(p) || r.RequestedBy == p.UserID {
		return true
	}
	if policy.IsServiceUnitAdmin(p) && r.Requester != nil && r.Requester.ServiceUnitID != nil {
		return p.InServiceUnit(*r.Requester.ServiceUnitID)
	}
	return false
}

func (s *allocationRequestService) reload(ctx context.Context, r *model.AllocationRequest) (*dto.AllocationRequestResponse, error) {
	loaded, err := s.repo.AllocationRequest.GetByID(ctx, r.RequestID)
	if err != nil {
		s.logger.Warn("reload allocation request failed", zap.Int64("id", r.RequestID), zap.Error(err))
		return toAllocationRequestResponse(r), nil
	}
	return toAllocationRequestResponse(loaded), nil
}

// requestVisibility nil means unrestricted
func requestVisibility(p policy.Principal) *repository.RequestVisibility {
	if policy.IsSuperAdmin(p) {
		return nil
	}
	v := &repository.RequestVisibility{UserID: p.UserID}
	if policy.IsServiceUnitAdmin(p) && p.ServiceUnitID != nil {
		v.ServiceUnitID = *p.ServiceUnitID
	}
	return v
}

func requestEvent(kind event.Kind, actorID string, r *model.AllocationRequest) event.Event {
	subjects := map[string]string{
		event.SubjectRequest:   r.IDString(),
		event.SubjectRequester: r.RequestedBy,
	}
	if r.PreferredRoomID != nil {
		subjects[event.SubjectRoom] = *r.PreferredRoomID
	}
	return event.Event{
		Kind:       kind,
		ActorID:    actorID,
		SubjectIDs: subjects,
		Metadata:   map[string]any{"status": r.Status},
	}
}

func toAllocationRequestResponse(r *model.AllocationRequest) *dto.AllocationRequestResponse {
	return &dto.AllocationRequestResponse{
		ID:                  r.RequestID,
		Requester:           toUserBrief(r.Requester),
		RequestedBy:         r.RequestedBy,
		PreferredRoom:       toRoomResponse(r.PreferredRoom),
		PreferredBuilding:   toBuildingBrief(r.PreferredBuilding),
		Reason:              r.Reason,
		RequestedStartDate:  formatDate(r.RequestedStartDate),
		RequestedEndDate:    formatDate(r.RequestedEndDate),
		Status:              r.Status,
		ReviewedBy:          r.ReviewedBy,
		ReviewNotes:         r.ReviewNotes,
		ReviewedAt:          formatTimePtr(r.ReviewedAt),
		CreatedAllocationID: r.CreatedAllocationID,
		CreatedAt:           formatTime(r.CreatedAt),
	}
}
