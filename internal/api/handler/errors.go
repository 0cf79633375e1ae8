package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"accommodation-portal/internal/service"
	pkgerrors "accommodation-portal/pkg/errors"
	"accommodation-portal/pkg/response"
)

// errorCodes business codes per module sentinel.
// 11xxx auth, 12xxx user, 13xxx service unit, 14xxx building/room,
// 15xxx allocation, 16xxx allocation request, 17xxx notification.
var errorCodes = []struct {
	err  error
	code int
}{
	{service.ErrAccountDisabled, 11003},
	{service.ErrWrongPassword, 11004},
	{service.ErrSamePassword, 11005},

	{service.ErrUserNotFound, 12001},
	{service.ErrEmailExists, 12002},
	{service.ErrUserSelfRoleChange, 12003},
	{service.ErrUserSelfDelete, 12004},
	{service.ErrNoPermission, 12005},
	{service.ErrImportNoData, 12006},
	{service.ErrImportTooManyRows, 12007},
	{service.ErrImportBadHeader, 12008},

	{service.ErrServiceUnitNotFound, 13001},
	{service.ErrServiceUnitNameExists, 13002},
	{service.ErrServiceUnitHasMembers, 13003},
	{service.ErrServiceUnitAllocated, 13004},
	{service.ErrInvalidUnitAdmin, 13005},
	{service.ErrNotUnitMember, 13006},
	{service.ErrCannotManageUnit, 13007},

	{service.ErrBuildingNotFound, 14001},
	{service.ErrBuildingNameExists, 14002},
	{service.ErrBuildingAllocated, 14003},
	{service.ErrRoomNotFound, 14004},
	{service.ErrRoomNumberExists, 14005},
	{service.ErrRoomAllocated, 14006},
	{service.ErrCannotManageHousing, 14007},

	{service.ErrAllocationNotFound, 15001},
	{service.ErrRoomOccupied, 15002},
	{service.ErrInvalidAllocationKind, 15003},
	{service.ErrServiceUnitRequired, 15004},
	{service.ErrInvalidDateRange, 15005},
	{service.ErrCannotAllocate, 15006},
	{service.ErrCannotModifyAllocation, 15007},
	{service.ErrCannotViewAllocation, 15008},

	{service.ErrRequestNotFound, 16001},
	{service.ErrRequestNotPending, 16002},
	{service.ErrNoRoomResolved, 16003},
	{service.ErrRoomNotInBuilding, 16004},
	{service.ErrApprovalRole, 16005},
	{service.ErrCannotReviewRequest, 16006},
	{service.ErrCannotCancelRequest, 16007},
	{service.ErrCannotEditRequest, 16008},
	{service.ErrCannotViewRequest, 16009},
	{service.ErrRequestOutOfScope, 16010},

	{service.ErrNotificationNotFound, 17001},

	{pkgerrors.ErrOptimisticLock, 10008},
}

// handleError maps a service error to a status by its kind and to a
// business code by its sentinel. Unknown errors become a 500 and are
// attached to the context for the access log.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, err.Error())
		return
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Unauthorized(c, 11002, err.Error())
		return
	}

	kind := pkgerrors.Kind(err)
	if kind == nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	code := 0
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			code = ec.code
			break
		}
	}
	msg := strings.TrimPrefix(err.Error(), kind.Error()+": ")

	switch kind {
	case pkgerrors.ErrValidation:
		response.BadRequest(c, orDefault(code, 10001), msg)
	case pkgerrors.ErrConflict:
		response.Conflict(c, orDefault(code, 10007), msg)
	case pkgerrors.ErrForbidden:
		response.Forbidden(c, orDefault(code, 10003), msg)
	case pkgerrors.ErrNotFound:
		response.NotFound(c, orDefault(code, 10006), msg)
	default:
		response.Error(c, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// bindFailed answers a request whose body or query failed binding
func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "invalid parameters", err.Error())
}

func orDefault(code, fallback int) int {
	if code == 0 {
		return fallback
	}
	return code
}
