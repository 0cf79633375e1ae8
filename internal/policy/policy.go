// Package policy holds the role predicates every mutation is checked against.
//
// All functions are pure: they read only their arguments and never fail.
package policy

import "accommodation-portal/internal/model"

// Principal the authenticated caller. ServiceUnitID is nil for users without a unit.
type Principal struct {
	UserID        string
	Role          string
	ServiceUnitID *string
}

// InServiceUnit reports whether the caller belongs to unitID
func (p Principal) InServiceUnit(unitID string) bool {
	return p.ServiceUnitID != nil && *p.ServiceUnitID == unitID
}

// IsSuperAdmin role check
func IsSuperAdmin(p Principal) bool {
	return p.Role == model.RoleSuperAdmin
}

// IsServiceUnitAdmin role check
func IsServiceUnitAdmin(p Principal) bool {
	return p.Role == model.RoleServiceUnitAdmin
}

// CanAllocateRooms SuperAdmin or ServiceUnitAdmin
func CanAllocateRooms(p Principal) bool {
	return IsSuperAdmin(p) || IsServiceUnitAdmin(p)
}

// CanModifyAllocation SuperAdmin, or a ServiceUnitAdmin who made the
// allocation or administers its service unit. unit may be nil when the
// allocation has none.
func CanModifyAllocation(p Principal, a *model.Allocation, unit *model.ServiceUnit) bool {
	if IsSuperAdmin(p) {
		return true
	}
	if !IsServiceUnitAdmin(p) || a == nil || p.UserID == "" {
		return false
	}
	if a.AllocatedBy == p.UserID {
		return true
	}
	return unit != nil && unit.AdminID != nil && *unit.AdminID == p.UserID
}

// CanReviewRequest SuperAdmin or ServiceUnitAdmin
func CanReviewRequest(p Principal) bool {
	return IsSuperAdmin(p) || IsServiceUnitAdmin(p)
}

// CanReviewRequestFrom CanReviewRequest narrowed to the requester: a
// ServiceUnitAdmin reviews their own requests and those of their unit's members.
func CanReviewRequestFrom(p Principal, requester *model.User) bool {
	if IsSuperAdmin(p) {
		return true
	}
	if !IsServiceUnitAdmin(p) || requester == nil || p.UserID == "" {
		return false
	}
	if requester.UserID == p.UserID {
		return true
	}
	return requester.ServiceUnitID != nil && p.InServiceUnit(*requester.ServiceUnitID)
}

// CanCancelRequest only the requester, no admin override
func CanCancelRequest(p Principal, r *model.AllocationRequest) bool {
	return r != nil && p.UserID != "" && r.RequestedBy == p.UserID
}

// CanEditRequest only the requester
func CanEditRequest(p Principal, r *model.AllocationRequest) bool {
	return CanCancelRequest(p, r)
}

// CanManageServiceUnit SuperAdmin or the unit's admin
func CanManageServiceUnit(p Principal, unit *model.ServiceUnit) bool {
	if IsSuperAdmin(p) {
		return true
	}
	return unit != nil && unit.AdminID != nil && p.UserID != "" && *unit.AdminID == p.UserID
}
