package dto

// ── Allocation DTOs ──

// CreateAllocationRequest direct allocation by an admin.
// Dates use DateLayout; is_active defaults to true.
type CreateAllocationRequest struct {
	RoomID        string  `json:"room_id"         binding:"required,uuid"`
	Kind          string  `json:"allocation_type" binding:"required,oneof=ServiceUnit Pastor Member"`
	UserID        *string `json:"user_id"         binding:"omitempty,uuid"`
	ServiceUnitID *string `json:"service_unit_id" binding:"omitempty,uuid"`
	StartDate     *string `json:"start_date"      binding:"omitempty,datetime=2006-01-02"`
	EndDate       *string `json:"end_date"        binding:"omitempty,datetime=2006-01-02"`
	Notes         string  `json:"notes"           binding:"omitempty,max=2000"`
	IsActive      *bool   `json:"is_active"`
}

// AllocationListRequest allocation list query
type AllocationListRequest struct {
	PaginationRequest
	RoomID        string `form:"room_id"         binding:"omitempty,uuid"`
	BuildingID    string `form:"building_id"     binding:"omitempty,uuid"`
	UserID        string `form:"user_id"         binding:"omitempty,uuid"`
	ServiceUnitID string `form:"service_unit_id" binding:"omitempty,uuid"`
	Kind          string `form:"allocation_type" binding:"omitempty,oneof=ServiceUnit Pastor Member"`
	Active        *bool  `form:"is_active"`
}

// MyAllocationsRequest own allocation query; only active ones unless asked
type MyAllocationsRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// AllocationResponse allocation with its room and principal
type AllocationResponse struct {
	ID             int64             `json:"id"`
	Room           *RoomResponse     `json:"room,omitempty"`
	RoomID         string            `json:"room_id"`
	Kind           string            `json:"allocation_type"`
	User           *UserBrief        `json:"user,omitempty"`
	ServiceUnit    *ServiceUnitBrief `json:"service_unit,omitempty"`
	AllocatedBy    string            `json:"allocated_by"`
	AllocationDate string            `json:"allocation_date"`
	StartDate      *string           `json:"start_date,omitempty"`
	EndDate        *string           `json:"end_date,omitempty"`
	IsActive       bool              `json:"is_active"`
	Notes          string            `json:"notes"`
}

// ReconcileRoomsResponse outcome of a room flag reconciliation
type ReconcileRoomsResponse struct {
	Checked int `json:"checked"`
	Fixed   int `json:"fixed"`
}
