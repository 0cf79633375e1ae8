package dto

// ── Allocation request DTOs ──

// SubmitAllocationRequest requester asks for a room
type SubmitAllocationRequest struct {
	PreferredRoomID     *string `json:"preferred_room_id"     binding:"omitempty,uuid"`
	PreferredBuildingID *string `json:"preferred_building_id" binding:"omitempty,uuid"`
	Reason              string  `json:"request_reason"        binding:"required,max=2000"`
	RequestedStartDate  *string `json:"requested_start_date"  binding:"omitempty,datetime=2006-01-02"`
	RequestedEndDate    *string `json:"requested_end_date"    binding:"omitempty,datetime=2006-01-02"`
}

// UpdateAllocationRequestRequest requester edits a pending request; nil fields are left alone
type UpdateAllocationRequestRequest struct {
	PreferredRoomID     *string `json:"preferred_room_id"     binding:"omitempty,uuid"`
	PreferredBuildingID *string `json:"preferred_building_id" binding:"omitempty,uuid"`
	Reason              *string `json:"request_reason"        binding:"omitempty,min=1,max=2000"`
	RequestedStartDate  *string `json:"requested_start_date"  binding:"omitempty,datetime=2006-01-02"`
	RequestedEndDate    *string `json:"requested_end_date"    binding:"omitempty,datetime=2006-01-02"`
}

// ApproveAllocationRequest reviewer approval. A start or end date replaces
// the requested range as a pair.
type ApproveAllocationRequest struct {
	RoomID      *string `json:"room_id"      binding:"omitempty,uuid"`
	StartDate   *string `json:"start_date"   binding:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date"     binding:"omitempty,datetime=2006-01-02"`
	ReviewNotes string  `json:"review_notes" binding:"omitempty,max=2000"`
}

// RejectAllocationRequest reviewer rejection
type RejectAllocationRequest struct {
	ReviewNotes string `json:"review_notes" binding:"omitempty,max=2000"`
}

// AllocationRequestListRequest request list query
type AllocationRequestListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=Pending Approved Rejected Cancelled"`
}

// AllocationRequestResponse request
type AllocationRequestResponse struct {
	ID                  int64          `json:"id"`
	Requester           *UserBrief     `json:"requester,omitempty"`
	RequestedBy         string         `json:"requested_by"`
	PreferredRoom       *RoomResponse  `json:"preferred_room,omitempty"`
	PreferredBuilding   *BuildingBrief `json:"preferred_building,omitempty"`
	Reason              string         `json:"request_reason"`
	RequestedStartDate  *string        `json:"requested_start_date,omitempty"`
	RequestedEndDate    *string        `json:"requested_end_date,omitempty"`
	Status              string         `json:"status"`
	ReviewedBy          *string        `json:"reviewed_by,omitempty"`
	ReviewNotes         string         `json:"review_notes"`
	ReviewedAt          *string        `json:"reviewed_at,omitempty"`
	CreatedAllocationID *int64         `json:"created_allocation_id,omitempty"`
	CreatedAt           string         `json:"created_at"`
}
