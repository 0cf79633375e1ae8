package model

import (
	"strconv"
	"time"
)

// Request statuses. Pending is the only non-terminal status.
const (
	RequestStatusPending   = "Pending"
	RequestStatusApproved  = "Approved"
	RequestStatusRejected  = "Rejected"
	RequestStatusCancelled = "Cancelled"
)

// AllocationRequest maps to allocation_requests
type AllocationRequest struct {
	RequestID           int64      `gorm:"primaryKey;autoIncrement"                    json:"request_id"`
	RequestedBy         string     `gorm:"type:uuid;not null"                          json:"requested_by"`
	PreferredRoomID     *string    `gorm:"type:uuid"                                   json:"preferred_room_id,omitempty"`
	PreferredBuildingID *string    `gorm:"type:uuid"                                   json:"preferred_building_id,omitempty"`
	Reason              string     `gorm:"column:request_reason;type:text;not null"    json:"request_reason"`
	RequestedStartDate  *time.Time `gorm:"type:date"                                   json:"requested_start_date,omitempty"`
	RequestedEndDate    *time.Time `gorm:"type:date"                                   json:"requested_end_date,omitempty"`
	Status              string     `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	ReviewedBy          *string    `gorm:"type:uuid"                                   json:"reviewed_by,omitempty"`
	ReviewNotes         string     `gorm:"type:text;not null;default:''"               json:"review_notes"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
	CreatedAllocationID *int64     `json:"created_allocation_id,omitempty"`
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`

	Requester         *User       `gorm:"foreignKey:RequestedBy;references:UserID"             json:"requester,omitempty"`
	PreferredRoom     *Room       `gorm:"foreignKey:PreferredRoomID;references:RoomID"         json:"preferred_room,omitempty"`
	PreferredBuilding *Building   `gorm:"foreignKey:PreferredBuildingID;references:BuildingID" json:"preferred_building,omitempty"`
	Reviewer          *User       `gorm:"foreignKey:ReviewedBy;references:UserID"              json:"reviewer,omitempty"`
	CreatedAllocation *Allocation `gorm:"foreignKey:CreatedAllocationID;references:AllocationID" json:"created_allocation,omitempty"`
}

// TableName table name
func (AllocationRequest) TableName() string { return "allocation_requests" }

// IsPending reports whether the request can still change
func (r *AllocationRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IDString the sequence id as text, used for event subjects
func (r *AllocationRequest) IDString() string {
	return strconv.FormatInt(r.RequestID, 10)
}
