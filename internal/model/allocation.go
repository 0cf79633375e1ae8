package model

import (
	"strconv"
	"time"
)

// Allocation kinds
const (
	AllocationKindServiceUnit = "ServiceUnit"
	AllocationKindPastor      = "Pastor"
	AllocationKindMember      = "Member"
)

// IsValidAllocationKind reports whether kind is a known allocation kind
func IsValidAllocationKind(kind string) bool {
	switch kind {
	case AllocationKindServiceUnit, AllocationKindPastor, AllocationKindMember:
		return true
	}
	return false
}

// Allocation maps to room_allocations. Rows are deactivated, never deleted.
type Allocation struct {
	AllocationID   int64      `gorm:"primaryKey;autoIncrement"          json:"allocation_id"`
	RoomID         string     `gorm:"type:uuid;not null"                json:"room_id"`
	UserID         *string    `gorm:"type:uuid"                         json:"user_id,omitempty"`
	ServiceUnitID  *string    `gorm:"type:uuid"                         json:"service_unit_id,omitempty"`
	AllocatedBy    string     `gorm:"type:uuid;not null"                json:"allocated_by"`
	Kind           string     `gorm:"column:allocation_type;not null"   json:"allocation_type"`
	AllocationDate time.Time  `gorm:"autoCreateTime"                    json:"allocation_date"`
	Notes          string     `gorm:"type:text;not null;default:''"     json:"notes"`
	StartDate      *time.Time `gorm:"type:date"                         json:"start_date,omitempty"`
	EndDate        *time.Time `gorm:"type:date"                         json:"end_date,omitempty"`
	IsActive       bool       `gorm:"not null"                          json:"is_active"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"                    json:"updated_at"`

	Room        *Room        `gorm:"foreignKey:RoomID;references:RoomID"               json:"room,omitempty"`
	User        *User        `gorm:"foreignKey:UserID;references:UserID"               json:"user,omitempty"`
	ServiceUnit *ServiceUnit `gorm:"foreignKey:ServiceUnitID;references:ServiceUnitID" json:"service_unit,omitempty"`
	Allocator   *User        `gorm:"foreignKey:AllocatedBy;references:UserID"          json:"allocator,omitempty"`
}

// TableName table name
func (Allocation) TableName() string { return "room_allocations" }

// IDString the sequence id as text, used for event subjects
func (a *Allocation) IDString() string {
	return strconv.FormatInt(a.AllocationID, 10)
}
