package model

import (
	"time"

	"gorm.io/datatypes"
)

// UserEvent maps to analytics_user_events
type UserEvent struct {
	EventID      int64             `gorm:"primaryKey;autoIncrement"     json:"event_id"`
	UserID       *string           `gorm:"type:uuid"                    json:"user_id,omitempty"`
	EventType    string            `gorm:"type:varchar(50);not null"    json:"event_type"`
	Timestamp    time.Time         `gorm:"not null"                     json:"timestamp"`
	IPAddress    *string           `gorm:"type:varchar(45)"             json:"ip_address,omitempty"`
	UserAgent    *string           `gorm:"type:text"                    json:"user_agent,omitempty"`
	ResourceType *string           `gorm:"type:varchar(50)"             json:"resource_type,omitempty"`
	ResourceID   *string           `gorm:"type:varchar(64)"             json:"resource_id,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null"          json:"metadata"`
	Success      bool              `gorm:"not null"                     json:"success"`
	ErrorMessage *string           `gorm:"type:text"                    json:"error_message,omitempty"`
}

// TableName table name
func (UserEvent) TableName() string { return "analytics_user_events" }
