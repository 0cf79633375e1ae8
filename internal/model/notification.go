package model

// Notification types
const (
	NotificationRequestApproved = "request_approved"
	NotificationRequestRejected = "request_rejected"
)

// Notification maps to notifications
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string  `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string  `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string `gorm:"type:varchar(30)"                               json:"related_type,omitempty"` // allocation_request | allocation
	RelatedID      *string `gorm:"type:varchar(64)"                               json:"related_id,omitempty"`
	SoftDeleteModel
}

// TableName table name
func (Notification) TableName() string { return "notifications" }
