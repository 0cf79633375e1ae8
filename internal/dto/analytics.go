package dto

// ── Analytics and notification DTOs ──

// UserEventListRequest analytics listing query; from/to use DateLayout
type UserEventListRequest struct {
	PaginationRequest
	UserID       string `form:"user_id"       binding:"omitempty,uuid"`
	EventType    string `form:"event_type"    binding:"omitempty,max=50"`
	ResourceType string `form:"resource_type" binding:"omitempty,max=50"`
	ResourceID   string `form:"resource_id"   binding:"omitempty,max=64"`
	From         string `form:"from"          binding:"omitempty,datetime=2006-01-02"`
	To           string `form:"to"            binding:"omitempty,datetime=2006-01-02"`
}

// UserEventResponse analytics event
type UserEventResponse struct {
	ID           int64          `json:"id"`
	UserID       *string        `json:"user_id,omitempty"`
	EventType    string         `json:"event_type"`
	Timestamp    string         `json:"timestamp"`
	IPAddress    *string        `json:"ip_address,omitempty"`
	ResourceType *string        `json:"resource_type,omitempty"`
	ResourceID   *string        `json:"resource_id,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	Success      bool           `json:"success"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

// NotificationListRequest notification listing query
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse notification
type NotificationResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	IsRead      bool    `json:"is_read"`
	RelatedType *string `json:"related_type,omitempty"`
	RelatedID   *string `json:"related_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// MarkAllReadResponse number of notifications marked read
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
