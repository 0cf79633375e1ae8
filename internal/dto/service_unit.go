package dto

// ── Service unit DTOs ──

// CreateServiceUnitRequest create a service unit
type CreateServiceUnitRequest struct {
	Name        string  `json:"name"        binding:"required,max=100"`
	Description string  `json:"description" binding:"omitempty,max=255"`
	AdminID     *string `json:"admin_id"    binding:"omitempty,uuid"`
}

// UpdateServiceUnitRequest partial update
type UpdateServiceUnitRequest struct {
	Name        *string `json:"name"        binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	AdminID     *string `json:"admin_id"    binding:"omitempty,uuid"`
}

// ServiceUnitMemberRequest add a user to a unit
type ServiceUnitMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// ServiceUnitDetailResponse unit with member and allocation counts
type ServiceUnitDetailResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Admin             *UserBrief `json:"admin,omitempty"`
	MemberCount       int64      `json:"member_count"`
	ActiveAllocations int64      `json:"active_allocations"`
	CreatedAt         string     `json:"created_at"`
	UpdatedAt         string     `json:"updated_at"`
}
