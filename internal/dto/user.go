package dto

// ── User DTOs ──

// CreateUserRequest admin creates a user with a temporary password
type CreateUserRequest struct {
	FirstName     string  `json:"first_name"      binding:"required,max=100"`
	LastName      string  `json:"last_name"       binding:"omitempty,max=100"`
	Email         string  `json:"email"           binding:"required,email"`
	PhoneNumber   string  `json:"phone_number"    binding:"omitempty,max=20"`
	Role          string  `json:"role"            binding:"required,oneof=SuperAdmin ServiceUnitAdmin Pastor Member"`
	ServiceUnitID *string `json:"service_unit_id" binding:"omitempty,uuid"`
}

// CreateUserResponse created user and the one-time password
type CreateUserResponse struct {
	User         *UserResponse `json:"user"`
	TempPassword string        `json:"temp_password"`
}

// UserListRequest user list query
type UserListRequest struct {
	PaginationRequest
	ServiceUnitID string `form:"service_unit_id" binding:"omitempty,uuid"`
	Role          string `form:"role"            binding:"omitempty,oneof=SuperAdmin ServiceUnitAdmin Pastor Member"`
	Keyword       string `form:"keyword"         binding:"omitempty,max=50"`
}

// UpdateUserRequest partial update; nil fields are left alone
type UpdateUserRequest struct {
	FirstName     *string `json:"first_name"      binding:"omitempty,max=100"`
	LastName      *string `json:"last_name"       binding:"omitempty,max=100"`
	Email         *string `json:"email"           binding:"omitempty,email"`
	PhoneNumber   *string `json:"phone_number"    binding:"omitempty,max=20"`
	ServiceUnitID *string `json:"service_unit_id" binding:"omitempty,uuid"`
}

// AssignRoleRequest role change
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=SuperAdmin ServiceUnitAdmin Pastor Member"`
}

// ResetPasswordResponse new temporary password
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// ImportUserResponse bulk import outcome
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
	Created []ImportedUser    `json:"created,omitempty"`
}

// ImportedUser created row and its one-time password
type ImportedUser struct {
	Row          int    `json:"row"`
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
}

// ImportUserError per-row failure
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
