package dto

// Date and timestamp layouts used on the wire
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05Z07:00"
)

// ── Auth responses ──

// TokenResponse token pair
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // access token lifetime, seconds
	User         UserResponse `json:"user"`
}

// ── User responses ──

// UserResponse user without secrets
type UserResponse struct {
	ID                 string            `json:"id"`
	FirstName          string            `json:"first_name"`
	LastName           string            `json:"last_name"`
	FullName           string            `json:"full_name"`
	Email              string            `json:"email"`
	PhoneNumber        string            `json:"phone_number"`
	Role               string            `json:"role"`
	ServiceUnit        *ServiceUnitBrief `json:"service_unit,omitempty"`
	IsActive           bool              `json:"is_active"`
	MustChangePassword bool              `json:"must_change_password"`
	CreatedAt          string            `json:"created_at"`
}

// UserBrief user summary embedded in other responses
type UserBrief struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ServiceUnitBrief service unit summary
type ServiceUnitBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ── Pagination ──

// PaginationRequest common paging parameters
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage page with default
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize page size with default
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset row offset
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
