package model

import "strings"

// Roles
const (
	RoleSuperAdmin       = "SuperAdmin"
	RoleServiceUnitAdmin = "ServiceUnitAdmin"
	RolePastor           = "Pastor"
	RoleMember           = "Member"
)

// Roles lists every valid role
var Roles = []string{RoleSuperAdmin, RoleServiceUnitAdmin, RolePastor, RoleMember}

// IsValidRole reports whether role is one of Roles
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User maps to users
type User struct {
	UserID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	FirstName          string  `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName           string  `gorm:"type:varchar(100);not null;default:''"          json:"last_name"`
	Email              string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PhoneNumber        string  `gorm:"type:varchar(20);not null;default:''"           json:"phone_number"`
	PasswordHash       string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role               string  `gorm:"type:varchar(30);not null;default:'Member'"     json:"role"`
	ServiceUnitID      *string `gorm:"type:uuid"                                      json:"service_unit_id,omitempty"`
	IsActive           bool    `gorm:"not null"                                       json:"is_active"`
	MustChangePassword bool    `gorm:"not null;default:false"                         json:"must_change_password"`
	VersionedModel

	ServiceUnit *ServiceUnit `gorm:"foreignKey:ServiceUnitID;references:ServiceUnitID" json:"service_unit,omitempty"`
}

// TableName table name
func (User) TableName() string { return "users" }

// FullName first and last name joined
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
