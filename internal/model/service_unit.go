package model

// ServiceUnit maps to service_units (choir, ushers, ...)
type ServiceUnit struct {
	ServiceUnitID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"service_unit_id"`
	Name          string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Description   string  `gorm:"type:varchar(255);not null;default:''"          json:"description"`
	AdminID       *string `gorm:"type:uuid"                                      json:"admin_id,omitempty"`
	SoftDeleteModel

	Admin *User `gorm:"foreignKey:AdminID;references:UserID" json:"admin,omitempty"`
}

// TableName table name
func (ServiceUnit) TableName() string { return "service_units" }
