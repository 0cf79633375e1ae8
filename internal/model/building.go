package model

// Building maps to buildings
type Building struct {
	BuildingID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"building_id"`
	Name        string `gorm:"type:varchar(150);not null"                     json:"name"`
	Location    string `gorm:"type:varchar(255);not null;default:''"          json:"location"`
	Description string `gorm:"type:varchar(255);not null;default:''"          json:"description"`
	SoftDeleteModel
}

// TableName table name
func (Building) TableName() string { return "buildings" }

// BuildingStats room aggregates for one building
type BuildingStats struct {
	BuildingID     string
	TotalRooms     int64
	AllocatedRooms int64
	TotalCapacity  int64
}

// AvailableRooms rooms without an active allocation
func (s BuildingStats) AvailableRooms() int64 {
	return s.TotalRooms - s.AllocatedRooms
}

// OccupancyRate allocated share in percent, one decimal
func (s BuildingStats) OccupancyRate() float64 {
	if s.TotalRooms == 0 {
		return 0
	}
	rate := float64(s.AllocatedRooms) * 100 / float64(s.TotalRooms)
	return float64(int64(rate*10+0.5)) / 10
}

// Room maps to rooms. IsAllocated is owned by the allocation ledger.
type Room struct {
	RoomID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	BuildingID  string `gorm:"type:uuid;not null"                             json:"building_id"`
	RoomNumber  string `gorm:"type:varchar(50);not null"                      json:"room_number"`
	Capacity    int    `gorm:"not null"                                       json:"capacity"`
	HasToilet   bool   `gorm:"not null"                                       json:"has_toilet"`
	HasWashroom bool   `gorm:"not null"                                       json:"has_washroom"`
	IsAllocated bool   `gorm:"not null"                                       json:"is_allocated"`
	SoftDeleteModel

	Building *Building `gorm:"foreignKey:BuildingID;references:BuildingID" json:"building,omitempty"`
}

// TableName table name
func (Room) TableName() string { return "rooms" }
