package dto

// ── Building DTOs ──

// CreateBuildingRequest create a building
type CreateBuildingRequest struct {
	Name        string `json:"name"        binding:"required,max=150"`
	Location    string `json:"location"    binding:"omitempty,max=255"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// UpdateBuildingRequest partial update
type UpdateBuildingRequest struct {
	Name        *string `json:"name"        binding:"omitempty,max=150"`
	Location    *string `json:"location"    binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=255"`
}

// BuildingListRequest building list query
type BuildingListRequest struct {
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// BuildingResponse building with derived room stats
type BuildingResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	Description    string  `json:"description"`
	TotalRooms     int64   `json:"total_rooms"`
	AllocatedRooms int64   `json:"allocated_rooms"`
	AvailableRooms int64   `json:"available_rooms"`
	TotalCapacity  int64   `json:"total_capacity"`
	OccupancyRate  float64 `json:"occupancy_rate"`
	CreatedAt      string  `json:"created_at"`
}

// BuildingBrief building summary
type BuildingBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ── Room DTOs ──

// CreateRoomRequest create a room. is_allocated is never accepted from clients.
type CreateRoomRequest struct {
	BuildingID  string `json:"building_id"  binding:"required,uuid"`
	RoomNumber  string `json:"room_number"  binding:"required,max=50"`
	Capacity    int    `json:"capacity"     binding:"required,min=1"`
	HasToilet   bool   `json:"has_toilet"`
	HasWashroom bool   `json:"has_washroom"`
}

// UpdateRoomRequest partial update
type UpdateRoomRequest struct {
	BuildingID  *string `json:"building_id"  binding:"omitempty,uuid"`
	RoomNumber  *string `json:"room_number"  binding:"omitempty,max=50"`
	Capacity    *int    `json:"capacity"     binding:"omitempty,min=1"`
	HasToilet   *bool   `json:"has_toilet"`
	HasWashroom *bool   `json:"has_washroom"`
}

// RoomListRequest room list query
type RoomListRequest struct {
	PaginationRequest
	BuildingID  string `form:"building_id"  binding:"omitempty,uuid"`
	Allocated   *bool  `form:"allocated"`
	MinCapacity int    `form:"min_capacity" binding:"omitempty,min=1"`
	Keyword     string `form:"keyword"      binding:"omitempty,max=50"`
}

// AvailableRoomsRequest availability query
type AvailableRoomsRequest struct {
	BuildingID string `form:"building_id" binding:"omitempty,uuid"`
}

// RoomResponse room
type RoomResponse struct {
	ID          string         `json:"id"`
	Building    *BuildingBrief `json:"building,omitempty"`
	RoomNumber  string         `json:"room_number"`
	Capacity    int            `json:"capacity"`
	HasToilet   bool           `json:"has_toilet"`
	HasWashroom bool           `json:"has_washroom"`
	IsAllocated bool           `json:"is_allocated"`
}
