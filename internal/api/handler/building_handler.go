package handler

import (
	"github.com/gin-gonic/gin"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/service"
	"accommodation-portal/pkg/response"
)

// BuildingHandler buildings and rooms HTTP handler
type BuildingHandler struct {
	svc service.BuildingService
}

// NewBuildingHandler creates a BuildingHandler
func NewBuildingHandler(svc service.BuildingService) *BuildingHandler {
	return &BuildingHandler{svc: svc}
}

// ────────────────────── Buildings ──────────────────────

// CreateBuilding
// POST /api/v1/buildings
func (h *BuildingHandler) CreateBuilding(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateBuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.CreateBuilding(c.Request.Context(), p, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// ListBuildings
// GET /api/v1/buildings
func (h *BuildingHandler) ListBuildings(c *gin.Context) {
	var req dto.BuildingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.svc.ListBuildings(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetBuilding
// GET /api/v1/buildings/:id
func (h *BuildingHandler) GetBuilding(c *gin.Context) {
	result, err := h.svc.GetBuilding(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateBuilding
// PUT /api/v1/buildings/:id
func (h *BuildingHandler) UpdateBuilding(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.UpdateBuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.UpdateBuilding(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteBuilding
// DELETE /api/v1/buildings/:id
func (h *BuildingHandler) DeleteBuilding(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteBuilding(c.Request.Context(), p, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// ────────────────────── Rooms ──────────────────────

// CreateRoom
// POST /api/v1/rooms
func (h *BuildingHandler) CreateRoom(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.CreateRoom(c.Request.Context(), p, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// ListRooms
// GET /api/v1/rooms
func (h *BuildingHandler) ListRooms(c *gin.Context) {
	var req dto.RoomListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.svc.ListRooms(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRoom
// GET /api/v1/rooms/:id
func (h *BuildingHandler) GetRoom(c *gin.Context) {
	result, err := h.svc.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateRoom
// PUT /api/v1/rooms/:id
func (h *BuildingHandler) UpdateRoom(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.UpdateRoom(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteRoom
// DELETE /api/v1/rooms/:id
func (h *BuildingHandler) DeleteRoom(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteRoom(c.Request.Context(), p, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
