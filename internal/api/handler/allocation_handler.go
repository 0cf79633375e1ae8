package handler

import (
	"github.com/gin-gonic/gin"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/service"
	"accommodation-portal/pkg/response"
)

// AllocationHandler allocation ledger HTTP handler
type AllocationHandler struct {
	svc service.AllocationService
}

// NewAllocationHandler creates an AllocationHandler
func NewAllocationHandler(svc service.AllocationService) *AllocationHandler {
	return &AllocationHandler{svc: svc}
}

// Create allocates a room directly, superseding per configuration
// POST /api/v1/allocations
func (h *AllocationHandler) Create(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.Create(c.Request.Context(), p, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// List scoped by the caller's role
// GET /api/v1/allocations
func (h *AllocationHandler) List(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.AllocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.svc.List(c.Request.Context(), p, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListMine
// GET /api/v1/allocations/mine?include_inactive=true
func (h *AllocationHandler) ListMine(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.MyAllocationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.svc.ListMine(c.Request.Context(), p, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// AvailableRooms rooms without an active allocation
// GET /api/v1/allocations/available-rooms
func (h *AllocationHandler) AvailableRooms(c *gin.Context) {
	var req dto.AvailableRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.svc.AvailableRooms(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetByID
// GET /api/v1/allocations/:id
func (h *AllocationHandler) GetByID(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Deactivate idempotent
// POST /api/v1/allocations/:id/deactivate
func (h *AllocationHandler) Deactivate(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Deactivate(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Reactivate refused while the room holds another active allocation
// POST /api/v1/allocations/:id/activate
func (h *AllocationHandler) Reactivate(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Reactivate(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ReconcileRooms recomputes every room's allocation flag
// POST /api/v1/allocations/reconcile
func (h *AllocationHandler) ReconcileRooms(c *gin.Context) {
	result, err := h.svc.ReconcileRooms(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}
