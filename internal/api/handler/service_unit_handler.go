package handler

import (
	"github.com/gin-gonic/gin"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/service"
	"accommodation-portal/pkg/response"
)

// ServiceUnitHandler service unit HTTP handler
type ServiceUnitHandler struct {
	svc service.ServiceUnitService
}

// NewServiceUnitHandler creates a ServiceUnitHandler
func NewServiceUnitHandler(svc service.ServiceUnitService) *ServiceUnitHandler {
	return &ServiceUnitHandler{svc: svc}
}

// Create
// POST /api/v1/service-units
func (h *ServiceUnitHandler) Create(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateServiceUnitRequest
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

// List
// GET /api/v1/service-units
func (h *ServiceUnitHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetByID
// GET /api/v1/service-units/:id
func (h *ServiceUnitHandler) GetByID(c *gin.Context) {
	result, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Update
// PUT /api/v1/service-units/:id
func (h *ServiceUnitHandler) Update(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.UpdateServiceUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.Update(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete
// DELETE /api/v1/service-units/:id
func (h *ServiceUnitHandler) Delete(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// ── Members ──

// ListMembers
// GET /api/v1/service-units/:id/members
func (h *ServiceUnitHandler) ListMembers(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.svc.ListMembers(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// AddMember
// POST /api/v1/service-units/:id/members
func (h *ServiceUnitHandler) AddMember(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.ServiceUnitMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	if err := h.svc.AddMember(c.Request.Context(), p, c.Param("id"), &req); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// RemoveMember
// DELETE /api/v1/service-units/:id/members/:user_id
func (h *ServiceUnitHandler) RemoveMember(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), p, c.Param("id"), c.Param("user_id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
