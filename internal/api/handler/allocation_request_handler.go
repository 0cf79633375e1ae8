package handler

import (
	"github.com/gin-gonic/gin"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/service"
	"accommodation-portal/pkg/response"
)

// AllocationRequestHandler request workflow HTTP handler
type AllocationRequestHandler struct {
	svc service.AllocationRequestService
}

// NewAllocationRequestHandler creates an AllocationRequestHandler
func NewAllocationRequestHandler(svc service.AllocationRequestService) *AllocationRequestHandler {
	return &AllocationRequestHandler{svc: svc}
}

// Submit
// POST /api/v1/allocation-requests
func (h *AllocationRequestHandler) Submit(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.SubmitAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), p, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// List
// GET /api/v1/allocation-requests
func (h *AllocationRequestHandler) List(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.AllocationRequestListRequest
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

// ListPending review queue
// GET /api/v1/allocation-requests/pending
func (h *AllocationRequestHandler) ListPending(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.svc.ListPending(c.Request.Context(), p, &page)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ListMine
// GET /api/v1/allocation-requests/mine
func (h *AllocationRequestHandler) ListMine(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.svc.ListMine(c.Request.Context(), p)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetByID
// GET /api/v1/allocation-requests/:id
func (h *AllocationRequestHandler) GetByID(c *gin.Context) {
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

// Update requester edits a pending request
// PUT /api/v1/allocation-requests/:id
func (h *AllocationRequestHandler) Update(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAllocationRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.svc.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ────────────────────── Review ──────────────────────

// Approve creates the allocation and closes the request in one transaction
// POST /api/v1/allocation-requests/:id/approve
func (h *AllocationRequestHandler) Approve(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ApproveAllocationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	result, err := h.svc.Approve(c.Request.Context(), p, id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Reject
// POST /api/v1/allocation-requests/:id/reject
func (h *AllocationRequestHandler) Reject(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RejectAllocationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	result, err := h.svc.Reject(c.Request.Context(), p, id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Cancel requester withdraws a pending request
// POST /api/v1/allocation-requests/:id/cancel
func (h *AllocationRequestHandler) Cancel(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}
