package handler

import (
	"github.com/gin-gonic/gin"
	donorapp "github.com/pledgehub/backend/internal/application/donor"
)

// PledgeHandler handles pledge-related API endpoints
type PledgeHandler struct {
	BaseHandler
	pledges *donorapp.PledgeService
}

// NewPledgeHandler creates a new PledgeHandler
func NewPledgeHandler(pledges *donorapp.PledgeService) *PledgeHandler {
	return &PledgeHandler{pledges: pledges}
}

// RegisterRoutes registers pledge routes
func (h *PledgeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	pledges := rg.Group("/pledges")
	{
		pledges.POST("", h.Create)
		pledges.GET("", h.List)
		pledges.GET("/:id", h.GetByID)
		pledges.PUT("/:id", h.Update)
		pledges.DELETE("/:id", h.Delete)
		pledges.POST("/:id/cancel", h.Cancel)
	}
	rg.GET("/contacts/:id/pledges", h.ListByContact)
}

// Create creates a new pledge
func (h *PledgeHandler) Create(c *gin.Context) {
	var req donorapp.CreatePledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	pledge, err := h.pledges.CreatePledge(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, pledge)
}

// GetByID retrieves a pledge by ID
func (h *PledgeHandler) GetByID(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	pledge, err := h.pledges.GetPledge(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pledge)
}

// List returns a paginated pledge list. Supports filtering by contact,
// status, campaign, date range and open balance.
func (h *PledgeHandler) List(c *gin.Context) {
	var filter donorapp.PledgeListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindingError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	pledges, total, err := h.pledges.ListPledges(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, pledges, total, filter.Page, filter.PageSize)
}

// Update updates pledge metadata. Amounts are immutable after creation.
func (h *PledgeHandler) Update(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req donorapp.UpdatePledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	pledge, err := h.pledges.UpdatePledge(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pledge)
}

// Cancel cancels a pledge
func (h *PledgeHandler) Cancel(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	// Reason is optional; an empty body is a plain cancel
	var req donorapp.CancelPledgeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.HandleBindingError(c, err)
			return
		}
	}

	pledge, err := h.pledges.CancelPledge(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pledge)
}

// Delete removes a pledge. Pledges with payments or plans must be
// cancelled instead.
func (h *PledgeHandler) Delete(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	if err := h.pledges.DeletePledge(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListByContact returns the pledges of one contact
func (h *PledgeHandler) ListByContact(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var filter donorapp.PledgeListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindingError(c, err)
		return
	}
	filter.ContactID = &id
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	pledges, total, err := h.pledges.ListPledges(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, pledges, total, filter.Page, filter.PageSize)
}
