package handler

import (
	"github.com/gin-gonic/gin"
	planapp "github.com/pledgehub/backend/internal/application/plan"
)

// PlanHandler handles payment-plan API endpoints
type PlanHandler struct {
	BaseHandler
	plans *planapp.Service
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(plans *planapp.Service) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// RegisterRoutes registers payment-plan routes
func (h *PlanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	plans := rg.Group("/plans")
	{
		plans.POST("", h.Create)
		plans.GET("", h.List)
		plans.GET("/:id", h.GetByID)
		plans.PUT("/:id", h.Update)
		plans.DELETE("/:id", h.Delete)
		plans.GET("/:id/installments", h.ListInstallments)
		plans.PUT("/:id/installments/:sequence", h.EditInstallment)
		plans.POST("/:id/installments/:sequence/pay", h.PayInstallment)
		plans.POST("/:id/regenerate", h.Regenerate)
		plans.POST("/:id/pause", h.Pause)
		plans.POST("/:id/resume", h.Resume)
		plans.POST("/:id/cancel", h.Cancel)
	}
}

// Create creates a payment plan with a fixed or custom schedule
func (h *PlanHandler) Create(c *gin.Context) {
	var req planapp.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.plans.CreatePlan(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, p)
}

// GetByID retrieves a plan with its installment schedule
func (h *PlanHandler) GetByID(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	p, err := h.plans.GetPlan(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// List returns a paginated plan list
func (h *PlanHandler) List(c *gin.Context) {
	var filter planapp.ListFilter
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

	plans, total, err := h.plans.ListPlans(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, plans, total, filter.Page, filter.PageSize)
}

// Update reconfigures a fixed plan's unpaid schedule
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req planapp.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.plans.UpdatePlan(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// ListInstallments returns a plan's installment lines
func (h *PlanHandler) ListInstallments(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	installments, err := h.plans.ListInstallments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, installments)
}

// EditInstallment edits one unpaid installment line. Editing switches
// the plan to custom distribution.
func (h *PlanHandler) EditInstallment(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}
	seq, ok := h.parseSequenceParam(c)
	if !ok {
		return
	}

	var req planapp.EditInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.plans.EditInstallment(c.Request.Context(), id, seq, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// PayInstallment records a payment for one installment
func (h *PlanHandler) PayInstallment(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}
	seq, ok := h.parseSequenceParam(c)
	if !ok {
		return
	}

	var req planapp.PayInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.plans.PayInstallment(c.Request.Context(), id, seq, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Regenerate rebuilds the unpaid schedule, returning the plan to fixed
// distribution
func (h *PlanHandler) Regenerate(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req planapp.RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.plans.RegenerateSchedule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Pause pauses an active plan
func (h *PlanHandler) Pause(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	p, err := h.plans.PausePlan(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Resume resumes a paused plan
func (h *PlanHandler) Resume(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	p, err := h.plans.ResumePlan(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Cancel cancels a plan
func (h *PlanHandler) Cancel(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	// Reason is optional; an empty body is a plain cancel
	var req planapp.CancelPlanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.HandleBindingError(c, err)
			return
		}
	}

	p, err := h.plans.CancelPlan(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Delete removes a plan with no paid installments
func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	if err := h.plans.DeletePlan(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
