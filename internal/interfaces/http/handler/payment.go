package handler

import (
	"github.com/gin-gonic/gin"
	paymentapp "github.com/pledgehub/backend/internal/application/payment"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	payments *paymentapp.Service
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *paymentapp.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RegisterRoutes registers payment routes. Direct and split payments
// are created through separate endpoints because their payloads differ.
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.CreateDirect)
		payments.POST("/split", h.CreateSplit)
		payments.GET("", h.List)
		payments.GET("/:id", h.GetByID)
		payments.PUT("/:id", h.UpdateDirect)
		payments.PUT("/:id/split", h.UpdateSplit)
		payments.DELETE("/:id", h.Delete)
		payments.POST("/:id/complete", h.Complete)
		payments.POST("/:id/cancel", h.Cancel)
		payments.POST("/:id/refund", h.Refund)
	}
	rg.GET("/pledges/:id/payments", h.ListByPledge)
}

// CreateDirect records a payment against a single pledge
func (h *PaymentHandler) CreateDirect(c *gin.Context) {
	var req paymentapp.CreateDirectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.payments.CreateDirectPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, p)
}

// CreateSplit records a payment spread across several pledges
func (h *PaymentHandler) CreateSplit(c *gin.Context) {
	var req paymentapp.CreateSplitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.payments.CreateSplitPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, p)
}

// GetByID retrieves a payment by ID
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	p, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// List returns a paginated payment list
func (h *PaymentHandler) List(c *gin.Context) {
	var filter paymentapp.ListFilter
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

	payments, total, err := h.payments.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, filter.Page, filter.PageSize)
}

// UpdateDirect updates a direct payment. Split payments are rejected here.
func (h *PaymentHandler) UpdateDirect(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req paymentapp.UpdateDirectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.payments.UpdateDirectPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// UpdateSplit replaces a split payment's amount and allocations
func (h *PaymentHandler) UpdateSplit(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req paymentapp.UpdateSplitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	p, err := h.payments.UpdateSplitPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Complete marks a pending payment as collected and applies it
func (h *PaymentHandler) Complete(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	p, err := h.payments.CompletePayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Cancel cancels a payment, reversing its pledge effects if applied
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	p, err := h.payments.CancelPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Refund refunds a completed payment
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	p, err := h.payments.RefundPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, p)
}

// Delete removes a payment that never touched a pledge
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	if err := h.payments.DeletePayment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListByPledge returns the payments applied to one pledge, including
// split payments allocating to it
func (h *PaymentHandler) ListByPledge(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var filter paymentapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindingError(c, err)
		return
	}
	filter.PledgeID = &id
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	payments, total, err := h.payments.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, filter.Page, filter.PageSize)
}
