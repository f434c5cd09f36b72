package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	appRates "github.com/pledgehub/backend/internal/application/rates"
	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/infrastructure/rates"
)

// RateSource is a rate provider whose cache can be invalidated
type RateSource interface {
	currency.Provider
	Invalidate(ctx context.Context)
}

// RatesHandler exposes the current exchange-rate table and conversions
type RatesHandler struct {
	BaseHandler
	source  RateSource
	service *appRates.Service
}

// NewRatesHandler creates a new RatesHandler
func NewRatesHandler(source RateSource, service *appRates.Service) *RatesHandler {
	return &RatesHandler{source: source, service: service}
}

// RegisterRoutes registers rate routes
func (h *RatesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/rates")
	{
		group.GET("", h.Current)
		group.GET("/current", h.Current)
		group.POST("/refresh", h.Refresh)
		group.POST("/convert", h.Convert)
	}
}

// RateTableResponse represents a rate table in API responses. Rates are
// local units per USD as decimal strings.
type RateTableResponse struct {
	Source   string            `json:"source"`
	AsOf     time.Time         `json:"as_of"`
	Degraded bool              `json:"degraded"`
	Rates    map[string]string `json:"rates"`
}

func toRateTableResponse(table *appRates.TableResponse) RateTableResponse {
	return RateTableResponse{
		Source:   table.Source,
		AsOf:     table.AsOf,
		Degraded: table.Source == rates.StaticSource,
		Rates:    table.Rates,
	}
}

// Current returns the rate table currently in use
func (h *RatesHandler) Current(c *gin.Context) {
	table, err := h.service.CurrentTable(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRateTableResponse(table))
}

// Refresh drops the cached table and fetches a fresh one
func (h *RatesHandler) Refresh(c *gin.Context) {
	h.source.Invalidate(c.Request.Context())

	table, err := h.service.CurrentTable(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRateTableResponse(table))
}

// Convert converts an amount between two supported currencies
func (h *RatesHandler) Convert(c *gin.Context) {
	var req appRates.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	resp, err := h.service.Convert(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
