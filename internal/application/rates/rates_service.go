package rates

import (
	"context"
	"time"

	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service exposes the live rate table and ad-hoc conversions
type Service struct {
	provider currency.Provider
	logger   *zap.Logger
}

// NewService creates a new rates Service
func NewService(provider currency.Provider, logger *zap.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// TableResponse represents the current rate table in API responses.
// Rates are local-currency-per-USD decimal strings.
type TableResponse struct {
	Source string            `json:"source"`
	AsOf   time.Time         `json:"as_of"`
	Rates  map[string]string `json:"rates"`
}

// ConvertRequest is the payload for an ad-hoc conversion
type ConvertRequest struct {
	Amount string `json:"amount" form:"amount" binding:"required"`
	From   string `json:"from" form:"from" binding:"required,currency"`
	To     string `json:"to" form:"to" binding:"required,currency"`
}

// ConvertResponse is the result of an ad-hoc conversion. Degraded
// lists currencies whose rate was missing and defaulted to 1.
type ConvertResponse struct {
	Amount   string   `json:"amount"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Degraded []string `json:"degraded,omitempty"`
}

// CurrentTable returns the current rate table
func (s *Service) CurrentTable(ctx context.Context) (*TableResponse, error) {
	table, err := s.provider.Current(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for c, r := range table.Rates() {
		out[c.String()] = r.String()
	}
	return &TableResponse{
		Source: table.Source(),
		AsOf:   table.AsOf(),
		Rates:  out,
	}, nil
}

// Convert converts an amount between two supported currencies
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be a decimal number")
	}

	table, err := s.provider.Current(ctx)
	if err != nil {
		s.logger.Warn("rate table unavailable for conversion", zap.Error(err))
		table = nil
	}

	conv, err := currency.ConvertChecked(amount, valueobject.Currency(req.From), valueobject.Currency(req.To), table)
	if err != nil {
		return nil, err
	}

	resp := &ConvertResponse{
		Amount: conv.Amount.Round(2).StringFixed(2),
		From:   req.From,
		To:     req.To,
	}
	for _, c := range conv.Degraded {
		resp.Degraded = append(resp.Degraded, c.String())
	}
	return resp, nil
}
