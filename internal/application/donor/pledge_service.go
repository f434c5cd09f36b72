package donor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/payment"
	"github.com/pledgehub/backend/internal/domain/plan"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PledgeService provides application-level pledge operations
type PledgeService struct {
	pledgeRepo  donor.PledgeRepository
	contactRepo donor.ContactRepository
	paymentRepo payment.Repository
	planRepo    plan.Repository
	rates       currency.Provider
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewPledgeService creates a new PledgeService. The publisher may be nil.
func NewPledgeService(
	pledgeRepo donor.PledgeRepository,
	contactRepo donor.ContactRepository,
	paymentRepo payment.Repository,
	planRepo plan.Repository,
	rates currency.Provider,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *PledgeService {
	return &PledgeService{
		pledgeRepo:  pledgeRepo,
		contactRepo: contactRepo,
		paymentRepo: paymentRepo,
		planRepo:    planRepo,
		rates:       rates,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *PledgeService) publishEvents(ctx context.Context, pledge *donor.Pledge) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, pledge.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish pledge events", zap.Error(err))
	}
	pledge.ClearDomainEvents()
}

// CreatePledgeRequest is the payload for creating a pledge
type CreatePledgeRequest struct {
	ContactID uuid.UUID `json:"contact_id" binding:"required"`
	Amount    string    `json:"amount" binding:"required"`
	Currency  string    `json:"currency" binding:"required,currency"`
	// ExchangeRate is local units per USD. When empty the current rate
	// table supplies it.
	ExchangeRate string    `json:"exchange_rate" binding:"omitempty"`
	PledgeDate   time.Time `json:"pledge_date" binding:"required"`
	Campaign     string    `json:"campaign" binding:"omitempty,max=200"`
	Notes        string    `json:"notes" binding:"omitempty,max=2000"`
}

// UpdatePledgeRequest is the payload for updating pledge metadata
type UpdatePledgeRequest struct {
	Campaign string `json:"campaign" binding:"omitempty,max=200"`
	Notes    string `json:"notes" binding:"omitempty,max=2000"`
}

// CancelPledgeRequest is the payload for cancelling a pledge
type CancelPledgeRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// PledgeListFilter defines filtering options for pledge list queries
type PledgeListFilter struct {
	Search    string     `form:"search"`
	ContactID *uuid.UUID `form:"contact_id"`
	Status    string     `form:"status"`
	Campaign  string     `form:"campaign"`
	FromDate  *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"to_date" time_format:"2006-01-02"`
	OpenOnly  bool       `form:"open_only"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PledgeResponse represents a pledge in API responses. Monetary fields
// are fixed-precision decimal strings, never binary floats.
type PledgeResponse struct {
	ID                uuid.UUID  `json:"id"`
	ContactID         uuid.UUID  `json:"contact_id"`
	ContactName       string     `json:"contact_name"`
	OriginalAmount    string     `json:"original_amount"`
	Currency          string     `json:"currency"`
	ExchangeRate      string     `json:"exchange_rate"`
	OriginalAmountUSD string     `json:"original_amount_usd"`
	TotalPaid         string     `json:"total_paid"`
	TotalPaidUSD      string     `json:"total_paid_usd"`
	Balance           string     `json:"balance"`
	BalanceUSD        string     `json:"balance_usd"`
	PledgeDate        time.Time  `json:"pledge_date"`
	Status            string     `json:"status"`
	Campaign          string     `json:"campaign,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CancelReason      string     `json:"cancel_reason,omitempty"`
	RateDegraded      bool       `json:"rate_degraded,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int        `json:"version"`
}

func toPledgeResponse(p *donor.Pledge, rateDegraded bool) *PledgeResponse {
	return &PledgeResponse{
		ID:                p.ID,
		ContactID:         p.ContactID,
		ContactName:       p.ContactName,
		OriginalAmount:    p.OriginalAmount.StringFixed(2),
		Currency:          p.Currency.String(),
		ExchangeRate:      p.ExchangeRate.String(),
		OriginalAmountUSD: p.OriginalAmountUSD.StringFixed(2),
		TotalPaid:         p.TotalPaid.StringFixed(2),
		TotalPaidUSD:      p.TotalPaidUSD.StringFixed(2),
		Balance:           p.Balance.StringFixed(2),
		BalanceUSD:        p.BalanceUSD.StringFixed(2),
		PledgeDate:        p.PledgeDate,
		Status:            p.Status.String(),
		Campaign:          p.Campaign,
		Notes:             p.Notes,
		CancelledAt:       p.CancelledAt,
		CancelReason:      p.CancelReason,
		RateDegraded:      rateDegraded,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
}

// resolveExchangeRate returns the local-per-USD rate for a currency,
// preferring an explicit request value over the live table. The bool
// reports whether the table had no rate and defaulted to 1.
func (s *PledgeService) resolveExchangeRate(ctx context.Context, explicit string, cur valueobject.Currency) (decimal.Decimal, bool, error) {
	if explicit != "" {
		rate, err := decimal.NewFromString(explicit)
		if err != nil {
			return decimal.Zero, false, shared.NewDomainError("INVALID_EXCHANGE_RATE", "Exchange rate must be a decimal number")
		}
		return rate, false, nil
	}
	if cur == valueobject.USD {
		return decimal.NewFromInt(1), false, nil
	}

	table, err := s.rates.Current(ctx)
	if err != nil {
		s.logger.Warn("rate table unavailable, defaulting to 1",
			zap.String("currency", cur.String()), zap.Error(err))
		return decimal.NewFromInt(1), true, nil
	}

	rate, found := table.Lookup(cur)
	return rate, !found, nil
}

// CreatePledge creates a new pledge for an existing contact
func (s *PledgeService) CreatePledge(ctx context.Context, req CreatePledgeRequest) (*PledgeResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Contact not found")
	}

	amount, err := valueobject.NewMoneyFromString(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}

	rate, degraded, err := s.resolveExchangeRate(ctx, req.ExchangeRate, amount.Currency())
	if err != nil {
		return nil, err
	}

	pledge, err := donor.NewPledge(contact.ID, contact.FullName(), amount, rate, req.PledgeDate)
	if err != nil {
		return nil, err
	}
	pledge.Campaign = req.Campaign
	pledge.SetNotes(req.Notes)

	if err := s.pledgeRepo.Save(ctx, pledge); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, pledge)

	s.logger.Info("pledge created",
		zap.String("pledge_id", pledge.ID.String()),
		zap.String("contact_id", contact.ID.String()),
		zap.String("amount", pledge.OriginalAmount.StringFixed(2)),
		zap.String("currency", pledge.Currency.String()),
		zap.Bool("rate_degraded", degraded))

	return toPledgeResponse(pledge, degraded), nil
}

// GetPledge gets a pledge by ID
func (s *PledgeService) GetPledge(ctx context.Context, id uuid.UUID) (*PledgeResponse, error) {
	pledge, err := s.pledgeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Pledge not found")
	}
	return toPledgeResponse(pledge, false), nil
}

// ListPledges lists pledges with filtering
func (s *PledgeService) ListPledges(ctx context.Context, filter PledgeListFilter) ([]PledgeResponse, int64, error) {
	domainFilter := donor.PledgeFilter{
		ContactID: filter.ContactID,
		Campaign:  nil,
		FromDate:  filter.FromDate,
		ToDate:    filter.ToDate,
		OpenOnly:  filter.OpenOnly,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search
	domainFilter.OrderBy = filter.OrderBy
	domainFilter.OrderDir = filter.OrderDir
	if domainFilter.Page <= 0 {
		domainFilter.Page = 1
	}
	if domainFilter.PageSize <= 0 {
		domainFilter.PageSize = 20
	}
	if filter.Status != "" {
		status := donor.PledgeStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown pledge status")
		}
		domainFilter.Status = &status
	}
	if filter.Campaign != "" {
		domainFilter.Campaign = &filter.Campaign
	}

	pledges, err := s.pledgeRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.pledgeRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PledgeResponse, len(pledges))
	for i := range pledges {
		responses[i] = *toPledgeResponse(&pledges[i], false)
	}
	return responses, total, nil
}

// UpdatePledge updates pledge metadata. Amounts are immutable after
// creation; corrections go through payments.
func (s *PledgeService) UpdatePledge(ctx context.Context, id uuid.UUID, req UpdatePledgeRequest) (*PledgeResponse, error) {
	pledge, err := s.pledgeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Pledge not found")
	}

	pledge.Campaign = req.Campaign
	pledge.SetNotes(req.Notes)

	if err := s.pledgeRepo.Save(ctx, pledge); err != nil {
		return nil, err
	}
	return toPledgeResponse(pledge, false), nil
}

// CancelPledge cancels a pledge
func (s *PledgeService) CancelPledge(ctx context.Context, id uuid.UUID, req CancelPledgeRequest) (*PledgeResponse, error) {
	pledge, err := s.pledgeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Pledge not found")
	}

	if err := pledge.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.pledgeRepo.SaveWithLock(ctx, pledge); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, pledge)

	s.logger.Info("pledge cancelled", zap.String("pledge_id", pledge.ID.String()))

	return toPledgeResponse(pledge, false), nil
}

// DeletePledge removes a pledge nothing references yet. Pledges with
// recorded payments or plans must be cancelled instead.
func (s *PledgeService) DeletePledge(ctx context.Context, id uuid.UUID) error {
	pledge, err := s.pledgeRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if pledge == nil {
		return shared.NewDomainError("NOT_FOUND", "Pledge not found")
	}

	payments, err := s.paymentRepo.Count(ctx, payment.Filter{PledgeID: &id})
	if err != nil {
		return err
	}
	if payments > 0 {
		return shared.NewDomainError("INVALID_STATE", "Pledge has payments and cannot be deleted")
	}

	plans, err := s.planRepo.FindByPledge(ctx, id)
	if err != nil {
		return err
	}
	if len(plans) > 0 {
		return shared.NewDomainError("INVALID_STATE", "Pledge has payment plans and cannot be deleted")
	}

	if err := s.pledgeRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("pledge deleted", zap.String("pledge_id", id.String()))
	return nil
}
