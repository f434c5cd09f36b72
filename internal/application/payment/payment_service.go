package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/payment"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service provides application-level payment operations. It owns the
// orchestration around the payment's two shapes: a direct payment is
// applied to one pledge, a split payment to every pledge its
// allocations reference. Pledge applications happen when a payment
// completes and are reversed on refund.
type Service struct {
	paymentRepo payment.Repository
	pledgeRepo  donor.PledgeRepository
	rates       currency.Provider
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewService creates a new payment Service. The publisher may be nil.
func NewService(
	paymentRepo payment.Repository,
	pledgeRepo donor.PledgeRepository,
	rates currency.Provider,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		paymentRepo: paymentRepo,
		pledgeRepo:  pledgeRepo,
		rates:       rates,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *Service) publishEvents(ctx context.Context, p *payment.Payment) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, p.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish payment events", zap.Error(err))
	}
	p.ClearDomainEvents()
}

// AllocationRequest is one allocation line in a split payment payload
type AllocationRequest struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	PledgeID uuid.UUID  `json:"pledge_id" binding:"required"`
	Amount   string     `json:"amount" binding:"required"`
	Notes    string     `json:"notes" binding:"omitempty,max=500"`
}

// CreateDirectPaymentRequest is the payload for recording a payment
// against a single pledge
type CreateDirectPaymentRequest struct {
	PledgeID     uuid.UUID `json:"pledge_id" binding:"required"`
	Amount       string    `json:"amount" binding:"required"`
	Currency     string    `json:"currency" binding:"required,currency"`
	ExchangeRate string    `json:"exchange_rate" binding:"omitempty"`
	PaymentDate  time.Time `json:"payment_date" binding:"required"`
	Method       string    `json:"method" binding:"required"`
	Notes        string    `json:"notes" binding:"omitempty,max=2000"`
	// Pending leaves the payment uncollected; by default a recorded
	// payment completes immediately and is applied to its pledge.
	Pending bool `json:"pending"`
}

// CreateSplitPaymentRequest is the payload for recording a payment
// spread across several pledges
type CreateSplitPaymentRequest struct {
	Amount       string              `json:"amount" binding:"required"`
	Currency     string              `json:"currency" binding:"required,currency"`
	ExchangeRate string              `json:"exchange_rate" binding:"omitempty"`
	PaymentDate  time.Time           `json:"payment_date" binding:"required"`
	Method       string              `json:"method" binding:"required"`
	Notes        string              `json:"notes" binding:"omitempty,max=2000"`
	Allocations  []AllocationRequest `json:"allocations" binding:"required,min=1,dive"`
	Pending      bool                `json:"pending"`
}

// UpdateDirectPaymentRequest is the payload for the direct-mode update path
type UpdateDirectPaymentRequest struct {
	Amount       string    `json:"amount" binding:"required"`
	Currency     string    `json:"currency" binding:"required,currency"`
	ExchangeRate string    `json:"exchange_rate" binding:"omitempty"`
	PaymentDate  time.Time `json:"payment_date" binding:"required"`
	Method       string    `json:"method" binding:"required"`
	Notes        string    `json:"notes" binding:"omitempty,max=2000"`
}

// UpdateSplitPaymentRequest is the payload for the split-mode update path
type UpdateSplitPaymentRequest struct {
	Amount       string              `json:"amount" binding:"required"`
	Currency     string              `json:"currency" binding:"required,currency"`
	ExchangeRate string              `json:"exchange_rate" binding:"omitempty"`
	Allocations  []AllocationRequest `json:"allocations" binding:"required,min=1,dive"`
}

// ListFilter defines filtering options for payment list queries
type ListFilter struct {
	Search    string     `form:"search"`
	PledgeID  *uuid.UUID `form:"pledge_id"`
	Status    string     `form:"status"`
	Method    string     `form:"method"`
	FromDate  *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"to_date" time_format:"2006-01-02"`
	SplitOnly bool       `form:"split_only"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID        uuid.UUID `json:"id"`
	PledgeID  uuid.UUID `json:"pledge_id"`
	Amount    string    `json:"amount"`
	AmountUSD string    `json:"amount_usd"`
	Currency  string    `json:"currency"`
	Notes     string    `json:"notes,omitempty"`
}

// Response represents a payment in API responses. Monetary fields are
// fixed-precision decimal strings.
type Response struct {
	ID            uuid.UUID            `json:"id"`
	ReceiptNumber string               `json:"receipt_number"`
	PledgeID      *uuid.UUID           `json:"pledge_id,omitempty"`
	Amount        string               `json:"amount"`
	Currency      string               `json:"currency"`
	AmountUSD     string               `json:"amount_usd"`
	ExchangeRate  string               `json:"exchange_rate"`
	PaymentDate   time.Time            `json:"payment_date"`
	Method        string               `json:"method"`
	Status        string               `json:"status"`
	Split         bool                 `json:"split"`
	Allocations   []AllocationResponse `json:"allocations,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	RefundedAt    *time.Time           `json:"refunded_at,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	RateDegraded  bool                 `json:"rate_degraded,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Version       int                  `json:"version"`
}

func toResponse(p *payment.Payment, rateDegraded bool) *Response {
	resp := &Response{
		ID:            p.ID,
		ReceiptNumber: p.ReceiptNumber,
		PledgeID:      p.PledgeID,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency.String(),
		AmountUSD:     p.AmountUSD.StringFixed(2),
		ExchangeRate:  p.ExchangeRate.String(),
		PaymentDate:   p.PaymentDate,
		Method:        p.Method.String(),
		Status:        p.Status.String(),
		Split:         p.IsSplit(),
		Notes:         p.Notes,
		RefundedAt:    p.RefundedAt,
		FailureReason: p.FailureReason,
		RateDegraded:  rateDegraded,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}
	for i := range p.Allocations {
		a := &p.Allocations[i]
		resp.Allocations = append(resp.Allocations, AllocationResponse{
			ID:        a.ID,
			PledgeID:  a.PledgeID,
			Amount:    a.Amount.StringFixed(2),
			AmountUSD: a.AmountUSD.StringFixed(2),
			Currency:  a.Currency.String(),
			Notes:     a.Notes,
		})
	}
	return resp
}

func (s *Service) resolveExchangeRate(ctx context.Context, explicit string, cur valueobject.Currency) (decimal.Decimal, bool, error) {
	if explicit != "" {
		rate, err := decimal.NewFromString(explicit)
		if err != nil {
			return decimal.Zero, false, shared.NewDomainError("INVALID_EXCHANGE_RATE", "Exchange rate must be a decimal number")
		}
		if rate.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, false, shared.NewDomainError("INVALID_EXCHANGE_RATE", "Exchange rate must be positive")
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

func (s *Service) nextReceiptNumber(ctx context.Context, paymentDate time.Time) (string, error) {
	year := paymentDate.Year()
	seq, err := s.paymentRepo.NextReceiptSequence(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%d-%06d", year, seq), nil
}

func parseAllocationEntries(reqs []AllocationRequest) ([]payment.AllocationEntry, error) {
	entries := make([]payment.AllocationEntry, 0, len(reqs))
	for i, r := range reqs {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_ALLOCATION_AMOUNT", fmt.Sprintf("Allocation %d amount must be a decimal number", i))
		}
		entries = append(entries, payment.AllocationEntry{
			ID:       r.ID,
			PledgeID: r.PledgeID,
			Amount:   amount,
			Notes:    r.Notes,
		})
	}
	return entries, nil
}

// pledgeAmount converts a USD amount into a pledge's local currency
// using the pledge's recorded creation rate, so the pledge's own books
// stay in one consistent rate regime.
func pledgeAmount(amountUSD decimal.Decimal, p *donor.Pledge) decimal.Decimal {
	return amountUSD.Mul(p.ExchangeRate).Round(2)
}

func (s *Service) loadPledge(ctx context.Context, id uuid.UUID) (*donor.Pledge, error) {
	pledge, err := s.pledgeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, shared.NewDomainError("REFERENCE_NOT_FOUND", fmt.Sprintf("Pledge %s not found", id))
	}
	return pledge, nil
}

// applyToPledges credits (reverse=false) or debits (reverse=true) the
// pledges a completed payment touches
func (s *Service) applyToPledges(ctx context.Context, p *payment.Payment, reverse bool) error {
	apply := func(pledge *donor.Pledge, amountUSD decimal.Decimal) error {
		local := pledgeAmount(amountUSD, pledge)
		if reverse {
			return pledge.ReversePayment(local, amountUSD)
		}
		return pledge.ApplyPayment(local, amountUSD)
	}

	if p.IsDirect() {
		pledge, err := s.loadPledge(ctx, *p.PledgeID)
		if err != nil {
			return err
		}
		if err := apply(pledge, p.AmountUSD); err != nil {
			return err
		}
		return s.pledgeRepo.SaveWithLock(ctx, pledge)
	}

	for i := range p.Allocations {
		a := &p.Allocations[i]
		pledge, err := s.loadPledge(ctx, a.PledgeID)
		if err != nil {
			return err
		}
		if err := apply(pledge, a.AmountUSD); err != nil {
			return err
		}
		if err := s.pledgeRepo.SaveWithLock(ctx, pledge); err != nil {
			return err
		}
	}
	return nil
}

// CreateDirectPayment records a payment against a single pledge
func (s *Service) CreateDirectPayment(ctx context.Context, req CreateDirectPaymentRequest) (*Response, error) {
	pledge, err := s.loadPledge(ctx, req.PledgeID)
	if err != nil {
		return nil, err
	}
	if !pledge.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", "Payments can only be recorded against active pledges")
	}

	amount, err := valueobject.NewMoneyFromString(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	rate, degraded, err := s.resolveExchangeRate(ctx, req.ExchangeRate, amount.Currency())
	if err != nil {
		return nil, err
	}
	receipt, err := s.nextReceiptNumber(ctx, req.PaymentDate)
	if err != nil {
		return nil, err
	}

	p, err := payment.NewDirectPayment(receipt, pledge.ID, amount, rate, req.PaymentDate, payment.Method(req.Method))
	if err != nil {
		return nil, err
	}
	p.Notes = req.Notes

	if !req.Pending {
		if err := p.Complete(); err != nil {
			return nil, err
		}
		if err := s.applyToPledges(ctx, p, false); err != nil {
			return nil, err
		}
	}

	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	s.logger.Info("payment recorded",
		zap.String("payment_id", p.ID.String()),
		zap.String("receipt", p.ReceiptNumber),
		zap.String("pledge_id", pledge.ID.String()),
		zap.String("amount", p.Amount.StringFixed(2)),
		zap.String("status", p.Status.String()))

	return toResponse(p, degraded), nil
}

// CreateSplitPayment records a payment allocated across multiple pledges
func (s *Service) CreateSplitPayment(ctx context.Context, req CreateSplitPaymentRequest) (*Response, error) {
	amount, err := valueobject.NewMoneyFromString(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	entries, err := parseAllocationEntries(req.Allocations)
	if err != nil {
		return nil, err
	}
	if err := s.verifyPledgeRefs(ctx, entries); err != nil {
		return nil, err
	}
	if err := payment.ValidateAllocations(entries, amount.Amount()); err != nil {
		return nil, err
	}

	rate, degraded, err := s.resolveExchangeRate(ctx, req.ExchangeRate, amount.Currency())
	if err != nil {
		return nil, err
	}

	// A rejected request must not consume a receipt sequence value
	receipt, err := s.nextReceiptNumber(ctx, req.PaymentDate)
	if err != nil {
		return nil, err
	}

	p, err := payment.NewSplitPayment(receipt, amount, rate, req.PaymentDate, payment.Method(req.Method), entries)
	if err != nil {
		return nil, err
	}
	p.Notes = req.Notes

	if !req.Pending {
		if err := p.Complete(); err != nil {
			return nil, err
		}
		if err := s.applyToPledges(ctx, p, false); err != nil {
			return nil, err
		}
	}

	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	s.logger.Info("split payment recorded",
		zap.String("payment_id", p.ID.String()),
		zap.String("receipt", p.ReceiptNumber),
		zap.Int("allocations", len(p.Allocations)),
		zap.String("amount", p.Amount.StringFixed(2)))

	return toResponse(p, degraded), nil
}

// verifyPledgeRefs checks every allocation references an existing,
// active pledge
func (s *Service) verifyPledgeRefs(ctx context.Context, entries []payment.AllocationEntry) error {
	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		if e.PledgeID != uuid.Nil && !seen[e.PledgeID] {
			seen[e.PledgeID] = true
			ids = append(ids, e.PledgeID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	pledges, err := s.pledgeRepo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[uuid.UUID]*donor.Pledge, len(pledges))
	for i := range pledges {
		found[pledges[i].ID] = &pledges[i]
	}
	for _, id := range ids {
		pledge, ok := found[id]
		if !ok {
			return shared.NewDomainError("REFERENCE_NOT_FOUND", fmt.Sprintf("Pledge %s not found", id))
		}
		if !pledge.IsActive() {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Pledge %s is not active", id))
		}
	}
	return nil
}

// GetPayment gets a payment by ID
func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return toResponse(p, false), nil
}

// ListPayments lists payments with filtering
func (s *Service) ListPayments(ctx context.Context, filter ListFilter) ([]Response, int64, error) {
	domainFilter := payment.Filter{
		PledgeID:  filter.PledgeID,
		FromDate:  filter.FromDate,
		ToDate:    filter.ToDate,
		SplitOnly: filter.SplitOnly,
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
		status := payment.Status(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown payment status")
		}
		domainFilter.Status = &status
	}
	if filter.Method != "" {
		method := payment.Method(filter.Method)
		if !method.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
		}
		domainFilter.Method = &method
	}

	page, err := s.paymentRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]Response, len(page.Items))
	for i, p := range page.Items {
		responses[i] = *toResponse(p, false)
	}
	return responses, page.Total, nil
}

// UpdateDirectPayment updates a direct payment. A completed payment's
// pledge application is reversed and re-applied with the new figures.
func (s *Service) UpdateDirectPayment(ctx context.Context, id uuid.UUID, req UpdateDirectPaymentRequest) (*Response, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}

	amount, err := valueobject.NewMoneyFromString(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	rate, degraded, err := s.resolveExchangeRate(ctx, req.ExchangeRate, amount.Currency())
	if err != nil {
		return nil, err
	}

	wasCompleted := p.Status == payment.StatusCompleted
	if wasCompleted {
		if err := s.applyToPledges(ctx, p, true); err != nil {
			return nil, err
		}
	}

	if err := p.UpdateDetails(amount, rate, req.PaymentDate, payment.Method(req.Method), req.Notes); err != nil {
		if wasCompleted {
			// restore the reversed application before bailing out
			if applyErr := s.applyToPledges(ctx, p, false); applyErr != nil {
				s.logger.Error("failed to restore pledge totals after rejected update",
					zap.String("payment_id", p.ID.String()), zap.Error(applyErr))
			}
		}
		return nil, err
	}

	if wasCompleted {
		if err := s.applyToPledges(ctx, p, false); err != nil {
			return nil, err
		}
	}
	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	return toResponse(p, degraded), nil
}

// UpdateSplitPayment updates a split payment, replacing its allocation
// set. The full rule set from creation applies again, plus the
// ownership check on any carried allocation ids.
func (s *Service) UpdateSplitPayment(ctx context.Context, id uuid.UUID, req UpdateSplitPaymentRequest) (*Response, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}

	amount, err := valueobject.NewMoneyFromString(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	entries, err := parseAllocationEntries(req.Allocations)
	if err != nil {
		return nil, err
	}
	if err := s.verifyPledgeRefs(ctx, entries); err != nil {
		return nil, err
	}
	rate, degraded, err := s.resolveExchangeRate(ctx, req.ExchangeRate, amount.Currency())
	if err != nil {
		return nil, err
	}

	wasCompleted := p.Status == payment.StatusCompleted
	if wasCompleted {
		if err := s.applyToPledges(ctx, p, true); err != nil {
			return nil, err
		}
	}

	if err := p.ReplaceAllocations(amount, rate, entries); err != nil {
		if wasCompleted {
			if applyErr := s.applyToPledges(ctx, p, false); applyErr != nil {
				s.logger.Error("failed to restore pledge totals after rejected update",
					zap.String("payment_id", p.ID.String()), zap.Error(applyErr))
			}
		}
		return nil, err
	}

	if wasCompleted {
		if err := s.applyToPledges(ctx, p, false); err != nil {
			return nil, err
		}
	}
	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	return toResponse(p, degraded), nil
}

// CompletePayment completes a pending payment, applying it to its pledges
func (s *Service) CompletePayment(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}

	if err := p.Complete(); err != nil {
		return nil, err
	}
	if err := s.applyToPledges(ctx, p, false); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	return toResponse(p, false), nil
}

// CancelPayment cancels a payment that has not completed
func (s *Service) CancelPayment(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}

	if err := p.Cancel(); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)
	return toResponse(p, false), nil
}

// RefundPayment refunds a completed payment and reverses its pledge
// applications
func (s *Service) RefundPayment(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}

	if err := p.Refund(); err != nil {
		return nil, err
	}
	if err := s.applyToPledges(ctx, p, true); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	s.logger.Info("payment refunded",
		zap.String("payment_id", p.ID.String()),
		zap.String("receipt", p.ReceiptNumber))

	return toResponse(p, false), nil
}

// DeletePayment removes a payment that never touched a pledge.
// Completed payments must be refunded instead, and refunded payments
// stay on record.
func (s *Service) DeletePayment(ctx context.Context, id uuid.UUID) error {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return shared.NewDomainError("NOT_FOUND", "Payment not found")
	}

	switch p.Status {
	case payment.StatusPending, payment.StatusFailed, payment.StatusCancelled:
	default:
		return shared.NewDomainError("INVALID_STATE", "Only pending, failed or cancelled payments can be deleted")
	}

	if err := s.paymentRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("payment deleted",
		zap.String("payment_id", id.String()),
		zap.String("receipt", p.ReceiptNumber))
	return nil
}
