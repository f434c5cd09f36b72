package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	paymentapp "github.com/pledgehub/backend/internal/application/payment"
	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/plan"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service provides application-level payment plan operations
type Service struct {
	planRepo   plan.Repository
	pledgeRepo donor.PledgeRepository
	payments   *paymentapp.Service
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewService creates a new plan Service. The publisher may be nil.
func NewService(
	planRepo plan.Repository,
	pledgeRepo donor.PledgeRepository,
	payments *paymentapp.Service,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		planRepo:   planRepo,
		pledgeRepo: pledgeRepo,
		payments:   payments,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *Service) publishEvents(ctx context.Context, p *plan.PaymentPlan) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, p.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish plan events", zap.Error(err))
	}
	p.ClearDomainEvents()
}

// CustomInstallmentRequest is one author-supplied installment line
type CustomInstallmentRequest struct {
	Date   time.Time `json:"date" binding:"required"`
	Amount string    `json:"amount" binding:"required"`
	Notes  string    `json:"notes" binding:"omitempty,max=500"`
}

// CreatePlanRequest is the payload for creating a payment plan. For a
// fixed plan the driving field says which input sizes the schedule:
// "total" spreads TotalAmount over NumberOfInstallments, while
// "installment_amount" derives the count from InstallmentAmount. A
// custom plan takes its lines verbatim and derives total and count.
type CreatePlanRequest struct {
	PledgeID             uuid.UUID                  `json:"pledge_id" binding:"required"`
	Frequency            string                     `json:"frequency" binding:"required"`
	Distribution         string                     `json:"distribution" binding:"required,oneof=fixed custom"`
	Currency             string                     `json:"currency" binding:"required,currency"`
	TotalAmount          string                     `json:"total_amount" binding:"omitempty"`
	DrivingField         string                     `json:"driving_field" binding:"omitempty,oneof=total installment_amount"`
	NumberOfInstallments int                        `json:"number_of_installments" binding:"omitempty,min=1,max=1000"`
	InstallmentAmount    string                     `json:"installment_amount" binding:"omitempty"`
	StartDate            time.Time                  `json:"start_date" binding:"omitempty"`
	AutoRenew            bool                       `json:"auto_renew"`
	Installments         []CustomInstallmentRequest `json:"installments" binding:"omitempty,dive"`
	Notes                string                     `json:"notes" binding:"omitempty,max=2000"`
}

// UpdatePlanRequest is the payload for reconfiguring a fixed plan
type UpdatePlanRequest struct {
	Frequency            string    `json:"frequency" binding:"required"`
	TotalAmount          string    `json:"total_amount" binding:"required"`
	Currency             string    `json:"currency" binding:"required,currency"`
	NumberOfInstallments int       `json:"number_of_installments" binding:"required,min=1,max=1000"`
	StartDate            time.Time `json:"start_date" binding:"required"`
	Notes                string    `json:"notes" binding:"omitempty,max=2000"`
}

// EditInstallmentRequest is the payload for editing one installment line
type EditInstallmentRequest struct {
	Date   time.Time `json:"date" binding:"required"`
	Amount string    `json:"amount" binding:"required"`
	Notes  string    `json:"notes" binding:"omitempty,max=500"`
}

// RegenerateRequest is the payload for rebuilding a plan's schedule.
// This is the explicit path back from custom to fixed distribution.
type RegenerateRequest struct {
	Frequency            string    `json:"frequency" binding:"required"`
	TotalAmount          string    `json:"total_amount" binding:"required"`
	Currency             string    `json:"currency" binding:"required,currency"`
	NumberOfInstallments int       `json:"number_of_installments" binding:"required,min=1,max=1000"`
	StartDate            time.Time `json:"start_date" binding:"required"`
}

// PayInstallmentRequest is the payload for paying one installment. An
// empty amount pays the installment's scheduled amount.
type PayInstallmentRequest struct {
	Amount      string    `json:"amount" binding:"omitempty"`
	PaymentDate time.Time `json:"payment_date" binding:"required"`
	Method      string    `json:"method" binding:"required"`
}

// CancelPlanRequest is the payload for cancelling a plan
type CancelPlanRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ListFilter defines filtering options for plan list queries
type ListFilter struct {
	Search       string     `form:"search"`
	PledgeID     *uuid.UUID `form:"pledge_id"`
	Status       string     `form:"status"`
	Frequency    string     `form:"frequency"`
	Distribution string     `form:"distribution"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
	OrderBy      string     `form:"order_by"`
	OrderDir     string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID         uuid.UUID  `json:"id"`
	Sequence   int        `json:"sequence"`
	DueDate    time.Time  `json:"due_date"`
	Amount     string     `json:"amount"`
	Currency   string     `json:"currency"`
	IsPaid     bool       `json:"is_paid"`
	PaidDate   *time.Time `json:"paid_date,omitempty"`
	PaidAmount string     `json:"paid_amount,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Response represents a payment plan in API responses. Monetary fields
// are fixed-precision decimal strings.
type Response struct {
	ID                   uuid.UUID             `json:"id"`
	PledgeID             uuid.UUID             `json:"pledge_id"`
	Frequency            string                `json:"frequency"`
	Distribution         string                `json:"distribution"`
	Status               string                `json:"status"`
	TotalPlannedAmount   string                `json:"total_planned_amount"`
	Currency             string                `json:"currency"`
	InstallmentAmount    string                `json:"installment_amount"`
	NumberOfInstallments int                   `json:"number_of_installments"`
	StartDate            time.Time             `json:"start_date"`
	EndDate              *time.Time            `json:"end_date,omitempty"`
	NextPaymentDate      *time.Time            `json:"next_payment_date,omitempty"`
	AutoRenew            bool                  `json:"auto_renew"`
	Installments         []InstallmentResponse `json:"installments,omitempty"`
	// FitDifference is set when the installment amount drove the
	// count: count*amount minus the requested total. Surfaced, never
	// auto-corrected.
	FitDifference string     `json:"fit_difference,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Version       int        `json:"version"`
}

func toResponse(p *plan.PaymentPlan) *Response {
	resp := &Response{
		ID:                   p.ID,
		PledgeID:             p.PledgeID,
		Frequency:            p.Frequency.String(),
		Distribution:         p.Distribution.String(),
		Status:               p.Status.String(),
		TotalPlannedAmount:   p.TotalPlannedAmount.StringFixed(2),
		Currency:             p.Currency.String(),
		InstallmentAmount:    p.InstallmentAmount.StringFixed(2),
		NumberOfInstallments: p.NumberOfInstallments,
		StartDate:            p.StartDate,
		EndDate:              p.EndDate,
		NextPaymentDate:      p.NextPaymentDate,
		AutoRenew:            p.AutoRenew,
		Notes:                p.Notes,
		CancelledAt:          p.CancelledAt,
		CancelReason:         p.CancelReason,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		Version:              p.Version,
	}
	for i := range p.Installments {
		inst := &p.Installments[i]
		ir := InstallmentResponse{
			ID:       inst.ID,
			Sequence: inst.Sequence,
			DueDate:  inst.DueDate,
			Amount:   inst.Amount.StringFixed(2),
			Currency: inst.Currency.String(),
			IsPaid:   inst.IsPaid,
			PaidDate: inst.PaidDate,
			Notes:    inst.Notes,
		}
		if inst.PaidAmount != nil {
			ir.PaidAmount = inst.PaidAmount.StringFixed(2)
		}
		resp.Installments = append(resp.Installments, ir)
	}
	return resp
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("%s must be a decimal number", field))
	}
	return amount, nil
}

// CreatePlan creates a payment plan for an active pledge
func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Response, error) {
	pledge, err := s.pledgeRepo.FindByID(ctx, req.PledgeID)
	if err != nil {
		return nil, err
	}
	if pledge == nil {
		return nil, shared.NewDomainError("REFERENCE_NOT_FOUND", "Pledge not found")
	}
	if !pledge.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", "Plans can only be created for active pledges")
	}

	cur := valueobject.Currency(req.Currency)
	frequency := plan.Frequency(req.Frequency)

	var (
		created *plan.PaymentPlan
		fitDiff string
	)

	switch plan.Distribution(req.Distribution) {
	case plan.DistributionCustom:
		lines := make([]plan.CustomInstallmentEntry, 0, len(req.Installments))
		for i, line := range req.Installments {
			amount, err := parseAmount(line.Amount, fmt.Sprintf("Installment %d amount", i+1))
			if err != nil {
				return nil, err
			}
			lines = append(lines, plan.CustomInstallmentEntry{Date: line.Date, Amount: amount, Notes: line.Notes})
		}
		created, err = plan.NewCustomPlan(pledge.ID, cur, frequency, lines, req.AutoRenew)
		if err != nil {
			return nil, err
		}

	case plan.DistributionFixed:
		if req.TotalAmount == "" {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount is required for a fixed plan")
		}
		total, err := valueobject.NewMoneyFromString(req.TotalAmount, cur)
		if err != nil {
			return nil, err
		}
		if req.StartDate.IsZero() {
			return nil, shared.NewDomainError("INVALID_START_DATE", "Start date is required for a fixed plan")
		}

		count := req.NumberOfInstallments
		if plan.DrivingField(req.DrivingField) == plan.DrivingFieldInstallmentAmount {
			instAmount, err := parseAmount(req.InstallmentAmount, "Installment amount")
			if err != nil {
				return nil, err
			}
			fit, err := plan.CountForInstallmentAmount(total.Amount(), instAmount)
			if err != nil {
				return nil, err
			}
			count = fit.Count
			if !fit.Difference.IsZero() {
				fitDiff = fit.Difference.StringFixed(2)
			}
		}

		created, err = plan.NewFixedPlan(pledge.ID, total, frequency, count, req.StartDate, req.AutoRenew)
		if err != nil {
			return nil, err
		}

	default:
		return nil, shared.NewDomainError("INVALID_DISTRIBUTION", "Distribution must be fixed or custom")
	}

	created.Notes = req.Notes

	if err := s.planRepo.Save(ctx, created); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, created)

	s.logger.Info("payment plan created",
		zap.String("plan_id", created.ID.String()),
		zap.String("pledge_id", pledge.ID.String()),
		zap.String("frequency", created.Frequency.String()),
		zap.String("distribution", created.Distribution.String()),
		zap.Int("installments", created.NumberOfInstallments))

	resp := toResponse(created)
	resp.FitDifference = fitDiff
	return resp, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*plan.PaymentPlan, error) {
	p, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment plan not found")
	}
	return p, nil
}

// GetPlan gets a plan by ID
func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(p), nil
}

// ListPlans lists plans with filtering
func (s *Service) ListPlans(ctx context.Context, filter ListFilter) ([]Response, int64, error) {
	domainFilter := plan.Filter{PledgeID: filter.PledgeID}
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
		status := plan.Status(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown plan status")
		}
		domainFilter.Status = &status
	}
	if filter.Frequency != "" {
		frequency := plan.Frequency(filter.Frequency)
		if !frequency.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_FREQUENCY", "Unknown frequency")
		}
		domainFilter.Frequency = &frequency
	}
	if filter.Distribution != "" {
		distribution := plan.Distribution(filter.Distribution)
		if !distribution.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_DISTRIBUTION", "Unknown distribution type")
		}
		domainFilter.Distribution = &distribution
	}

	page, err := s.planRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]Response, len(page.Items))
	for i, p := range page.Items {
		responses[i] = *toResponse(p)
	}
	return responses, page.Total, nil
}

// ListInstallments returns a plan's installment lines
func (s *Service) ListInstallments(ctx context.Context, id uuid.UUID) ([]InstallmentResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(p).Installments, nil
}

// UpdatePlan reconfigures a fixed plan's schedule parameters
func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, req UpdatePlanRequest) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := valueobject.NewMoneyFromString(req.TotalAmount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	if err := p.Reconfigure(total, plan.Frequency(req.Frequency), req.NumberOfInstallments, req.StartDate); err != nil {
		return nil, err
	}
	p.Notes = req.Notes

	if err := s.planRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)
	return toResponse(p), nil
}

// EditInstallment edits one installment. On a fixed plan this promotes
// the plan to custom distribution and re-derives its total and count.
func (s *Service) EditInstallment(ctx context.Context, id uuid.UUID, sequence int, req EditInstallmentRequest) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(req.Amount, "Installment amount")
	if err != nil {
		return nil, err
	}
	if err := p.EditInstallment(sequence, req.Date, amount, req.Notes); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	return toResponse(p), nil
}

// RegenerateSchedule rebuilds a plan's schedule as fixed distribution
func (s *Service) RegenerateSchedule(ctx context.Context, id uuid.UUID, req RegenerateRequest) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := valueobject.NewMoneyFromString(req.TotalAmount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	if err := p.Regenerate(total, plan.Frequency(req.Frequency), req.NumberOfInstallments, req.StartDate); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	s.logger.Info("plan schedule regenerated",
		zap.String("plan_id", p.ID.String()),
		zap.String("frequency", p.Frequency.String()),
		zap.Int("installments", p.NumberOfInstallments))

	return toResponse(p), nil
}

// PayInstallment records payment of one installment. A direct payment
// is created against the plan's pledge and the schedule advances; an
// auto-renewing plan rolls into a new cycle when its last installment
// is paid.
func (s *Service) PayInstallment(ctx context.Context, id uuid.UUID, sequence int, req PayInstallmentRequest) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	inst, err := p.GetInstallment(sequence)
	if err != nil {
		return nil, err
	}

	amount := inst.Amount
	if req.Amount != "" {
		amount, err = parseAmount(req.Amount, "Paid amount")
		if err != nil {
			return nil, err
		}
	}

	if err := p.PayInstallment(sequence, amount, req.PaymentDate); err != nil {
		return nil, err
	}

	_, err = s.payments.CreateDirectPayment(ctx, paymentapp.CreateDirectPaymentRequest{
		PledgeID:    p.PledgeID,
		Amount:      amount.String(),
		Currency:    p.Currency.String(),
		PaymentDate: req.PaymentDate,
		Method:      req.Method,
		Notes:       fmt.Sprintf("Plan installment %d", sequence),
	})
	if err != nil {
		return nil, err
	}

	if p.AutoRenew && p.AllPaid() {
		if err := p.Renew(); err != nil {
			return nil, err
		}
	}

	if err := s.planRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)

	return toResponse(p), nil
}

// PausePlan suspends collection on a plan
func (s *Service) PausePlan(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Pause(); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)
	return toResponse(p), nil
}

// ResumePlan reactivates a paused plan
func (s *Service) ResumePlan(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Resume(); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)
	return toResponse(p), nil
}

// CancelPlan permanently stops a plan
func (s *Service) CancelPlan(ctx context.Context, id uuid.UUID, req CancelPlanRequest) (*Response, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, p)
	return toResponse(p), nil
}

// MarkOverduePlans flags active plans whose next payment date is before
// the cutoff. Invoked periodically by the scheduler; returns how many
// plans were flagged.
func (s *Service) MarkOverduePlans(ctx context.Context, cutoff time.Time) (int, error) {
	due, err := s.planRepo.FindDueBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, p := range due {
		if err := p.MarkOverdue(cutoff); err != nil {
			continue
		}
		if err := s.planRepo.Save(ctx, p); err != nil {
			s.logger.Error("failed to save overdue plan",
				zap.String("plan_id", p.ID.String()), zap.Error(err))
			continue
		}
		s.publishEvents(ctx, p)
		marked++
	}

	if marked > 0 {
		s.logger.Info("plans marked overdue", zap.Int("count", marked))
	}
	return marked, nil
}

// DeletePlan removes a plan with no paid installments. Plans that have
// collected money must be cancelled instead.
func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	for i := range p.Installments {
		if p.Installments[i].IsPaid {
			return shared.NewDomainError("INVALID_STATE", "Plan has paid installments and cannot be deleted")
		}
	}

	if err := s.planRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("plan deleted", zap.String("plan_id", id.String()))
	return nil
}
