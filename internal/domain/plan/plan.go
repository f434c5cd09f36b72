package plan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a payment plan
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusOverdue   Status = "overdue"
)

// IsValid checks if the status is a valid plan Status
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled, StatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if no further installments can be collected
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Distribution tells how installment amounts were determined
type Distribution string

const (
	DistributionFixed  Distribution = "fixed"
	DistributionCustom Distribution = "custom"
)

// IsValid checks if the distribution type is recognized
func (d Distribution) IsValid() bool {
	return d == DistributionFixed || d == DistributionCustom
}

// String returns the string representation of Distribution
func (d Distribution) String() string {
	return string(d)
}

// Installment is one dated line of a payment plan
type Installment struct {
	ID         uuid.UUID            `gorm:"type:uuid;primary_key"`
	PlanID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	Sequence   int                  `gorm:"not null"`
	DueDate    time.Time            `gorm:"not null;index"`
	Amount     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency   valueobject.Currency `gorm:"type:varchar(3);not null"`
	IsPaid     bool                 `gorm:"not null;default:false"`
	PaidDate   *time.Time
	PaidAmount *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Notes      string           `gorm:"type:varchar(500)"`
	CreatedAt  time.Time        `gorm:"not null"`
	UpdatedAt  time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Installment) TableName() string {
	return "plan_installments"
}

// CustomInstallmentEntry is the caller-supplied line used to create or
// edit custom-distribution plans
type CustomInstallmentEntry struct {
	Date   time.Time
	Amount decimal.Decimal
	Notes  string
}

// PaymentPlan represents a recurring giving schedule against one pledge
type PaymentPlan struct {
	shared.BaseAggregateRoot
	PledgeID             uuid.UUID            `gorm:"type:uuid;not null;index"`
	Frequency            Frequency            `gorm:"type:varchar(20);not null"`
	Distribution         Distribution         `gorm:"type:varchar(10);not null;default:'fixed'"`
	Status               Status               `gorm:"type:varchar(20);not null;default:'active';index"`
	TotalPlannedAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency             valueobject.Currency `gorm:"type:varchar(3);not null"`
	InstallmentAmount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	NumberOfInstallments int                  `gorm:"not null"`
	StartDate            time.Time            `gorm:"not null"`
	EndDate              *time.Time
	NextPaymentDate      *time.Time `gorm:"index"`
	AutoRenew            bool       `gorm:"not null;default:false"`
	Installments         []Installment `gorm:"foreignKey:PlanID;references:ID"`
	Notes                string        `gorm:"type:text"`
	CancelledAt          *time.Time
	CancelReason         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentPlan) TableName() string {
	return "payment_plans"
}

// NewFixedPlan creates a plan whose installments are generated by
// spreading the total across the schedule
func NewFixedPlan(
	pledgeID uuid.UUID,
	total valueobject.Money,
	frequency Frequency,
	count int,
	startDate time.Time,
	autoRenew bool,
) (*PaymentPlan, error) {
	if pledgeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PLEDGE", "Pledge ID cannot be empty")
	}
	if !total.Currency().IsSupported() {
		return nil, shared.NewDomainError("UNSUPPORTED_CURRENCY", fmt.Sprintf("Currency %q is not supported", total.Currency()))
	}
	if startDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_START_DATE", "Start date is required")
	}
	if frequency == FrequencyOneTime {
		count = 1
	}
	if count <= 0 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "Installment count must be positive")
	}

	entries, err := GenerateSchedule(startDate, frequency, count, total.Amount(), total.Currency())
	if err != nil {
		return nil, err
	}

	p := &PaymentPlan{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		PledgeID:             pledgeID,
		Frequency:            frequency,
		Distribution:         DistributionFixed,
		Status:               StatusActive,
		TotalPlannedAmount:   total.Amount(),
		Currency:             total.Currency(),
		InstallmentAmount:    entries[0].Amount,
		NumberOfInstallments: count,
		StartDate:            startDate,
		AutoRenew:            autoRenew,
	}
	p.setInstallments(entries)

	p.AddDomainEvent(NewPlanCreatedEvent(p))

	return p, nil
}

// NewCustomPlan creates a plan from author-supplied installment lines.
// Total and count are derived from the lines, never the other way
// around.
func NewCustomPlan(
	pledgeID uuid.UUID,
	currency valueobject.Currency,
	frequency Frequency,
	lines []CustomInstallmentEntry,
	autoRenew bool,
) (*PaymentPlan, error) {
	if pledgeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PLEDGE", "Pledge ID cannot be empty")
	}
	if !currency.IsSupported() {
		return nil, shared.NewDomainError("UNSUPPORTED_CURRENCY", fmt.Sprintf("Currency %q is not supported", currency))
	}
	if !frequency.IsValid() {
		return nil, shared.NewDomainError("INVALID_FREQUENCY", fmt.Sprintf("Frequency %q is not recognized", frequency))
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "A custom plan requires at least one installment")
	}

	total := decimal.Zero
	for i, line := range lines {
		if line.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Installment %d amount must be positive", i+1))
		}
		if line.Date.IsZero() {
			return nil, shared.NewDomainError("INVALID_START_DATE", fmt.Sprintf("Installment %d date is required", i+1))
		}
		total = total.Add(line.Amount)
	}

	p := &PaymentPlan{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		PledgeID:             pledgeID,
		Frequency:            frequency,
		Distribution:         DistributionCustom,
		Status:               StatusActive,
		TotalPlannedAmount:   total,
		Currency:             currency,
		InstallmentAmount:    lines[0].Amount,
		NumberOfInstallments: len(lines),
		StartDate:            lines[0].Date,
		AutoRenew:            autoRenew,
	}

	installments := make([]Installment, len(lines))
	now := time.Now()
	for i, line := range lines {
		installments[i] = Installment{
			ID:        uuid.New(),
			PlanID:    p.ID,
			Sequence:  i + 1,
			DueDate:   line.Date,
			Amount:    line.Amount,
			Currency:  currency,
			Notes:     line.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	p.Installments = installments
	p.refreshDates()

	p.AddDomainEvent(NewPlanCreatedEvent(p))

	return p, nil
}

func (p *PaymentPlan) setInstallments(entries []ScheduleEntry) {
	now := time.Now()
	installments := make([]Installment, len(entries))
	for i, e := range entries {
		installments[i] = Installment{
			ID:        uuid.New(),
			PlanID:    p.ID,
			Sequence:  e.Number,
			DueDate:   e.Date,
			Amount:    e.Amount,
			Currency:  e.Currency,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	p.Installments = installments
	p.refreshDates()
}

// refreshDates recomputes EndDate and NextPaymentDate from the
// installment list. NextPaymentDate is the earliest unpaid due date,
// nil when everything is paid.
func (p *PaymentPlan) refreshDates() {
	if len(p.Installments) == 0 {
		p.EndDate = nil
		p.NextPaymentDate = nil
		return
	}

	last := p.Installments[len(p.Installments)-1].DueDate
	p.EndDate = &last

	p.NextPaymentDate = nil
	for i := range p.Installments {
		if !p.Installments[i].IsPaid {
			due := p.Installments[i].DueDate
			p.NextPaymentDate = &due
			return
		}
	}
}

// Reconfigure regenerates a fixed-distribution schedule from new plan
// parameters. Paid installments are preserved by count: the first
// paidCount generated lines are marked paid with their recorded
// amounts untouched. Custom plans must go through Regenerate, which
// makes the reset explicit.
func (p *PaymentPlan) Reconfigure(total valueobject.Money, frequency Frequency, count int, startDate time.Time) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reconfigure plan in %s status", p.Status))
	}
	if p.Distribution != DistributionFixed {
		return shared.NewDomainError("INVALID_DISTRIBUTION", "Custom plans cannot be reconfigured; regenerate the schedule instead")
	}
	if !total.Currency().IsSupported() {
		return shared.NewDomainError("UNSUPPORTED_CURRENCY", fmt.Sprintf("Currency %q is not supported", total.Currency()))
	}
	if frequency == FrequencyOneTime {
		count = 1
	}

	entries, err := GenerateSchedule(startDate, frequency, count, total.Amount(), total.Currency())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "Installment count must be positive")
	}

	paid := p.paidInstallments()
	if len(paid) > len(entries) {
		return shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "New schedule has fewer installments than already paid")
	}

	p.Frequency = frequency
	p.TotalPlannedAmount = total.Amount()
	p.Currency = total.Currency()
	p.InstallmentAmount = entries[0].Amount
	p.NumberOfInstallments = len(entries)
	p.StartDate = startDate
	p.setInstallments(entries)
	for i := range paid {
		p.Installments[i].IsPaid = true
		p.Installments[i].PaidDate = paid[i].PaidDate
		p.Installments[i].PaidAmount = paid[i].PaidAmount
	}
	p.refreshDates()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

func (p *PaymentPlan) paidInstallments() []Installment {
	out := make([]Installment, 0)
	for i := range p.Installments {
		if p.Installments[i].IsPaid {
			out = append(out, p.Installments[i])
		}
	}
	return out
}

// EditInstallment changes one installment's date, amount, or notes.
// Editing a fixed plan promotes it to custom distribution: the plan's
// total becomes the sum of the lines and its count their number. The
// promotion is one way; only an explicit Regenerate restores fixed
// distribution.
func (p *PaymentPlan) EditInstallment(sequence int, dueDate time.Time, amount decimal.Decimal, notes string) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit installments of a plan in %s status", p.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Installment amount must be positive")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_START_DATE", "Installment date is required")
	}

	inst := p.installmentBySequence(sequence)
	if inst == nil {
		return shared.NewDomainError("INSTALLMENT_NOT_FOUND", fmt.Sprintf("Installment %d does not exist", sequence))
	}
	if inst.IsPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Installment %d is already paid", sequence))
	}

	inst.DueDate = dueDate
	inst.Amount = amount
	inst.Notes = notes
	inst.UpdatedAt = time.Now()

	if p.Distribution == DistributionFixed {
		p.Distribution = DistributionCustom
		p.AddDomainEvent(NewPlanPromotedToCustomEvent(p))
	}

	total := decimal.Zero
	for i := range p.Installments {
		total = total.Add(p.Installments[i].Amount)
	}
	p.TotalPlannedAmount = total
	p.NumberOfInstallments = len(p.Installments)
	p.refreshDates()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Regenerate replaces the whole schedule with a freshly generated
// fixed-distribution one. This is the only path back from custom to
// fixed and discards any paid-state carried by the old lines, so the
// caller confirms it explicitly.
func (p *PaymentPlan) Regenerate(total valueobject.Money, frequency Frequency, count int, startDate time.Time) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot regenerate plan in %s status", p.Status))
	}
	if !total.Currency().IsSupported() {
		return shared.NewDomainError("UNSUPPORTED_CURRENCY", fmt.Sprintf("Currency %q is not supported", total.Currency()))
	}
	if frequency == FrequencyOneTime {
		count = 1
	}

	entries, err := GenerateSchedule(startDate, frequency, count, total.Amount(), total.Currency())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "Installment count must be positive")
	}

	p.Distribution = DistributionFixed
	p.Frequency = frequency
	p.TotalPlannedAmount = total.Amount()
	p.Currency = total.Currency()
	p.InstallmentAmount = entries[0].Amount
	p.NumberOfInstallments = len(entries)
	p.StartDate = startDate
	p.setInstallments(entries)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPlanRegeneratedEvent(p))

	return nil
}

func (p *PaymentPlan) installmentBySequence(sequence int) *Installment {
	for i := range p.Installments {
		if p.Installments[i].Sequence == sequence {
			return &p.Installments[i]
		}
	}
	return nil
}

// GetInstallment returns the installment with the given sequence number
func (p *PaymentPlan) GetInstallment(sequence int) (*Installment, error) {
	inst := p.installmentBySequence(sequence)
	if inst == nil {
		return nil, shared.NewDomainError("INSTALLMENT_NOT_FOUND", fmt.Sprintf("Installment %d does not exist", sequence))
	}
	return inst, nil
}

// PayInstallment records a payment against one installment and
// advances the next payment date. Paying the final open installment
// completes the plan unless it auto-renews.
func (p *PaymentPlan) PayInstallment(sequence int, paidAmount decimal.Decimal, paidDate time.Time) error {
	if p.Status != StatusActive && p.Status != StatusOverdue {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record installment payment on a plan in %s status", p.Status))
	}
	if paidAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Paid amount must be positive")
	}

	inst := p.installmentBySequence(sequence)
	if inst == nil {
		return shared.NewDomainError("INSTALLMENT_NOT_FOUND", fmt.Sprintf("Installment %d does not exist", sequence))
	}
	if inst.IsPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Installment %d is already paid", sequence))
	}

	now := time.Now()
	inst.IsPaid = true
	inst.PaidDate = &paidDate
	inst.PaidAmount = &paidAmount
	inst.UpdatedAt = now

	p.refreshDates()
	if p.Status == StatusOverdue {
		p.Status = StatusActive
	}
	if p.NextPaymentDate == nil && !p.AutoRenew {
		p.Status = StatusCompleted
		p.AddDomainEvent(NewPlanCompletedEvent(p))
	}
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewInstallmentPaidEvent(p, sequence, paidAmount))

	return nil
}

// AllPaid reports whether every installment has been paid
func (p *PaymentPlan) AllPaid() bool {
	for i := range p.Installments {
		if !p.Installments[i].IsPaid {
			return false
		}
	}
	return len(p.Installments) > 0
}

// Renew extends an auto-renewing plan with a fresh cycle starting one
// period after the last installment
func (p *PaymentPlan) Renew() error {
	if !p.AutoRenew {
		return shared.NewDomainError("INVALID_STATE", "Plan is not set to auto-renew")
	}
	if !p.AllPaid() {
		return shared.NewDomainError("INVALID_STATE", "Plan still has open installments")
	}
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot renew plan in %s status", p.Status))
	}
	if p.Frequency == FrequencyOneTime {
		return shared.NewDomainError("INVALID_FREQUENCY", "One-time plans cannot renew")
	}

	last := p.Installments[len(p.Installments)-1].DueDate
	nextStart := p.Frequency.dueDate(last, 1)

	entries, err := GenerateSchedule(nextStart, p.Frequency, p.NumberOfInstallments, p.TotalPlannedAmount, p.Currency)
	if err != nil {
		return err
	}

	p.Distribution = DistributionFixed
	p.StartDate = nextStart
	p.InstallmentAmount = entries[0].Amount
	p.setInstallments(entries)
	p.Status = StatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPlanRenewedEvent(p))

	return nil
}

// Pause suspends collection on an active plan
func (p *PaymentPlan) Pause() error {
	if p.Status != StatusActive && p.Status != StatusOverdue {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot pause plan in %s status", p.Status))
	}

	p.Status = StatusPaused
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Resume reactivates a paused plan
func (p *PaymentPlan) Resume() error {
	if p.Status != StatusPaused {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot resume plan in %s status", p.Status))
	}

	p.Status = StatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Cancel permanently stops the plan
func (p *PaymentPlan) Cancel(reason string) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Plan is already %s", p.Status))
	}

	now := time.Now()
	p.Status = StatusCancelled
	p.CancelledAt = &now
	p.CancelReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	return nil
}

// MarkOverdue flags an active plan whose next payment date has passed
func (p *PaymentPlan) MarkOverdue(asOf time.Time) error {
	if p.Status != StatusActive {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark plan in %s status overdue", p.Status))
	}
	if p.NextPaymentDate == nil || !p.NextPaymentDate.Before(asOf) {
		return shared.NewDomainError("INVALID_STATE", "Plan has no overdue installment")
	}

	p.Status = StatusOverdue
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPlanOverdueEvent(p))

	return nil
}

// GetTotalPlannedMoney returns the planned total as Money
func (p *PaymentPlan) GetTotalPlannedMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.TotalPlannedAmount, p.Currency)
	return m
}
