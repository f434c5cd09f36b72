package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status represents the processing status of a payment
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// IsValid checks if the status is a valid payment Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the payment is in a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusRefunded
}

// Method represents how a payment was made
type Method string

const (
	MethodCash         Method = "cash"
	MethodCheck        Method = "check"
	MethodCreditCard   Method = "credit_card"
	MethodBankTransfer Method = "bank_transfer"
	MethodOther        Method = "other"
)

// IsValid checks if the payment method is valid
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCheck, MethodCreditCard, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}

// String returns the string representation of Method
func (m Method) String() string {
	return string(m)
}

// Allocation represents the portion of a split payment assigned to one pledge
type Allocation struct {
	ID        uuid.UUID            `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID            `gorm:"type:uuid;not null;index"`
	PledgeID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountUSD decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency  valueobject.Currency `gorm:"type:varchar(3);not null"`
	Notes     string               `gorm:"type:varchar(500)"`
	CreatedAt time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "payment_allocations"
}

// NewAllocation creates a new payment allocation
func NewAllocation(paymentID, pledgeID uuid.UUID, amount, amountUSD decimal.Decimal, currency valueobject.Currency, notes string) *Allocation {
	return &Allocation{
		ID:        uuid.New(),
		PaymentID: paymentID,
		PledgeID:  pledgeID,
		Amount:    amount,
		AmountUSD: amountUSD,
		Currency:  currency,
		Notes:     notes,
		CreatedAt: time.Now(),
	}
}

// Payment represents a recorded money transfer aggregate root.
// A payment is either direct (PledgeID set, no allocations) or split
// (allocations set, PledgeID nil) - never both.
type Payment struct {
	shared.BaseAggregateRoot
	ReceiptNumber string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	PledgeID      *uuid.UUID           `gorm:"type:uuid;index"`
	Amount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null"`
	AmountUSD     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	ExchangeRate  decimal.Decimal      `gorm:"type:decimal(18,8);not null"` // Local units per USD at payment time
	PaymentDate   time.Time            `gorm:"not null"`
	Method        Method               `gorm:"type:varchar(20);not null"`
	Status        Status               `gorm:"type:varchar(20);not null;default:'pending';index"`
	Allocations   []Allocation         `gorm:"foreignKey:PaymentID;references:ID"`
	Notes         string               `gorm:"type:text"`
	RefundedAt    *time.Time
	FailureReason string               `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

func validatePaymentCore(receiptNumber string, amount valueobject.Money, exchangeRate decimal.Decimal, paymentDate time.Time, method Method) error {
	if receiptNumber == "" {
		return shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if len(receiptNumber) > 50 {
		return shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot exceed 50 characters")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !amount.Currency().IsSupported() {
		return shared.NewDomainError("UNSUPPORTED_CURRENCY", fmt.Sprintf("Currency %q is not supported", amount.Currency()))
	}
	if exchangeRate.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_EXCHANGE_RATE", "Exchange rate must be positive")
	}
	if paymentDate.IsZero() {
		return shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Payment method %q is not valid", method))
	}
	return nil
}

// NewDirectPayment creates a payment applied to a single pledge
func NewDirectPayment(
	receiptNumber string,
	pledgeID uuid.UUID,
	amount valueobject.Money,
	exchangeRate decimal.Decimal,
	paymentDate time.Time,
	method Method,
) (*Payment, error) {
	if err := validatePaymentCore(receiptNumber, amount, exchangeRate, paymentDate, method); err != nil {
		return nil, err
	}
	if pledgeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PLEDGE", "Pledge ID cannot be empty")
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptNumber:     receiptNumber,
		PledgeID:          &pledgeID,
		Amount:            amount.Amount(),
		Currency:          amount.Currency(),
		AmountUSD:         amount.Amount().Div(exchangeRate).Round(2),
		ExchangeRate:      exchangeRate,
		PaymentDate:       paymentDate,
		Method:            method,
		Status:            StatusPending,
		Allocations:       make([]Allocation, 0),
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// NewSplitPayment creates a payment allocated across multiple pledges.
// The allocation entries must already have passed ValidateAllocations
// against the payment amount; this constructor re-checks the sum so the
// shape invariant cannot be bypassed.
func NewSplitPayment(
	receiptNumber string,
	amount valueobject.Money,
	exchangeRate decimal.Decimal,
	paymentDate time.Time,
	method Method,
	entries []AllocationEntry,
) (*Payment, error) {
	if err := validatePaymentCore(receiptNumber, amount, exchangeRate, paymentDate, method); err != nil {
		return nil, err
	}
	if err := ValidateAllocations(entries, amount.Amount()); err != nil {
		return nil, err
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptNumber:     receiptNumber,
		PledgeID:          nil,
		Amount:            amount.Amount(),
		Currency:          amount.Currency(),
		AmountUSD:         amount.Amount().Div(exchangeRate).Round(2),
		ExchangeRate:      exchangeRate,
		PaymentDate:       paymentDate,
		Method:            method,
		Status:            StatusPending,
		Allocations:       make([]Allocation, 0, len(entries)),
	}

	for _, e := range entries {
		usd := e.Amount.Div(exchangeRate).Round(2)
		p.Allocations = append(p.Allocations, *NewAllocation(p.ID, e.PledgeID, e.Amount, usd, amount.Currency(), e.Notes))
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// IsSplit returns true if the payment is allocated across pledges
func (p *Payment) IsSplit() bool {
	return len(p.Allocations) > 0
}

// IsDirect returns true if the payment is linked to a single pledge
func (p *Payment) IsDirect() bool {
	return p.PledgeID != nil
}

// UpdateDetails applies a direct-mode update. Rejected for split payments.
func (p *Payment) UpdateDetails(amount valueobject.Money, exchangeRate decimal.Decimal, paymentDate time.Time, method Method, notes string) error {
	if p.IsSplit() {
		return shared.NewDomainError("WRONG_PAYMENT_SHAPE", "Payment has allocations and must be updated through the split-payment path")
	}
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update payment in %s status", p.Status))
	}
	if err := validatePaymentCore(p.ReceiptNumber, amount, exchangeRate, paymentDate, method); err != nil {
		return err
	}

	p.Amount = amount.Amount()
	p.Currency = amount.Currency()
	p.ExchangeRate = exchangeRate
	p.AmountUSD = amount.Amount().Div(exchangeRate).Round(2)
	p.PaymentDate = paymentDate
	p.Method = method
	p.Notes = notes
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// ReplaceAllocations applies a split-mode update, replacing the full
// allocation set. Rejected for payments without allocations.
func (p *Payment) ReplaceAllocations(amount valueobject.Money, exchangeRate decimal.Decimal, entries []AllocationEntry) error {
	if !p.IsSplit() {
		return shared.NewDomainError("NOT_A_SPLIT_PAYMENT", "Payment has no allocations and cannot be updated through the split-payment path")
	}
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update payment in %s status", p.Status))
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if exchangeRate.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_EXCHANGE_RATE", "Exchange rate must be positive")
	}
	if err := ValidateAllocations(entries, amount.Amount()); err != nil {
		return err
	}
	if err := ValidateAllocationOwnership(entries, p); err != nil {
		return err
	}

	p.Amount = amount.Amount()
	p.Currency = amount.Currency()
	p.ExchangeRate = exchangeRate
	p.AmountUSD = amount.Amount().Div(exchangeRate).Round(2)

	allocations := make([]Allocation, 0, len(entries))
	for _, e := range entries {
		usd := e.Amount.Div(exchangeRate).Round(2)
		if e.ID != nil {
			existing := p.allocationByID(*e.ID)
			existing.PledgeID = e.PledgeID
			existing.Amount = e.Amount
			existing.AmountUSD = usd
			existing.Currency = amount.Currency()
			existing.Notes = e.Notes
			allocations = append(allocations, *existing)
		} else {
			allocations = append(allocations, *NewAllocation(p.ID, e.PledgeID, e.Amount, usd, amount.Currency(), e.Notes))
		}
	}
	p.Allocations = allocations
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentAllocationsReplacedEvent(p))

	return nil
}

func (p *Payment) allocationByID(id uuid.UUID) *Allocation {
	for i := range p.Allocations {
		if p.Allocations[i].ID == id {
			return &p.Allocations[i]
		}
	}
	return nil
}

// HasAllocation reports whether an allocation id belongs to this payment
func (p *Payment) HasAllocation(id uuid.UUID) bool {
	return p.allocationByID(id) != nil
}

// Complete marks the payment as completed
func (p *Payment) Complete() error {
	if p.Status != StatusPending && p.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete payment in %s status", p.Status))
	}

	p.Status = StatusCompleted
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentCompletedEvent(p))

	return nil
}

// MarkProcessing marks the payment as in-flight with an external processor
func (p *Payment) MarkProcessing() error {
	if p.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot process payment in %s status", p.Status))
	}

	p.Status = StatusProcessing
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Fail marks the payment as failed
func (p *Payment) Fail(reason string) error {
	if p.Status.IsTerminal() || p.Status == StatusCompleted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}

	p.Status = StatusFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Cancel cancels a payment that has not completed
func (p *Payment) Cancel() error {
	if p.Status != StatusPending && p.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel payment in %s status", p.Status))
	}

	p.Status = StatusCancelled
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Refund marks a completed payment as refunded
func (p *Payment) Refund() error {
	if p.Status != StatusCompleted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund payment in %s status", p.Status))
	}

	now := time.Now()
	p.Status = StatusRefunded
	p.RefundedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentRefundedEvent(p))

	return nil
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}

// AllocatedTotal returns the sum of all allocation amounts
func (p *Payment) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Allocations {
		total = total.Add(p.Allocations[i].Amount)
	}
	return total
}
