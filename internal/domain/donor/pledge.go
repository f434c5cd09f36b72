package donor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PledgeStatus represents the lifecycle status of a pledge
type PledgeStatus string

const (
	PledgeStatusActive    PledgeStatus = "active"    // Open, balance remaining
	PledgeStatusFulfilled PledgeStatus = "fulfilled" // Paid in full
	PledgeStatusCancelled PledgeStatus = "cancelled" // Cancelled before fulfillment
)

// IsValid checks if the status is a valid PledgeStatus
func (s PledgeStatus) IsValid() bool {
	switch s {
	case PledgeStatusActive, PledgeStatusFulfilled, PledgeStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PledgeStatus
func (s PledgeStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the pledge is in a terminal state
func (s PledgeStatus) IsTerminal() bool {
	return s == PledgeStatusFulfilled || s == PledgeStatusCancelled
}

// Pledge represents a contact's committed donation amount.
// USD mirror fields are maintained alongside the pledge currency so
// reporting can aggregate across currencies.
type Pledge struct {
	shared.BaseAggregateRoot
	ContactID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	ContactName       string                `gorm:"type:varchar(200);not null"` // Denormalized for display
	OriginalAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency          valueobject.Currency  `gorm:"type:varchar(3);not null"`
	ExchangeRate      decimal.Decimal       `gorm:"type:decimal(18,8);not null"` // Local units per USD at creation
	OriginalAmountUSD decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalPaid         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalPaidUSD      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Balance           decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	BalanceUSD        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PledgeDate        time.Time             `gorm:"not null"`
	Status            PledgeStatus          `gorm:"type:varchar(20);not null;default:'active';index"`
	Campaign          string                `gorm:"type:varchar(200)"`
	Notes             string                `gorm:"type:text"`
	CancelledAt       *time.Time
	CancelReason      string                `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Pledge) TableName() string {
	return "pledges"
}

// NewPledge creates a new pledge for a contact
func NewPledge(
	contactID uuid.UUID,
	contactName string,
	amount valueobject.Money,
	exchangeRate decimal.Decimal,
	pledgeDate time.Time,
) (*Pledge, error) {
	if contactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Contact ID cannot be empty")
	}
	if contactName == "" {
		return nil, shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Pledge amount must be positive")
	}
	if !amount.Currency().IsSupported() {
		return nil, shared.NewDomainError("UNSUPPORTED_CURRENCY", fmt.Sprintf("Currency %q is not supported", amount.Currency()))
	}
	if exchangeRate.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_EXCHANGE_RATE", "Exchange rate must be positive")
	}
	if pledgeDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PLEDGE_DATE", "Pledge date is required")
	}

	amt := amount.Amount()
	usd := amt.Div(exchangeRate)

	p := &Pledge{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ContactID:         contactID,
		ContactName:       contactName,
		OriginalAmount:    amt,
		Currency:          amount.Currency(),
		ExchangeRate:      exchangeRate,
		OriginalAmountUSD: usd.Round(2),
		TotalPaid:         decimal.Zero,
		TotalPaidUSD:      decimal.Zero,
		Balance:           amt,
		BalanceUSD:        usd.Round(2),
		PledgeDate:        pledgeDate,
		Status:            PledgeStatusActive,
	}

	p.AddDomainEvent(NewPledgeCreatedEvent(p))

	return p, nil
}

// ApplyPayment records a payment against the pledge, maintaining
// balance = originalAmount - totalPaid and the USD mirrors.
func (p *Pledge) ApplyPayment(amount, amountUSD decimal.Decimal) error {
	if p.Status == PledgeStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot apply payment to a cancelled pledge")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	p.TotalPaid = p.TotalPaid.Add(amount)
	p.TotalPaidUSD = p.TotalPaidUSD.Add(amountUSD)
	p.Balance = p.OriginalAmount.Sub(p.TotalPaid)
	p.BalanceUSD = p.OriginalAmountUSD.Sub(p.TotalPaidUSD)

	if p.Balance.LessThanOrEqual(decimal.Zero) {
		p.Status = PledgeStatusFulfilled
		p.AddDomainEvent(NewPledgeFulfilledEvent(p))
	}

	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPledgeBalanceChangedEvent(p, amount))

	return nil
}

// ReversePayment backs out a previously applied payment, e.g. on refund
// or payment deletion.
func (p *Pledge) ReversePayment(amount, amountUSD decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Reversal amount must be positive")
	}
	if amount.GreaterThan(p.TotalPaid) {
		return shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Cannot reverse %s: only %s has been paid", amount.StringFixed(2), p.TotalPaid.StringFixed(2)))
	}

	p.TotalPaid = p.TotalPaid.Sub(amount)
	p.TotalPaidUSD = p.TotalPaidUSD.Sub(amountUSD)
	p.Balance = p.OriginalAmount.Sub(p.TotalPaid)
	p.BalanceUSD = p.OriginalAmountUSD.Sub(p.TotalPaidUSD)

	if p.Status == PledgeStatusFulfilled && p.Balance.IsPositive() {
		p.Status = PledgeStatusActive
	}

	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPledgeBalanceChangedEvent(p, amount.Neg()))

	return nil
}

// Cancel cancels the pledge
func (p *Pledge) Cancel(reason string) error {
	if p.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel pledge in %s status", p.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	p.Status = PledgeStatusCancelled
	p.CancelledAt = &now
	p.CancelReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	return nil
}

// SetNotes sets the pledge notes
func (p *Pledge) SetNotes(notes string) {
	p.Notes = notes
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// GetOriginalAmountMoney returns the original amount as Money
func (p *Pledge) GetOriginalAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.OriginalAmount, p.Currency)
	return m
}

// GetBalanceMoney returns the remaining balance as Money
func (p *Pledge) GetBalanceMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Balance, p.Currency)
	return m
}

// IsFulfilled returns true if the pledge has been paid in full
func (p *Pledge) IsFulfilled() bool {
	return p.Status == PledgeStatusFulfilled
}

// IsActive returns true if the pledge can still receive payments
func (p *Pledge) IsActive() bool {
	return p.Status == PledgeStatusActive
}
