package payment

import (
	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentCreatedEvent is emitted when a payment is recorded
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string
	PledgeID      *uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	Split         bool
}

// EventType returns the event type
func (e *PaymentCreatedEvent) EventType() string {
	return "payment.created"
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment.created", "Payment", p.ID),
		ReceiptNumber:   p.ReceiptNumber,
		PledgeID:        p.PledgeID,
		Amount:          p.Amount,
		Currency:        p.Currency.String(),
		Split:           p.IsSplit(),
	}
}

// PaymentCompletedEvent is emitted when a payment completes
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string
	AmountUSD     decimal.Decimal
}

// EventType returns the event type
func (e *PaymentCompletedEvent) EventType() string {
	return "payment.completed"
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment.completed", "Payment", p.ID),
		ReceiptNumber:   p.ReceiptNumber,
		AmountUSD:       p.AmountUSD,
	}
}

// PaymentRefundedEvent is emitted when a completed payment is refunded
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string
	AmountUSD     decimal.Decimal
}

// EventType returns the event type
func (e *PaymentRefundedEvent) EventType() string {
	return "payment.refunded"
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(p *Payment) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment.refunded", "Payment", p.ID),
		ReceiptNumber:   p.ReceiptNumber,
		AmountUSD:       p.AmountUSD,
	}
}

// PaymentAllocationsReplacedEvent is emitted when a split payment's
// allocation set is replaced
type PaymentAllocationsReplacedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber   string
	AllocationCount int
}

// EventType returns the event type
func (e *PaymentAllocationsReplacedEvent) EventType() string {
	return "payment.allocations_replaced"
}

// NewPaymentAllocationsReplacedEvent creates a new PaymentAllocationsReplacedEvent
func NewPaymentAllocationsReplacedEvent(p *Payment) *PaymentAllocationsReplacedEvent {
	return &PaymentAllocationsReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment.allocations_replaced", "Payment", p.ID),
		ReceiptNumber:   p.ReceiptNumber,
		AllocationCount: len(p.Allocations),
	}
}
