package plan

import (
	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PlanCreatedEvent is emitted when a payment plan is created
type PlanCreatedEvent struct {
	shared.BaseDomainEvent
	PledgeID     uuid.UUID
	Frequency    string
	Distribution string
	Total        decimal.Decimal
	Currency     string
}

// EventType returns the event type
func (e *PlanCreatedEvent) EventType() string {
	return "plan.created"
}

// NewPlanCreatedEvent creates a new PlanCreatedEvent
func NewPlanCreatedEvent(p *PaymentPlan) *PlanCreatedEvent {
	return &PlanCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("plan.created", "PaymentPlan", p.ID),
		PledgeID:        p.PledgeID,
		Frequency:       p.Frequency.String(),
		Distribution:    p.Distribution.String(),
		Total:           p.TotalPlannedAmount,
		Currency:        p.Currency.String(),
	}
}

// PlanPromotedToCustomEvent is emitted when editing an installment
// converts a fixed plan to custom distribution
type PlanPromotedToCustomEvent struct {
	shared.BaseDomainEvent
	PledgeID uuid.UUID
}

// EventType returns the event type
func (e *PlanPromotedToCustomEvent) EventType() string {
	return "plan.promoted_to_custom"
}

// NewPlanPromotedToCustomEvent creates a new PlanPromotedToCustomEvent
func NewPlanPromotedToCustomEvent(p *PaymentPlan) *PlanPromotedToCustomEvent {
	return &PlanPromotedToCustomEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("plan.promoted_to_custom", "PaymentPlan", p.ID),
		PledgeID:        p.PledgeID,
	}
}

// PlanRegeneratedEvent is emitted when a plan's schedule is rebuilt
type PlanRegeneratedEvent struct {
	shared.BaseDomainEvent
	Frequency string
	Count     int
}

// EventType returns the event type
func (e *PlanRegeneratedEvent) EventType() string {
	return "plan.regenerated"
}

// NewPlanRegeneratedEvent creates a new PlanRegeneratedEvent
func NewPlanRegeneratedEvent(p *PaymentPlan) *PlanRegeneratedEvent {
	return &PlanRegeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("plan.regenerated", "PaymentPlan", p.ID),
		Frequency:       p.Frequency.String(),
		Count:           p.NumberOfInstallments,
	}
}

// InstallmentPaidEvent is emitted when an installment is paid
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	Sequence   int
	PaidAmount decimal.Decimal
}

// EventType returns the event type
func (e *InstallmentPaidEvent) EventType() string {
	return "plan.installment_paid"
}

// NewInstallmentPaidEvent creates a new InstallmentPaidEvent
func NewInstallmentPaidEvent(p *PaymentPlan, sequence int, paidAmount decimal.Decimal) *InstallmentPaidEvent {
	return &InstallmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("plan.installment_paid", "PaymentPlan", p.ID),
		Sequence:        sequence,
		PaidAmount:      paidAmount,
	}
}

// PlanCompletedEvent is emitted when the final installment is paid
type PlanCompletedEvent struct {
	shared.BaseDomainEvent
	PledgeID uuid.UUID
}

// EventType returns the event type
func (e *PlanCompletedEvent) EventType() string {
	return "plan.completed"
}

// NewPlanCompletedEvent creates a new PlanCompletedEvent
func NewPlanCompletedEvent(p *PaymentPlan) *PlanCompletedEvent {
	return &PlanCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("plan.completed", "PaymentPlan", p.ID),
		PledgeID:        p.PledgeID,
	}
}

// PlanRenewedEvent is emitted when an auto-renewing plan starts a new cycle
type PlanRenewedEvent struct {
	shared.BaseDomainEvent
	StartDate string
}

// EventType returns the event type
func (e *PlanRenewedEvent) EventType() string {
	return "plan.renewed"
}

// NewPlanRenewedEvent creates a new PlanRenewedEvent
func NewPlanRenewedEvent(p *PaymentPlan) *PlanRenewedEvent {
	return &PlanRenewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("plan.renewed", "PaymentPlan", p.ID),
		StartDate:       p.StartDate.Format("2006-01-02"),
	}
}

// PlanOverdueEvent is emitted when a plan is flagged overdue
type PlanOverdueEvent struct {
	shared.BaseDomainEvent
	PledgeID uuid.UUID
}

// EventType returns the event type
func (e *PlanOverdueEvent) EventType() string {
	return "plan.overdue"
}

// NewPlanOverdueEvent creates a new PlanOverdueEvent
func NewPlanOverdueEvent(p *PaymentPlan) *PlanOverdueEvent {
	return &PlanOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("plan.overdue", "PaymentPlan", p.ID),
		PledgeID:        p.PledgeID,
	}
}
