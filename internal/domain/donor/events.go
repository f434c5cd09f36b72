package donor

import (
	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ContactCreatedEvent is raised when a new contact is created
type ContactCreatedEvent struct {
	shared.BaseDomainEvent
	ContactID uuid.UUID `json:"contact_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
}

// EventType returns the event type name
func (e *ContactCreatedEvent) EventType() string {
	return "ContactCreated"
}

// NewContactCreatedEvent creates a new ContactCreatedEvent
func NewContactCreatedEvent(c *Contact) *ContactCreatedEvent {
	return &ContactCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ContactCreated", "Contact", c.ID),
		ContactID:       c.ID,
		FullName:        c.FullName(),
		Email:           c.Email,
	}
}

// PledgeCreatedEvent is raised when a new pledge is created
type PledgeCreatedEvent struct {
	shared.BaseDomainEvent
	PledgeID    uuid.UUID            `json:"pledge_id"`
	ContactID   uuid.UUID            `json:"contact_id"`
	ContactName string               `json:"contact_name"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    valueobject.Currency `json:"currency"`
	AmountUSD   decimal.Decimal      `json:"amount_usd"`
}

// EventType returns the event type name
func (e *PledgeCreatedEvent) EventType() string {
	return "PledgeCreated"
}

// NewPledgeCreatedEvent creates a new PledgeCreatedEvent
func NewPledgeCreatedEvent(p *Pledge) *PledgeCreatedEvent {
	return &PledgeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PledgeCreated", "Pledge", p.ID),
		PledgeID:        p.ID,
		ContactID:       p.ContactID,
		ContactName:     p.ContactName,
		Amount:          p.OriginalAmount,
		Currency:        p.Currency,
		AmountUSD:       p.OriginalAmountUSD,
	}
}

// PledgeBalanceChangedEvent is raised when a payment is applied to or
// reversed from a pledge. Delta is negative for reversals.
type PledgeBalanceChangedEvent struct {
	shared.BaseDomainEvent
	PledgeID   uuid.UUID       `json:"pledge_id"`
	Delta      decimal.Decimal `json:"delta"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	Balance    decimal.Decimal `json:"balance"`
	BalanceUSD decimal.Decimal `json:"balance_usd"`
}

// EventType returns the event type name
func (e *PledgeBalanceChangedEvent) EventType() string {
	return "PledgeBalanceChanged"
}

// NewPledgeBalanceChangedEvent creates a new PledgeBalanceChangedEvent
func NewPledgeBalanceChangedEvent(p *Pledge, delta decimal.Decimal) *PledgeBalanceChangedEvent {
	return &PledgeBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PledgeBalanceChanged", "Pledge", p.ID),
		PledgeID:        p.ID,
		Delta:           delta,
		TotalPaid:       p.TotalPaid,
		Balance:         p.Balance,
		BalanceUSD:      p.BalanceUSD,
	}
}

// PledgeFulfilledEvent is raised when a pledge's balance reaches zero
type PledgeFulfilledEvent struct {
	shared.BaseDomainEvent
	PledgeID  uuid.UUID       `json:"pledge_id"`
	ContactID uuid.UUID       `json:"contact_id"`
	TotalPaid decimal.Decimal `json:"total_paid"`
}

// EventType returns the event type name
func (e *PledgeFulfilledEvent) EventType() string {
	return "PledgeFulfilled"
}

// NewPledgeFulfilledEvent creates a new PledgeFulfilledEvent
func NewPledgeFulfilledEvent(p *Pledge) *PledgeFulfilledEvent {
	return &PledgeFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PledgeFulfilled", "Pledge", p.ID),
		PledgeID:        p.ID,
		ContactID:       p.ContactID,
		TotalPaid:       p.TotalPaid,
	}
}
