package plan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
)

// Filter holds query filters for payment plans
type Filter struct {
	shared.Filter
	PledgeID     *uuid.UUID
	Status       *Status
	Frequency    *Frequency
	Distribution *Distribution
	AutoRenew    *bool
}

// Repository defines the persistence interface for payment plans
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentPlan, error)
	FindByPledge(ctx context.Context, pledgeID uuid.UUID) ([]*PaymentPlan, error)
	FindAll(ctx context.Context, filter Filter) (*shared.Paginated[*PaymentPlan], error)
	// FindDueBefore returns active plans whose next payment date is
	// strictly before the cutoff. Used by the overdue sweep.
	FindDueBefore(ctx context.Context, cutoff time.Time) ([]*PaymentPlan, error)
	Save(ctx context.Context, p *PaymentPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter Filter) (int64, error)
}
